package model

import "time"

// user types accepted at registration
const (
	TypeMedico   = "medico"
	TypePaciente = "paciente"
	TypeDev      = "dev"
)

func ValidUserType(t string) bool {
	switch t {
	case TypeMedico, TypePaciente, TypeDev:
		return true
	}
	return false
}

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Type         string
	CreatedAt    time.Time
}

// Appointment keeps its slot in canonical text form:
// Date is YYYY-MM-DD and Time is HH:MM.
type Appointment struct {
	ID           int64
	PatientName  string
	PatientEmail string
	DoctorName   string
	DoctorEmail  string
	Specialty    string
	Date         string
	Time         string
	Notes        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
