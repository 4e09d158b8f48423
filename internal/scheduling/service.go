// Package scheduling books, reschedules and cancels clinic appointments.
// A (date, time) slot holds at most one appointment across all doctors.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clinic-scheduling-api/internal/middleware"
	"clinic-scheduling-api/internal/model"
	"clinic-scheduling-api/internal/store"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Repository interface {
	ListAppointments(ctx context.Context) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, id int64) (*model.Appointment, error)
	AppointmentsByPatient(ctx context.Context, name string) ([]model.Appointment, error)
	AppointmentsByDoctor(ctx context.Context, name string) ([]model.Appointment, error)
	SlotTaken(ctx context.Context, date, tm string, excludeID int64) (bool, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, id int64) error
}

// Recorder receives booking outcomes. Optional.
type Recorder interface {
	RecordBooking()
	RecordSlotConflict()
}

type Service struct {
	repo Repository
	rec  Recorder
}

type Option func(*Service)

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.rec = r }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo}
	for _, o := range opts {
		o(s)
	}
	return s
}

type CreateInput struct {
	PatientName  string
	PatientEmail string
	DoctorName   string
	DoctorEmail  string
	Specialty    string
	Date         string
	Time         string
	Notes        *string
}

// UpdateInput carries the fields to change; nil means leave as is.
type UpdateInput struct {
	Date  *string
	Time  *string
	Notes *string
}

// ParseDate validates a YYYY-MM-DD date and returns it in canonical form.
func ParseDate(s string) (string, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", model.NewValidationError("Data inválida: %q. Use o formato AAAA-MM-DD.", s)
	}
	return d.Format(DateLayout), nil
}

// ParseTime validates an HH:MM time; single-digit hours are accepted.
func ParseTime(s string) (string, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return "", model.NewValidationError("Hora inválida: %q. Use o formato HH:MM.", s)
	}
	return t.Format(TimeLayout), nil
}

func (s *Service) List(ctx context.Context) ([]model.Appointment, error) {
	out, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if out == nil {
		out = []model.Appointment{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	a, err := s.repo.GetAppointment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, model.NewNotFoundError("Consulta %d não encontrada.", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	return a, nil
}

func (s *Service) FindByPatient(ctx context.Context, name string) ([]model.Appointment, error) {
	out, err := s.repo.AppointmentsByPatient(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("appointments by patient: %w", err)
	}
	if len(out) == 0 {
		return nil, model.NewNotFoundError("Nenhuma consulta encontrada para o paciente %s.", name)
	}
	return out, nil
}

func (s *Service) FindByDoctor(ctx context.Context, name string) ([]model.Appointment, error) {
	out, err := s.repo.AppointmentsByDoctor(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("appointments by doctor: %w", err)
	}
	if len(out) == 0 {
		return nil, model.NewNotFoundError("Nenhuma consulta encontrada para o médico %s.", name)
	}
	return out, nil
}

// Create books a new appointment and returns its id.
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	a := model.Appointment{
		PatientName:  strings.TrimSpace(in.PatientName),
		PatientEmail: strings.TrimSpace(in.PatientEmail),
		DoctorName:   strings.TrimSpace(in.DoctorName),
		DoctorEmail:  strings.TrimSpace(in.DoctorEmail),
		Specialty:    strings.TrimSpace(in.Specialty),
		Notes:        in.Notes,
	}
	if a.PatientName == "" || a.PatientEmail == "" || a.DoctorName == "" || a.DoctorEmail == "" ||
		a.Specialty == "" || strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.Time) == "" {
		return 0, model.NewValidationError("Por favor preencha todos os campos.")
	}

	var err error
	if a.Date, err = ParseDate(in.Date); err != nil {
		return 0, err
	}
	if a.Time, err = ParseTime(in.Time); err != nil {
		return 0, err
	}

	if err := s.checkSlot(ctx, a.Date, a.Time, 0); err != nil {
		return 0, err
	}
	if err := s.repo.CreateAppointment(ctx, &a); err != nil {
		if errors.Is(err, store.ErrSlotTaken) {
			return 0, s.slotConflict(ctx, a.Date, a.Time)
		}
		return 0, fmt.Errorf("create appointment: %w", err)
	}

	if s.rec != nil {
		s.rec.RecordBooking()
	}
	slog.InfoContext(ctx, "appointment booked",
		slog.Int64("appointment_id", a.ID),
		slog.String("date", a.Date),
		slog.String("time", a.Time),
		caller(ctx),
	)
	return a.ID, nil
}

// Update applies the supplied fields and returns the stored record.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*model.Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	date, tm := a.Date, a.Time
	if in.Date != nil {
		if date, err = ParseDate(*in.Date); err != nil {
			return nil, err
		}
	}
	if in.Time != nil {
		if tm, err = ParseTime(*in.Time); err != nil {
			return nil, err
		}
	}

	if date != a.Date || tm != a.Time {
		if err := s.checkSlot(ctx, date, tm, a.ID); err != nil {
			return nil, err
		}
	}
	a.Date, a.Time = date, tm
	if in.Notes != nil {
		// blank notes clear the field
		a.Notes = in.Notes
		if strings.TrimSpace(*in.Notes) == "" {
			a.Notes = nil
		}
	}

	if err := s.repo.UpdateAppointment(ctx, a); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, model.NewNotFoundError("Consulta %d não encontrada.", id)
		case errors.Is(err, store.ErrSlotTaken):
			return nil, s.slotConflict(ctx, date, tm)
		}
		return nil, fmt.Errorf("update appointment %d: %w", id, err)
	}
	slog.InfoContext(ctx, "appointment updated", slog.Int64("appointment_id", a.ID), caller(ctx))
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.DeleteAppointment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.NewNotFoundError("Consulta %d não encontrada.", id)
	}
	if err != nil {
		return fmt.Errorf("delete appointment %d: %w", id, err)
	}
	slog.InfoContext(ctx, "appointment deleted", slog.Int64("appointment_id", id), caller(ctx))
	return nil
}

// caller is the authenticated user's id, or an empty attr that slog drops.
func caller(ctx context.Context) slog.Attr {
	if u, ok := middleware.UserFromContext(ctx); ok {
		return slog.Int64("user_id", u.ID)
	}
	return slog.Attr{}
}

func (s *Service) checkSlot(ctx context.Context, date, tm string, excludeID int64) error {
	taken, err := s.repo.SlotTaken(ctx, date, tm, excludeID)
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return s.slotConflict(ctx, date, tm)
	}
	return nil
}

func (s *Service) slotConflict(ctx context.Context, date, tm string) error {
	if s.rec != nil {
		s.rec.RecordSlotConflict()
	}
	slog.InfoContext(ctx, "slot already booked", slog.String("date", date), slog.String("time", tm))
	return model.NewConflictError("Horário já ocupado.")
}
