package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"clinic-scheduling-api/internal/model"
)

const pgAppointmentCols = `id, patient_name, patient_email, doctor_name, doctor_email, specialty,
	to_char(slot_date, 'YYYY-MM-DD'), to_char(slot_time, 'HH24:MI'), notes, created_at, updated_at`

func scanAppointment(row scanner) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(&a.ID, &a.PatientName, &a.PatientEmail, &a.DoctorName, &a.DoctorEmail,
		&a.Specialty, &a.Date, &a.Time, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	// the unique index on (slot_date, slot_time) catches races the pre-check misses
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments
		   (patient_name, patient_email, doctor_name, doctor_email, specialty, slot_date, slot_time, notes)
		 VALUES ($1,$2,$3,$4,$5,$6::text::date,$7::text::time,$8)
		 RETURNING id, created_at, updated_at`,
		a.PatientName, a.PatientEmail, a.DoctorName, a.DoctorEmail, a.Specialty, a.Date, a.Time, a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return pgErr(err, ErrSlotTaken)
	}
	return nil
}

func (s *Store) SlotTaken(ctx context.Context, date, tm string, excludeID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE slot_date = $1::text::date
			  AND slot_time = $2::text::time
			  AND id <> $3)`,
		date, tm, excludeID,
	).Scan(&exists)
	return exists, err
}

func (s *Store) ListAppointments(ctx context.Context) ([]model.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+pgAppointmentCols+` FROM appointments ORDER BY slot_date, slot_time, id`)
}

func (s *Store) AppointmentsByPatient(ctx context.Context, name string) ([]model.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+pgAppointmentCols+` FROM appointments WHERE patient_name = $1
		 ORDER BY slot_date, slot_time, id`, name)
}

func (s *Store) AppointmentsByDoctor(ctx context.Context, name string) ([]model.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+pgAppointmentCols+` FROM appointments WHERE doctor_name = $1
		 ORDER BY slot_date, slot_time, id`, name)
}

func (s *Store) queryAppointments(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+pgAppointmentCols+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAppointment writes the mutable fields (slot and notes) of a.
func (s *Store) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE appointments
		 SET slot_date=$1::text::date, slot_time=$2::text::time, notes=$3, updated_at=NOW()
		 WHERE id=$4
		 RETURNING updated_at`,
		a.Date, a.Time, a.Notes, a.ID,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return pgErr(err, ErrSlotTaken)
	}
	return nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
