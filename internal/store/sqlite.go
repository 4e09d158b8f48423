package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"clinic-scheduling-api/internal/model"
)

// SQLite is the embedded backend, the default for local runs and tests.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite accepts sqlite://path, sqlite3://path, file: DSNs or a bare *.db path.
func OpenSQLite(databaseURL string) (*SQLite, error) {
	dsn := databaseURL
	for _, p := range []string{"sqlite://", "sqlite3://"} {
		dsn = strings.TrimPrefix(dsn, p)
	}
	if dsn == "" {
		dsn = "scheduling.db"
	}
	d, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; also keeps in-memory databases alive
	d.SetMaxOpenConns(1)
	d.SetConnMaxLifetime(0)

	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := d.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = d.Close()
		return nil, err
	}
	return &SQLite{db: d}, nil
}

func (s *SQLite) Migrate() error { return migrateSQLite(s.db) }

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() { _ = s.db.Close() }

func sqliteErr(err error, onUnique error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w (%v)", onUnique, se)
	case sqlite3.ErrConstraintCheck:
		return fmt.Errorf("%w (%v)", ErrInvalidType, se)
	}
	return err
}

func (s *SQLite) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, type, created_at) VALUES (?,?,?,?,?)`,
		u.Name, u.Email, u.PasswordHash, u.Type, now,
	)
	if err != nil {
		return sqliteErr(err, ErrDuplicateEmail)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	u.CreatedAt = now
	return nil
}

func (s *SQLite) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userWhere(ctx, `email = ?`, email)
}

func (s *SQLite) UserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userWhere(ctx, `id = ?`, id)
}

func (s *SQLite) userWhere(ctx context.Context, cond string, arg any) (*model.User, error) {
	u := &model.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, type, created_at FROM users WHERE `+cond, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Type, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

const sqliteAppointmentCols = `id, patient_name, patient_email, doctor_name, doctor_email, specialty,
	slot_date, slot_time, notes, created_at, updated_at`

func (s *SQLite) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments
		   (patient_name, patient_email, doctor_name, doctor_email, specialty, slot_date, slot_time, notes, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		a.PatientName, a.PatientEmail, a.DoctorName, a.DoctorEmail, a.Specialty, a.Date, a.Time, a.Notes, now, now,
	)
	if err != nil {
		return sqliteErr(err, ErrSlotTaken)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

func (s *SQLite) SlotTaken(ctx context.Context, date, tm string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM appointments WHERE slot_date = ? AND slot_time = ? AND id <> ?)`,
		date, tm, excludeID,
	).Scan(&exists)
	return exists, err
}

func (s *SQLite) ListAppointments(ctx context.Context) ([]model.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+sqliteAppointmentCols+` FROM appointments ORDER BY slot_date, slot_time, id`)
}

func (s *SQLite) AppointmentsByPatient(ctx context.Context, name string) ([]model.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+sqliteAppointmentCols+` FROM appointments WHERE patient_name = ?
		 ORDER BY slot_date, slot_time, id`, name)
}

func (s *SQLite) AppointmentsByDoctor(ctx context.Context, name string) ([]model.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+sqliteAppointmentCols+` FROM appointments WHERE doctor_name = ?
		 ORDER BY slot_date, slot_time, id`, name)
}

func (s *SQLite) queryAppointments(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
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

func (s *SQLite) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	a, err := scanAppointment(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteAppointmentCols+` FROM appointments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLite) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments SET slot_date=?, slot_time=?, notes=?, updated_at=? WHERE id=?`,
		a.Date, a.Time, a.Notes, now, a.ID,
	)
	if err != nil {
		return sqliteErr(err, ErrSlotTaken)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	a.UpdatedAt = now
	return nil
}

func (s *SQLite) DeleteAppointment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM appointments WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
