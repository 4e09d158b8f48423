package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clinic-scheduling-api/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrSlotTaken      = errors.New("slot already booked")
	ErrInvalidType    = errors.New("invalid user type")
)

// Backend is the full method set shared by the Postgres and SQLite stores.
type Backend interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id int64) (*model.User, error)

	ListAppointments(ctx context.Context) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, id int64) (*model.Appointment, error)
	AppointmentsByPatient(ctx context.Context, name string) ([]model.Appointment, error)
	AppointmentsByDoctor(ctx context.Context, name string) ([]model.Appointment, error)
	SlotTaken(ctx context.Context, date, tm string, excludeID int64) (bool, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, id int64) error

	Migrate() error
	Ping(ctx context.Context) error
	Close()
}

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectOf picks the backend from the database URL scheme.
func DialectOf(databaseURL string) (Dialect, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres, nil
	case strings.HasPrefix(databaseURL, "sqlite://"), strings.HasPrefix(databaseURL, "sqlite3://"),
		strings.HasPrefix(databaseURL, "file:"), strings.HasSuffix(databaseURL, ".db"):
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("unsupported database url %q", databaseURL)
}

// Open connects to the backend named by databaseURL.
func Open(ctx context.Context, databaseURL string) (Backend, error) {
	d, err := DialectOf(databaseURL)
	if err != nil {
		return nil, err
	}
	if d == DialectPostgres {
		return NewPostgres(ctx, databaseURL)
	}
	return OpenSQLite(databaseURL)
}

// Store is the PostgreSQL backend.
type Store struct {
	pool *pgxpool.Pool
	url  string
}

func NewPostgres(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &Store{pool: pool, url: databaseURL}, nil
}

func (s *Store) Migrate() error {
	if s.url == "" {
		return errors.New("migrate: store has no database url")
	}
	return migratePostgres(s.url)
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() { s.pool.Close() }

// pgErr maps constraint violations to store errors.
func pgErr(err error, onUnique error) error {
	var pe *pgconn.PgError
	if !errors.As(err, &pe) {
		return err
	}
	switch pe.Code {
	case "23505":
		return fmt.Errorf("%w (%s)", onUnique, pe.ConstraintName)
	case "23514":
		return fmt.Errorf("%w (%s)", ErrInvalidType, pe.ConstraintName)
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}
