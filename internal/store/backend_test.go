package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-scheduling-api/internal/model"
)

var memSeq atomic.Int64

// newTestSQLite opens a private in-memory database with the schema applied.
func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	name := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", memSeq.Add(1))
	s, err := OpenSQLite(name)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate())
	return s
}

func strPtr(s string) *string { return &s }

func sampleAppointment(patient, doctor, date, tm string) *model.Appointment {
	return &model.Appointment{
		PatientName:  patient,
		PatientEmail: "paciente@x.com",
		DoctorName:   doctor,
		DoctorEmail:  "medico@x.com",
		Specialty:    "Cardiologia",
		Date:         date,
		Time:         tm,
	}
}

// runBackendSuite checks the behaviour both backends must share.
func runBackendSuite(t *testing.T, open func(t *testing.T) Backend) {
	t.Run("users", func(t *testing.T) {
		b := open(t)
		ctx := context.Background()

		u := &model.User{Name: "Ana", Email: "ana@x.com", PasswordHash: "h", Type: model.TypePaciente}
		require.NoError(t, b.CreateUser(ctx, u))
		assert.NotZero(t, u.ID)
		assert.False(t, u.CreatedAt.IsZero())

		got, err := b.UserByEmail(ctx, "ana@x.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "paciente", got.Type)

		got, err = b.UserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana", got.Name)

		_, err = b.UserByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = b.UserByID(ctx, u.ID+100)
		assert.ErrorIs(t, err, ErrNotFound)

		dup := &model.User{Name: "Ana 2", Email: "ana@x.com", PasswordHash: "h", Type: model.TypeDev}
		assert.ErrorIs(t, b.CreateUser(ctx, dup), ErrDuplicateEmail)

		bad := &model.User{Name: "X", Email: "x@x.com", PasswordHash: "h", Type: "admin"}
		assert.ErrorIs(t, b.CreateUser(ctx, bad), ErrInvalidType)
	})

	t.Run("appointments", func(t *testing.T) {
		b := open(t)
		ctx := context.Background()

		list, err := b.ListAppointments(ctx)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)

		late := sampleAppointment("Ana", "Dr. Lima", "2025-05-15", "14:30")
		late.Notes = strPtr("Primeira consulta")
		require.NoError(t, b.CreateAppointment(ctx, late))
		early := sampleAppointment("Bruno", "Dr. Lima", "2025-05-15", "09:00")
		require.NoError(t, b.CreateAppointment(ctx, early))
		other := sampleAppointment("Ana", "Dra. Souza", "2025-05-14", "16:00")
		require.NoError(t, b.CreateAppointment(ctx, other))

		list, err = b.ListAppointments(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []int64{other.ID, early.ID, late.ID}, []int64{list[0].ID, list[1].ID, list[2].ID})

		got, err := b.GetAppointment(ctx, late.ID)
		require.NoError(t, err)
		assert.Equal(t, "2025-05-15", got.Date)
		assert.Equal(t, "14:30", got.Time)
		require.NotNil(t, got.Notes)
		assert.Equal(t, "Primeira consulta", *got.Notes)

		got, err = b.GetAppointment(ctx, early.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Notes)

		_, err = b.GetAppointment(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)

		byPatient, err := b.AppointmentsByPatient(ctx, "Ana")
		require.NoError(t, err)
		assert.Len(t, byPatient, 2)
		byDoctor, err := b.AppointmentsByDoctor(ctx, "Dr. Lima")
		require.NoError(t, err)
		assert.Len(t, byDoctor, 2)
		none, err := b.AppointmentsByDoctor(ctx, "Dr. Ninguém")
		require.NoError(t, err)
		assert.Empty(t, none)

		taken, err := b.SlotTaken(ctx, "2025-05-15", "14:30", 0)
		require.NoError(t, err)
		assert.True(t, taken)
		taken, err = b.SlotTaken(ctx, "2025-05-15", "14:30", late.ID)
		require.NoError(t, err)
		assert.False(t, taken, "own slot is not a conflict")
		taken, err = b.SlotTaken(ctx, "2025-05-16", "14:30", 0)
		require.NoError(t, err)
		assert.False(t, taken)

		clash := sampleAppointment("Carla", "Dra. Souza", "2025-05-15", "14:30")
		assert.ErrorIs(t, b.CreateAppointment(ctx, clash), ErrSlotTaken)
	})

	t.Run("update and delete", func(t *testing.T) {
		b := open(t)
		ctx := context.Background()

		a := sampleAppointment("Ana", "Dr. Lima", "2025-05-15", "14:30")
		require.NoError(t, b.CreateAppointment(ctx, a))
		c := sampleAppointment("Bruno", "Dr. Lima", "2025-05-15", "15:00")
		require.NoError(t, b.CreateAppointment(ctx, c))

		a.Time = "16:00"
		a.Notes = strPtr("Remarcada")
		require.NoError(t, b.UpdateAppointment(ctx, a))

		got, err := b.GetAppointment(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "16:00", got.Time)
		assert.Equal(t, "Remarcada", *got.Notes)

		a.Time = "15:00"
		assert.ErrorIs(t, b.UpdateAppointment(ctx, a), ErrSlotTaken)

		missing := sampleAppointment("X", "Y", "2025-06-01", "10:00")
		missing.ID = 9999
		assert.ErrorIs(t, b.UpdateAppointment(ctx, missing), ErrNotFound)

		require.NoError(t, b.DeleteAppointment(ctx, a.ID))
		_, err = b.GetAppointment(ctx, a.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, b.DeleteAppointment(ctx, a.ID), ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		b := open(t)
		assert.NoError(t, b.Ping(context.Background()))
	})
}

func TestSQLiteBackend(t *testing.T) {
	runBackendSuite(t, func(t *testing.T) Backend { return newTestSQLite(t) })
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate())
}

func TestDialectOf(t *testing.T) {
	tests := []struct {
		url     string
		want    Dialect
		wantErr bool
	}{
		{"postgres://u:p@localhost:5432/db", DialectPostgres, false},
		{"postgresql://localhost/db", DialectPostgres, false},
		{"sqlite://scheduling.db", DialectSQLite, false},
		{"sqlite3:///tmp/x.db", DialectSQLite, false},
		{"file:test?mode=memory", DialectSQLite, false},
		{"scheduling.db", DialectSQLite, false},
		{"mysql://localhost/db", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := DialectOf(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db?sslmode=disable", pgx5URL("postgres://u:p@h:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://h/db", pgx5URL("postgresql://h/db"))
}
