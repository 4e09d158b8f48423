package store

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to DATABASE_URL and empties the tables.
// Skipped unless DATABASE_URL points at PostgreSQL.
func newTestPostgres(t *testing.T) *Store {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if d, err := DialectOf(dbURL); err != nil || d != DialectPostgres {
		t.Skip("DATABASE_URL does not point at postgres")
	}

	ctx := context.Background()
	s, err := NewPostgres(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Migrate())
	_, err = s.pool.Exec(ctx, `TRUNCATE appointments, users RESTART IDENTITY`)
	require.NoError(t, err)
	return s
}

func TestPostgresBackend(t *testing.T) {
	runBackendSuite(t, func(t *testing.T) Backend { return newTestPostgres(t) })
}
