package repository

import (
	"context"
	"os"
	"testing"

	"portfolio-be/pkg/database"

	"github.com/stretchr/testify/require"
)

// Runs against a real PostgreSQL when TEST_DATABASE_URL is set. The visits
// table is truncated before each case.
func TestPostgresVisitRepository(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))

	runVisitRepositorySuite(t, func(t *testing.T) VisitRepository {
		_, err := db.Pool.Exec(ctx, `TRUNCATE visits RESTART IDENTITY`)
		require.NoError(t, err)
		return &visitRepository{db: db}
	})
}
