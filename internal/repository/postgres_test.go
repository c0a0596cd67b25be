package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var container *tcpostgres.PostgresContainer
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Skipf("docker not available: %v", r)
			}
		}()
		container, runErr = tcpostgres.Run(ctx, "postgres:15-alpine",
			tcpostgres.WithDatabase("lectures"),
			tcpostgres.WithUsername("indexer"),
			tcpostgres.WithPassword("indexer"),
			tcpostgres.BasicWaitStrategies(),
		)
	}()
	if runErr != nil {
		t.Skipf("postgres container unavailable: %v", runErr)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresJobStore(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	store := NewPostgresJobStore(pool)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migrate should be idempotent")

	runJobStoreContract(t, func(t *testing.T) JobStore {
		_, err := pool.Exec(ctx, "TRUNCATE lecture_jobs")
		require.NoError(t, err)
		return store
	})
}
