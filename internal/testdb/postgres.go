//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/taskhub-api/internal/platform/postgres"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DatabaseURLEnv names an existing database to use instead of starting a
// container, e.g. in CI where a postgres service is already running.
const DatabaseURLEnv = "TASKHUB_TEST_DATABASE_URL"

const (
	postgresImage   = "postgres:16-alpine"
	postgresUser    = "test"
	postgresPass    = "test"
	postgresDB      = "taskhub"
	startupDeadline = 60 * time.Second
)

// Postgres is a migrated test database.
type Postgres struct {
	DB        *sql.DB
	URL       string
	container testcontainers.Container
}

// Start connects to the database named by DatabaseURLEnv, or starts a
// disposable container when it is unset, and applies all migrations.
func Start(ctx context.Context) (*Postgres, error) {
	p := &Postgres{URL: os.Getenv(DatabaseURLEnv)}

	if p.URL == "" {
		if err := p.startContainer(ctx); err != nil {
			_ = p.Close(ctx)
			return nil, err
		}
	}

	db, err := sql.Open("pgx", p.URL)
	if err != nil {
		_ = p.Close(ctx)
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}
	p.DB = db

	if err := db.PingContext(ctx); err != nil {
		_ = p.Close(ctx)
		return nil, fmt.Errorf("failed to ping test database: %w", err)
	}
	if err := postgres.Migrate(ctx, db, postgres.MigrateUp, nil); err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	return p, nil
}

func (p *Postgres) startContainer(ctx context.Context) error {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     postgresUser,
				"POSTGRES_PASSWORD": postgresPass,
				"POSTGRES_DB":       postgresDB,
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(startupDeadline),
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start postgres container: %w", err)
	}
	p.container = container

	host, err := container.Host(ctx)
	if err != nil {
		return fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return fmt.Errorf("failed to get container port: %w", err)
	}

	p.URL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPass, host, port.Port(), postgresDB)
	return nil
}

// Close closes the connection pool and terminates the container, if any.
func (p *Postgres) Close(ctx context.Context) error {
	var firstErr error
	if p.DB != nil {
		firstErr = p.DB.Close()
	}
	if p.container != nil {
		if err := p.container.Terminate(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
