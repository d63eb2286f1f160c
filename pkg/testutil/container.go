// Package testutil provides testing utilities for the SafeTag backend:
// a PostgreSQL testcontainer, sqlmock wrappers, an in-memory event
// publisher and HTTP request helpers.
package testutil

import (
	"context"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/safetag/safetag-backend/pkg/database"
	"github.com/safetag/safetag-backend/pkg/logger"
)

const (
	defaultImage   = "postgres:16-alpine"
	startupTimeout = time.Minute
)

// PostgresContainer is a throwaway PostgreSQL server and its DSN
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresOptions names the database and credentials the container is
// created with
type PostgresOptions struct {
	Image    string
	Database string
	Username string
	Password string
}

// DefaultPostgresOptions reads the image from SAFETAG_TEST_PG_IMAGE so CI can
// pin a mirror
func DefaultPostgresOptions() PostgresOptions {
	return PostgresOptions{
		Image:    GetEnvOrDefault("SAFETAG_TEST_PG_IMAGE", defaultImage),
		Database: "safetag_test",
		Username: "safetag",
		Password: "safetag",
	}
}

func (o PostgresOptions) withDefaults() PostgresOptions {
	d := DefaultPostgresOptions()
	if o.Image == "" {
		o.Image = d.Image
	}
	if o.Database == "" {
		o.Database = d.Database
	}
	if o.Username == "" {
		o.Username = d.Username
	}
	if o.Password == "" {
		o.Password = d.Password
	}
	return o
}

// StartPostgres runs a container and blocks until Postgres has finished its
// init restart and accepts connections
func StartPostgres(ctx context.Context, opts PostgresOptions) (*PostgresContainer, error) {
	opts = opts.withDefaults()

	c, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(opts.Image),
		postgres.WithDatabase(opts.Database),
		postgres.WithUsername(opts.Username),
		postgres.WithPassword(opts.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("postgres container dsn: %w", err)
	}
	return &PostgresContainer{PostgresContainer: c, DSN: dsn}, nil
}

// Open connects a database.DB to the container
func (c *PostgresContainer) Open(ctx context.Context, log *logger.Logger) (*database.DB, error) {
	return database.Open(ctx, c.DSN, database.Pool{MaxOpen: 5}, log)
}
