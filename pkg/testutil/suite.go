package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/safetag/safetag-backend/pkg/database"
	"github.com/safetag/safetag-backend/pkg/logger"
)

// shared is the one container every integration test in a binary reuses
var shared struct {
	once      sync.Once
	container *PostgresContainer
	err       error
}

func sharedPostgres(ctx context.Context) (*PostgresContainer, error) {
	shared.once.Do(func() {
		shared.container, shared.err = StartPostgres(ctx, DefaultPostgresOptions())
	})
	return shared.container, shared.err
}

// MigrateFunc applies a service's schema to a fresh database
type MigrateFunc func(ctx context.Context, db *database.DB) error

// IntegrationSuite holds a migrated connection to the shared container
type IntegrationSuite struct {
	Container *PostgresContainer
	DB        *database.DB
}

// NewIntegrationSuite starts or reuses the shared container, connects and
// runs migrate.
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    suite, err = testutil.NewIntegrationSuite(ctx, repository.Migrate)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    suite.Cleanup()
//	    testutil.TerminateContainer(ctx)
//	    os.Exit(code)
//	}
func NewIntegrationSuite(ctx context.Context, migrate MigrateFunc) (*IntegrationSuite, error) {
	c, err := sharedPostgres(ctx)
	if err != nil {
		return nil, err
	}

	db, err := c.Open(ctx, logger.Nop())
	if err != nil {
		return nil, err
	}
	if migrate != nil {
		if err := migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate test database: %w", err)
		}
	}
	return &IntegrationSuite{Container: c, DB: db}, nil
}

// Truncate empties tables now and again when t finishes
func (s *IntegrationSuite) Truncate(t *testing.T, tables ...string) {
	t.Helper()

	stmt := fmt.Sprintf("TRUNCATE %s RESTART IDENTITY", strings.Join(tables, ", "))
	if _, err := s.DB.ExecContext(context.Background(), stmt); err != nil {
		t.Fatalf("truncate %v: %v", tables, err)
	}
	t.Cleanup(func() {
		if _, err := s.DB.ExecContext(context.Background(), stmt); err != nil {
			t.Logf("truncate %v on cleanup: %v", tables, err)
		}
	})
}

// Cleanup closes the suite's connection; the container outlives it
func (s *IntegrationSuite) Cleanup() error {
	return s.DB.Close()
}

// TerminateContainer stops the shared container. Call it once from TestMain.
func TerminateContainer(ctx context.Context) {
	if shared.container != nil {
		_ = shared.container.Terminate(ctx)
	}
}

// GetEnvOrDefault returns the environment variable or def
func GetEnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
