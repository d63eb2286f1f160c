// Package database opens the service's PostgreSQL pool and runs
// transactional work against it.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/safetag/safetag-backend/pkg/config"
	"github.com/safetag/safetag-backend/pkg/logger"
)

const (
	driverName    = "postgres"
	healthTimeout = time.Second
)

// Pool sizes the connection pool. Zero values keep database/sql defaults.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

func (p Pool) apply(db *sqlx.DB) {
	if p.MaxOpen > 0 {
		db.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle > 0 {
		db.SetMaxIdleConns(p.MaxIdle)
	}
	if p.MaxLifetime > 0 {
		db.SetConnMaxLifetime(p.MaxLifetime)
	}
}

// DB is a sqlx pool that logs rollback failures
type DB struct {
	*sqlx.DB
	log *logger.Logger
}

// New connects using the service's database settings
func New(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	return Open(context.Background(), cfg.DSN(), Pool{
		MaxOpen:     cfg.MaxOpenConns,
		MaxIdle:     cfg.MaxIdleConns,
		MaxLifetime: cfg.ConnMaxLifetime,
	}, log)
}

// NewWithDSN connects to dsn with default pool settings
func NewWithDSN(dsn string, log *logger.Logger) (*DB, error) {
	return Open(context.Background(), dsn, Pool{}, log)
}

// Open connects to dsn, sizes the pool and verifies the connection
func Open(ctx context.Context, dsn string, pool Pool, log *logger.Logger) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	pool.apply(db)
	return Wrap(db, log), nil
}

// Wrap adopts an existing connection, such as a sqlmock-backed one in tests
func Wrap(db *sqlx.DB, log *logger.Logger) *DB {
	return &DB{DB: db, log: log.WithComponent("database")}
}

// Ping checks the database connection
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// HealthStatus is the database section of the health endpoint
type HealthStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	OpenConns int    `json:"openConnections"`
	InUse     int    `json:"inUse"`
	Idle      int    `json:"idle"`
}

// Health pings with a short deadline and reports pool usage
func (db *DB) Health(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	stats := db.Stats()
	h := HealthStatus{
		Status:    "up",
		OpenConns: stats.OpenConnections,
		InUse:     stats.InUse,
		Idle:      stats.Idle,
	}
	if err := db.PingContext(ctx); err != nil {
		h.Status = "down"
		h.Error = err.Error()
	}
	return h
}

// Transaction runs fn in a transaction. It commits when fn returns nil and
// rolls back on error or panic; a panic is re-raised after the rollback.
func (db *DB) Transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			db.rollback(tx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		db.rollback(tx)
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (db *DB) rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil {
		db.log.WithError(err).Error().Msg("rollback failed")
	}
}
