package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/pkg/database"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables this service owns when they do not exist
func Migrate(ctx context.Context, db *database.DB) error {
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
}

// AddressRuleRecord is a stored address rule
type AddressRuleRecord struct {
	ID            int64          `db:"id"`
	ApartmentName string         `db:"apartment_name"`
	Patterns      pq.StringArray `db:"patterns"`
	Priority      int            `db:"priority"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// AddressRuleRepository serves the address table from Postgres.
// It satisfies address.Source.
type AddressRuleRepository struct {
	db *database.DB
}

// NewAddressRuleRepository creates a new address rule repository
func NewAddressRuleRepository(db *database.DB) *AddressRuleRepository {
	return &AddressRuleRepository{db: db}
}

// ModTime returns the newest updated_at, or the Unix epoch for an empty table
func (r *AddressRuleRepository) ModTime(ctx context.Context) (time.Time, error) {
	var latest sql.NullTime
	query := `SELECT MAX(updated_at) FROM resident_address_rules`

	if err := r.db.GetContext(ctx, &latest, query); err != nil {
		return time.Time{}, fmt.Errorf("address rules mod time: %w", err)
	}
	if !latest.Valid {
		return time.Unix(0, 0).UTC(), nil
	}
	return latest.Time, nil
}

// Load returns all rules ordered by priority then id
func (r *AddressRuleRepository) Load(ctx context.Context) ([]domain.AddressRule, error) {
	var records []AddressRuleRecord
	query := `
		SELECT id, apartment_name, patterns, priority, updated_at
		FROM resident_address_rules
		ORDER BY priority, id
	`

	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("load address rules: %w", err)
	}

	rules := make([]domain.AddressRule, len(records))
	for i, rec := range records {
		rules[i] = domain.AddressRule{
			ApartmentName: rec.ApartmentName,
			Patterns:      []string(rec.Patterns),
		}
	}
	return rules, nil
}

// Create stores a rule and bumps the table's modification time
func (r *AddressRuleRepository) Create(ctx context.Context, rule domain.AddressRule, priority int) (*AddressRuleRecord, error) {
	rec := AddressRuleRecord{
		ApartmentName: rule.ApartmentName,
		Patterns:      pq.StringArray(rule.Patterns),
		Priority:      priority,
	}
	query := `
		INSERT INTO resident_address_rules (apartment_name, patterns, priority)
		VALUES ($1, $2, $3)
		RETURNING id, updated_at
	`

	row := r.db.QueryRowxContext(ctx, query, rec.ApartmentName, rec.Patterns, rec.Priority)
	if err := row.Scan(&rec.ID, &rec.UpdatedAt); err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, fmt.Errorf("create address rule: %w", err)
	}
	return &rec, nil
}
