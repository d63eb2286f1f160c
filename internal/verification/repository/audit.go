package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/pkg/database"
	apperrors "github.com/safetag/safetag-backend/pkg/errors"
)

// DecisionAuditRepository records issued decisions
type DecisionAuditRepository struct {
	db *database.DB
}

// NewDecisionAuditRepository creates a new audit repository
func NewDecisionAuditRepository(db *database.DB) *DecisionAuditRepository {
	return &DecisionAuditRepository{db: db}
}

type auditRow struct {
	domain.DecisionAuditEntry
	Trace pq.StringArray `db:"trace"`
}

// Create inserts an audit entry
func (r *DecisionAuditRepository) Create(ctx context.Context, e *domain.DecisionAuditEntry) error {
	query := `
		INSERT INTO sticker_decision_audit (
			id, document_type, valid_days, resolved_date, source_path,
			matched_apartment, declared_type, declared_type_confirmed,
			trace, channel, text_length, today, subject, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.DocumentType, e.ValidDays, e.ResolvedDate, e.SourcePath,
		e.MatchedApartment, e.DeclaredType, e.DeclaredTypeConfirmed,
		pq.StringArray(e.Trace), e.Channel, e.TextLength, e.Today, e.Subject, e.CreatedAt,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("insert decision audit: %w", err)
	}
	return nil
}

// GetByID returns the audit entry for a decision
func (r *DecisionAuditRepository) GetByID(ctx context.Context, id string) (*domain.DecisionAuditEntry, error) {
	var row auditRow
	query := `
		SELECT id, document_type, valid_days, resolved_date, source_path,
			matched_apartment, declared_type, declared_type_confirmed,
			trace, channel, text_length, today, subject, created_at
		FROM sticker_decision_audit
		WHERE id = $1
	`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("decision")
		}
		return nil, fmt.Errorf("get decision audit: %w", err)
	}

	entry := row.DecisionAuditEntry
	entry.Trace = []string(row.Trace)
	return &entry, nil
}
