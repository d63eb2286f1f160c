package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"

	apperrors "github.com/safetag/safetag-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *apperrors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return apperrors.Conflict("a record with these values already exists")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return apperrors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *apperrors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "apartment_not_blank"):
		return apperrors.Validation(map[string]string{
			"apartment": "must not be blank",
		})

	case strings.Contains(constraint, "document_type_valid"):
		return apperrors.Validation(map[string]string{
			"document_type": "must be one of: pregnant, disabled, resident, unknown",
		})

	default:
		return apperrors.BadRequest("data validation failed: " + constraint)
	}
}
