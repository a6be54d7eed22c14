package database

import (
	stderrors "errors"

	"github.com/lib/pq"
	"github.com/medflow/medflow-supply/pkg/errors"
)

// MapPQError converts a PostgreSQL error into an AppError. It returns nil
// for anything that is not a *pq.Error with a known code.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case "23505": // unique_violation
		return errors.New("CONFLICT", "a record with these values already exists", 409)
	case "23503": // foreign_key_violation
		return errors.BadRequest("referenced record does not exist")
	case "23502": // not_null_violation
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{col: "must not be empty"})
	case "23514": // check_violation
		return errors.BadRequest("data validation failed: " + pqErr.Constraint)
	case "42501": // insufficient_privilege, raised by RLS WITH CHECK
		return errors.Forbidden("row not visible to the current tenant")
	default:
		return nil
	}
}
