package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/iota-uz/configitems/modules/configitems/domain/configitem"
	"github.com/iota-uz/configitems/modules/configitems/domain/module"
)

// mapDBError translates driver and persistence errors into service errors. Errors that
// already carry a kind pass through unchanged.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}

	switch {
	case errors.Is(err, configitem.ErrLayoutRestriction):
		return newServiceError(ErrPolicyViolation, "CI_LAYOUT_RESTRICTION", "the storage layout cannot hold this version", err)
	case errors.Is(err, module.ErrNotFound):
		return newServiceError(ErrMissingDependency, "CI_MODULE_MISSING", "module is missing in the destination", err)
	case errors.Is(err, sql.ErrNoRows):
		return newServiceError(ErrNotFound, "CI_NOT_FOUND", "not found", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapConstraintError(pgErr.Code, pgErr.ConstraintName, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return mapConstraintError(string(pqErr.Code), pqErr.Constraint, err)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return mapConstraintError("23505", "", err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return mapConstraintError("23503", "", err)
		}
	}
	return err
}

func mapConstraintError(code, constraint string, err error) error {
	switch code {
	case "23505": // unique_violation
		recordWriteConflict("unique")
		switch constraint {
		case "configuration_items_live_key":
			return newServiceError(ErrConflict, "CI_LIVE_CONFLICT", "another version of the item is already Live", err)
		case "configuration_items_last_key":
			return newServiceError(ErrConflict, "CI_LAST_CONFLICT", "another version of the item is already the last one", err)
		case "modules_name_key":
			return newServiceError(ErrConflict, "CI_MODULE_CONFLICT", "module already exists", err)
		default:
			return newServiceError(ErrConflict, "CI_CONFLICT", "unique constraint violated", err)
		}
	case "23503": // foreign_key_violation
		recordWriteConflict("foreign_key")
		return newServiceError(ErrConflict, "CI_REFERENCE_CONFLICT", "foreign key violation", err)
	case "23514": // check_violation
		return newServiceError(ErrValidation, "CI_CHECK_FAILED", fmt.Sprintf("check constraint %q violated", constraint), err)
	default:
		return err
	}
}
