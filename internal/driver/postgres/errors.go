package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sqldeck/sqldeck/internal/errs"
)

// mapError converts a pgx error into an *errs.Error using the SQLSTATE
// class. Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
func mapError(err error, msg string) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code),
			fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifySQLState maps a SQLSTATE code onto an error kind by its class
// (first two characters).
func classifySQLState(code string) errs.ErrKind {
	if len(code) < 2 {
		return errs.ErrKindUnknown
	}
	switch code[:2] {
	case "08": // connection exception
		return errs.ErrKindConnectionFailed
	case "28": // invalid authorization
		return errs.ErrKindPermissionDenied
	case "42": // syntax error or access rule violation
		if code == "42501" {
			return errs.ErrKindPermissionDenied
		}
		return errs.ErrKindQueryFailed
	case "3D", "3F": // invalid catalog / schema name
		return errs.ErrKindInvalidInput
	case "57": // operator intervention (incl. query_canceled)
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
