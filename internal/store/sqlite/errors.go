package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"modernc.org/sqlite"

	"github.com/pagetrail/pagetrail-server/internal/store"
)

// SQLite result codes, see https://www.sqlite.org/rescode.html.
const (
	codeBusy              = 5
	codeLocked            = 6
	codeConstraint        = 19
	codeConstraintCheck   = 275
	codeConstraintFK      = 787
	codeConstraintPK      = 1555
	codeConstraintUnique  = 2067
	primaryResultCodeMask = 0xff
)

// classify maps driver errors onto store sentinels. Context errors pass
// through unchanged so callers can tell cancellation from failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound.WithCause(err)
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return store.ErrUnavailable.WithCause(err)
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		switch code {
		case codeConstraintUnique, codeConstraintPK:
			return store.ErrAlreadyExists.WithCause(err)
		case codeConstraintFK:
			return store.ErrNotFound.WithMessage("referenced resource not found").WithCause(err)
		case codeConstraintCheck:
			return store.ErrInvalidInput.WithCause(err)
		}
		switch code & primaryResultCodeMask {
		case codeBusy, codeLocked:
			return store.ErrConflict.WithCause(err)
		case codeConstraint:
			return classifyConstraint(err)
		}
		return store.ErrUnavailable.WithCause(err)
	}

	if strings.Contains(err.Error(), "database is closed") {
		return store.ErrUnavailable.WithCause(err)
	}
	return err
}

// classifyConstraint falls back to the error text when only the primary
// result code is available.
func classifyConstraint(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY"):
		return store.ErrAlreadyExists.WithCause(err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return store.ErrNotFound.WithMessage("referenced resource not found").WithCause(err)
	default:
		return store.ErrInvalidInput.WithCause(err)
	}
}
