package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store errors shared by every adapter. Callers match them with errors.Is.
var (
	// ErrStoreUnavailable is transient: the store did not answer in time or
	// is locked or closed. Registration falls back to the offline path on it;
	// every other operation surfaces it as retryable.
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrDuplicate        = errors.New("record already exists")
	ErrNotFound         = errors.New("record not found")
)

// Classify maps a driver error onto the store error taxonomy.
// PRE: none
// POST: Returns nil for nil, a wrapped sentinel when recognised, err otherwise
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Join(ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, sql.ErrConnDone) {
		return errors.Join(ErrStoreUnavailable, err)
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return errors.Join(ErrDuplicate, err)
		}
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN:
			return errors.Join(ErrStoreUnavailable, err)
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint"):
		return errors.Join(ErrDuplicate, err)
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "SQLITE_BUSY"):
		return errors.Join(ErrStoreUnavailable, err)
	}
	return err
}

// IsUnavailable reports whether err is a transient store failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
