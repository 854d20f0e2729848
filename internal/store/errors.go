package store

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store errors.
var (
	ErrNotFound   = errors.New("not found")
	ErrSelfFound  = errors.New("finder is the item owner")
	ErrNoAdmin    = errors.New("no administrator account")
	ErrEmailTaken = errors.New("email already registered")
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
