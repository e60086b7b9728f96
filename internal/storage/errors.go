package storage

import (
	"errors"
	"strings"
)

// Common storage errors
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate record")
)

// isSQLiteUniqueViolation reports whether err is a sqlite UNIQUE constraint failure.
// modernc.org/sqlite only exposes the extended result code through its message.
func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
