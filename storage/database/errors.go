package database

import (
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrUninitialized   = errors.New("database is not initialized")
	ErrSchemaMissing   = errors.New("database schema is missing")
	ErrInvalidSnapshot = errors.New("file is not a SQLite database")
)

func sqliteCode(err error) int {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return 0
	}
	return sqliteErr.Code()
}

// IsUniqueViolation reports whether err was caused by a UNIQUE or PRIMARY KEY constraint.
func IsUniqueViolation(err error) bool {
	code := sqliteCode(err)
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// IsForeignKeyViolation reports whether err was caused by a missing parent row.
func IsForeignKeyViolation(err error) bool {
	return sqliteCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// IsSchemaMissing reports whether err signals an absent table.
func IsSchemaMissing(err error) bool {
	return errors.Cause(err) == ErrSchemaMissing
}
