package core

import (
	"context"
	"database/sql"
)

// Row is a single result row keyed by column name.
type Row map[string]interface{}

type (
	// DBExecutor runs parameterized statements against the database or an open transaction.
	DBExecutor interface {
		// QueryAll returns every matching row; never nil.
		QueryAll(ctx context.Context, query string, args ...interface{}) ([]Row, error)
		// QueryOne returns the first matching row or nil.
		QueryOne(ctx context.Context, query string, args ...interface{}) (Row, error)
		// Select scans all rows into dest, a pointer to a slice of structs.
		Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		// Get scans the first row into dest; returns sql.ErrNoRows when there is none.
		Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		// Run executes a mutating statement.
		Run(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	}

	// DB is a DBExecutor that can group statements into one atomic unit.
	DB interface {
		DBExecutor

		// WithinTx runs fn inside a transaction; it commits when fn returns nil and rolls back otherwise.
		WithinTx(ctx context.Context, fn func(tx DBExecutor) error) error
	}
)
