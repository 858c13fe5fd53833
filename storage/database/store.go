package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/tamkeen/tamkeen/core"
)

// Store is the in-memory SQLite engine backing the application.
// Every committed mutation is written through to the snapshot file at path.
//
// The engine holds a single connection: while a transaction opened by WithinTx
// is running, statements must go through the transaction's executor.
type Store struct {
	db   *sqlx.DB
	path string
	log  core.Logger
}

var _ core.DB = (*Store)(nil) // interface compliance check

// Open creates the in-memory engine and loads the snapshot at path, if any.
// An empty path gives a memory-only store that never touches the disk.
func Open(ctx context.Context, path string, logger core.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// every connection to ":memory:" is its own database: pin exactly one
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err = db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "enabling foreign keys")
	}

	if path != "" {
		if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "creating data directory")
		}
		found, err := hasSnapshot(path)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if found {
			if err = loadSnapshot(ctx, db, path); err != nil {
				_ = db.Close()
				return nil, errors.Wrap(err, "loading snapshot")
			}
			logger.Info("database loaded", map[string]interface{}{"path": path})
		}
	}
	return &Store{db: db, path: path, log: logger}, nil
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return ErrUninitialized
	}
	return nil
}

// Path returns the snapshot file path; empty for memory-only stores.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) QueryAll(ctx context.Context, query string, args ...interface{}) ([]core.Row, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return executor{ext: s.db}.QueryAll(ctx, query, args...)
}

func (s *Store) QueryOne(ctx context.Context, query string, args ...interface{}) (core.Row, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return executor{ext: s.db}.QueryOne(ctx, query, args...)
}

func (s *Store) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if err := s.ready(); err != nil {
		return err
	}
	return executor{ext: s.db}.Select(ctx, dest, query, args...)
}

func (s *Store) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if err := s.ready(); err != nil {
		return err
	}
	return executor{ext: s.db}.Get(ctx, dest, query, args...)
}

// Run executes a mutating statement then snapshots the database before returning.
func (s *Store) Run(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	res, err := executor{ext: s.db}.Run(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if err = s.Persist(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx core.DBExecutor) error) error {
	if err := s.ready(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(executor{ext: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("rolling back transaction", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return s.Persist(ctx)
}

// Persist writes the whole database to the snapshot file.
func (s *Store) Persist(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.path == "" {
		return nil
	}
	if err := writeSnapshot(ctx, s.db, s.path); err != nil {
		return errors.Wrap(err, "persisting database")
	}
	return nil
}

// Close persists the database one last time and releases the engine.
// Any later call on the store fails with ErrUninitialized.
func (s *Store) Close(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	persistErr := s.Persist(ctx)
	closeErr := s.db.Close()
	s.db = nil
	if persistErr != nil {
		return persistErr
	}
	return errors.Wrap(closeErr, "closing database")
}

// executor runs statements on the database or on an open transaction.
type executor struct {
	ext sqlx.ExtContext
}

func (e executor) QueryAll(ctx context.Context, query string, args ...interface{}) ([]core.Row, error) {
	rows, err := e.ext.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying rows")
	}
	defer func() { _ = rows.Close() }()

	result := make([]core.Row, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err = rows.MapScan(row); err != nil {
			return nil, errors.Wrap(err, "scanning row")
		}
		result = append(result, normalizeRow(row))
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating rows")
	}
	return result, nil
}

func (e executor) QueryOne(ctx context.Context, query string, args ...interface{}) (core.Row, error) {
	rows, err := e.ext.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying row")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, errors.Wrap(rows.Err(), "querying row")
	}
	row := make(map[string]interface{})
	if err = rows.MapScan(row); err != nil {
		return nil, errors.Wrap(err, "scanning row")
	}
	return normalizeRow(row), nil
}

func (e executor) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errors.Wrap(sqlx.SelectContext(ctx, e.ext, dest, query, args...), "selecting rows")
}

func (e executor) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, e.ext, dest, query, args...)
	if err == sql.ErrNoRows {
		return err
	}
	return errors.Wrap(err, "getting row")
}

func (e executor) Run(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	res, err := e.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "running statement")
	}
	return res, nil
}

// normalizeRow turns text columns scanned as bytes into strings.
func normalizeRow(row map[string]interface{}) core.Row {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}
