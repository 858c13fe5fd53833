package database

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const sqliteMagic = "SQLite format 3\x00"

// hasSnapshot reports whether path holds a SQLite database file.
// A missing or empty file means there is nothing to load yet.
func hasSnapshot(path string) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "opening snapshot")
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, len(sqliteMagic))
	n, err := io.ReadFull(f, header)
	switch {
	case n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF):
		return false, nil
	case err == io.ErrUnexpectedEOF:
		return false, errors.Wrap(ErrInvalidSnapshot, path)
	case err != nil:
		return false, errors.Wrap(err, "reading snapshot header")
	}
	if string(header) != sqliteMagic {
		return false, errors.Wrap(ErrInvalidSnapshot, path)
	}
	return true, nil
}

type schemaObject struct {
	Type string `db:"type"`
	Name string `db:"name"`
	SQL  string `db:"sql"`
}

// loadSnapshot copies the tables, rows, sequences and indexes of the file at path
// into the (empty) in-memory database.
func loadSnapshot(ctx context.Context, db *sqlx.DB, path string) (err error) {
	// ATTACH and the foreign_keys pragma are not allowed inside a transaction
	if _, err = db.ExecContext(ctx, "ATTACH DATABASE ? AS snapshot", path); err != nil {
		return errors.Wrap(err, "attaching snapshot")
	}
	defer func() {
		if _, detachErr := db.ExecContext(ctx, "DETACH DATABASE snapshot"); detachErr != nil && err == nil {
			err = errors.Wrap(detachErr, "detaching snapshot")
		}
	}()

	if _, err = db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disabling foreign keys")
	}
	defer func() {
		if _, fkErr := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil && err == nil {
			err = errors.Wrap(fkErr, "enabling foreign keys")
		}
	}()

	var objects []schemaObject
	err = db.SelectContext(ctx, &objects, `
		SELECT type, name, sql FROM snapshot.sqlite_master
		WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%'
		ORDER BY CASE type WHEN 'table' THEN 0 WHEN 'index' THEN 1 ELSE 2 END, rowid`)
	if err != nil {
		return errors.Wrap(err, "reading snapshot schema")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var hasSequence bool
	for _, obj := range objects {
		if _, err = tx.ExecContext(ctx, obj.SQL); err != nil {
			return errors.Wrapf(err, "creating %s %s", obj.Type, obj.Name)
		}
		if obj.Type != "table" {
			continue
		}
		q := fmt.Sprintf(`INSERT INTO main.%q SELECT * FROM snapshot.%q`, obj.Name, obj.Name)
		if _, err = tx.ExecContext(ctx, q); err != nil {
			return errors.Wrapf(err, "copying table %s", obj.Name)
		}
	}

	err = tx.GetContext(ctx, &hasSequence,
		`SELECT COUNT(*) > 0 FROM snapshot.sqlite_master WHERE name = 'sqlite_sequence'`)
	if err != nil {
		return errors.Wrap(err, "checking sequences")
	}
	if hasSequence {
		if _, err = tx.ExecContext(ctx, `DELETE FROM main.sqlite_sequence`); err != nil {
			return errors.Wrap(err, "resetting sequences")
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO main.sqlite_sequence SELECT * FROM snapshot.sqlite_sequence`); err != nil {
			return errors.Wrap(err, "copying sequences")
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing snapshot")
	}
	return nil
}

// writeSnapshot exports the whole database to path.tmp then renames it over path.
func writeSnapshot(ctx context.Context, db *sqlx.DB, path string) error {
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing stale snapshot")
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", tmp); err != nil {
		return errors.Wrap(err, "exporting database")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "replacing snapshot")
	}
	return nil
}
