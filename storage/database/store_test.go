package database_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/storage/database"
	testutil "github.com/tamkeen/tamkeen/tests"
)

const insertProfile = `
	INSERT INTO profiles (id, email, password_hash, full_name, role, created_at, updated_at)
	VALUES (?, ?, 'x', ?, 'teacher', ?, ?)`

func addProfile(t *testing.T, exec core.DBExecutor, id, email string) {
	t.Helper()
	now := time.Now().UTC()
	if _, err := exec.Run(context.Background(), insertProfile, id, email, "P "+id, now, now); err != nil {
		t.Fatalf("addProfile() failed: %v", err)
	}
}

func TestStore_queries(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()

	rows, err := db.QueryAll(ctx, `SELECT * FROM profiles WHERE email = ?`, "nobody@test.dz")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Len(t, rows, 0)

	row, err := db.QueryOne(ctx, `SELECT * FROM profiles WHERE email = ?`, "nobody@test.dz")
	require.NoError(t, err)
	assert.Nil(t, row)

	var id string
	err = db.Get(ctx, &id, `SELECT id FROM profiles WHERE email = ?`, "nobody@test.dz")
	assert.Equal(t, sql.ErrNoRows, err)

	addProfile(t, db, "p1", "one@test.dz")
	addProfile(t, db, "p2", "two@test.dz")

	rows, err = db.QueryAll(ctx, `SELECT id, email FROM profiles ORDER BY id`)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, core.Row{"id": "p1", "email": "one@test.dz"}, rows[0])

	row, err = db.QueryOne(ctx, `SELECT email FROM profiles WHERE id = ?`, "p2")
	require.NoError(t, err)
	assert.Equal(t, "two@test.dz", row["email"])

	var emails []string
	require.NoError(t, db.Select(ctx, &emails, `SELECT email FROM profiles ORDER BY email`))
	assert.Equal(t, []string{"one@test.dz", "two@test.dz"}, emails)
}

func TestStore_uninitialized(t *testing.T) {
	ctx := context.Background()
	var nilStore *database.Store

	db, err := database.Open(ctx, "", testutil.NewLogger())
	require.NoError(t, err)
	require.NoError(t, db.Close(ctx))

	for name, store := range map[string]*database.Store{"nil": nilStore, "closed": db} {
		t.Run(name, func(t *testing.T) {
			_, err := store.QueryAll(ctx, `SELECT 1`)
			assert.Equal(t, database.ErrUninitialized, err)
			_, err = store.QueryOne(ctx, `SELECT 1`)
			assert.Equal(t, database.ErrUninitialized, err)
			_, err = store.Run(ctx, `SELECT 1`)
			assert.Equal(t, database.ErrUninitialized, err)
			err = store.WithinTx(ctx, func(core.DBExecutor) error { return nil })
			assert.Equal(t, database.ErrUninitialized, err)
			assert.Equal(t, database.ErrUninitialized, store.Close(ctx))
		})
	}
}

func TestStore_WithinTx(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := db.WithinTx(ctx, func(tx core.DBExecutor) error {
		addProfile(t, tx, "p1", "one@test.dz")
		return errBoom
	})
	assert.Equal(t, errBoom, err)

	var count int
	require.NoError(t, db.Get(ctx, &count, `SELECT COUNT(*) FROM profiles`))
	assert.Equal(t, 0, count, "rolled back insert is visible")

	err = db.WithinTx(ctx, func(tx core.DBExecutor) error {
		addProfile(t, tx, "p1", "one@test.dz")
		addProfile(t, tx, "p2", "two@test.dz")
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, db.Get(ctx, &count, `SELECT COUNT(*) FROM profiles`))
	assert.Equal(t, 2, count)
}

func TestStore_constraintErrors(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	addProfile(t, db, "p1", "one@test.dz")

	_, err := db.Run(ctx, insertProfile, "p2", "one@test.dz", "dup", now, now)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err), err)
	assert.False(t, database.IsForeignKeyViolation(err))

	_, err = db.Run(ctx, `
		INSERT INTO daily_journals (id, teacher_id, date, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"j1", "ghost", "2024-09-15", now, now)
	require.Error(t, err)
	assert.True(t, database.IsForeignKeyViolation(err), err)
	assert.False(t, database.IsUniqueViolation(err))

	assert.False(t, database.IsUniqueViolation(nil))
	assert.False(t, database.IsUniqueViolation(errors.New("UNIQUE constraint failed")))
}

func TestStore_snapshot(t *testing.T) {
	ctx := context.Background()
	lgr := testutil.NewLogger()
	path := filepath.Join(t.TempDir(), "data", "tamkeen.db")

	db, err := database.Open(ctx, path, lgr)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	require.NoError(t, database.Migrate(ctx, db, lgr))
	addProfile(t, db, "p1", "one@test.dz")
	_, err = db.Run(ctx, `
		INSERT INTO sync_queue (table_name, record_id, operation, payload, created_at)
		VALUES ('profiles', 'p1', 'INSERT', '{}', ?)`, time.Now().UTC())
	require.NoError(t, err)
	_, err = db.Run(ctx, `DELETE FROM sync_queue`)
	require.NoError(t, err)

	// every mutation is already on disk, before Close
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary snapshot left behind")
	require.NoError(t, db.Close(ctx))

	db, err = database.Open(ctx, path, lgr)
	require.NoError(t, err)
	defer func() { _ = db.Close(ctx) }()

	var email string
	require.NoError(t, db.Get(ctx, &email, `SELECT email FROM profiles WHERE id = ?`, "p1"))
	assert.Equal(t, "one@test.dz", email)

	// foreign keys are enforced after a reload
	_, err = db.Run(ctx, `
		INSERT INTO daily_journals (id, teacher_id, date, created_at, updated_at) VALUES ('j1', 'ghost', '2024-09-15', ?, ?)`,
		time.Now().UTC(), time.Now().UTC())
	assert.True(t, database.IsForeignKeyViolation(err), err)

	// indexes and autoincrement sequences survive
	var indexes int
	require.NoError(t, db.Get(ctx, &indexes, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name LIKE 'idx_%'`))
	assert.Equal(t, 9, indexes)

	res, err := db.Run(ctx, `
		INSERT INTO sync_queue (table_name, record_id, operation, payload, created_at)
		VALUES ('profiles', 'p1', 'UPDATE', '{}', ?)`, time.Now().UTC())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(2), id, "sync ids were reused")
}

func TestOpen_snapshotFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		content []byte
		wantErr error
	}{
		{name: "empty file", content: []byte{}},
		{name: "short file", content: []byte("SQLite"), wantErr: database.ErrInvalidSnapshot},
		{name: "not a database", content: []byte("this is definitely not sqlite"), wantErr: database.ErrInvalidSnapshot},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".db")
			require.NoError(t, os.WriteFile(path, tt.content, 0o600), i)

			db, err := database.Open(ctx, path, testutil.NewLogger())
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			require.NoError(t, db.Close(ctx))
		})
	}
}
