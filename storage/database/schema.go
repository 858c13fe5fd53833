package database

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"

	"github.com/tamkeen/tamkeen/core"
)

// Table names
const (
	TableProfiles        = "profiles"
	TableDailyJournals   = "daily_journals"
	TableSessions        = "sessions"
	TableStudents        = "students"
	TableGrades          = "grades"
	TableSyncQueue       = "sync_queue"
	TableWilayas         = "wilayas"
	TableEducationLevels = "education_levels"
	TableEducationYears  = "education_years"
	TableStreams         = "streams"
	TableSubjects        = "subjects"
	TableCurriculum      = "curriculum"
	TableCompetencies    = "competencies"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name     TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL DEFAULT 'teacher' CHECK (role IN ('admin', 'teacher')),
		metadata      TEXT NOT NULL DEFAULT '{}',
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL,
		last_login    DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS daily_journals (
		id         TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
		date       TEXT NOT NULL,
		notes      TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (teacher_id, date)
	)`,
	// columns added after the first release are listed in sessionColumns
	`CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		journal_id    TEXT NOT NULL REFERENCES daily_journals (id) ON DELETE CASCADE,
		subject       TEXT,
		activity_type TEXT,
		title         TEXT,
		content       TEXT,
		start_time    TEXT,
		end_time      TEXT,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id                  TEXT PRIMARY KEY,
		teacher_id          TEXT NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
		first_name          TEXT NOT NULL,
		last_name           TEXT NOT NULL,
		registration_number TEXT,
		birth_date          TEXT,
		gender              TEXT,
		level               TEXT,
		grade               TEXT,
		group_name          TEXT,
		created_at          DATETIME NOT NULL,
		updated_at          DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS grades (
		id         TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students (id) ON DELETE CASCADE,
		teacher_id TEXT NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
		subject    TEXT NOT NULL,
		term       INTEGER NOT NULL CHECK (term BETWEEN 1 AND 3),
		eval1      REAL,
		eval2      REAL,
		eval3      REAL,
		exam       REAL,
		average    REAL,
		notes      TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (student_id, subject, term)
	)`,
	`CREATE TABLE IF NOT EXISTS sync_queue (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name TEXT NOT NULL,
		record_id  TEXT NOT NULL,
		operation  TEXT NOT NULL CHECK (operation IN ('INSERT', 'UPDATE', 'DELETE')),
		payload    TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wilayas (
		id      INTEGER PRIMARY KEY,
		code    TEXT NOT NULL UNIQUE,
		name_ar TEXT NOT NULL,
		name_fr TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS education_levels (
		id         INTEGER PRIMARY KEY,
		code       TEXT NOT NULL UNIQUE,
		name_ar    TEXT NOT NULL,
		name_fr    TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS education_years (
		id          INTEGER PRIMARY KEY,
		level_id    INTEGER NOT NULL REFERENCES education_levels (id) ON DELETE CASCADE,
		code        TEXT NOT NULL UNIQUE,
		name_ar     TEXT NOT NULL,
		name_fr     TEXT NOT NULL,
		year_number INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS streams (
		id      INTEGER PRIMARY KEY,
		year_id INTEGER NOT NULL REFERENCES education_years (id) ON DELETE CASCADE,
		code    TEXT NOT NULL,
		name_ar TEXT NOT NULL,
		name_fr TEXT NOT NULL,
		UNIQUE (year_id, code)
	)`,
	`CREATE TABLE IF NOT EXISTS subjects (
		id       INTEGER PRIMARY KEY,
		level_id INTEGER NOT NULL REFERENCES education_levels (id) ON DELETE CASCADE,
		code     TEXT NOT NULL,
		name_ar  TEXT NOT NULL,
		name_fr  TEXT NOT NULL,
		UNIQUE (level_id, code)
	)`,
	`CREATE TABLE IF NOT EXISTS curriculum (
		id              INTEGER PRIMARY KEY,
		year_id         INTEGER NOT NULL REFERENCES education_years (id) ON DELETE CASCADE,
		stream_id       INTEGER REFERENCES streams (id) ON DELETE CASCADE,
		subject_id      INTEGER NOT NULL REFERENCES subjects (id) ON DELETE CASCADE,
		section_number  INTEGER NOT NULL,
		section_title   TEXT NOT NULL DEFAULT '',
		unit_number     INTEGER NOT NULL,
		unit_title      TEXT NOT NULL DEFAULT '',
		session_number  INTEGER NOT NULL,
		session_title   TEXT NOT NULL DEFAULT '',
		competency_code TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS competencies (
		id          INTEGER PRIMARY KEY,
		subject_id  INTEGER NOT NULL REFERENCES subjects (id) ON DELETE CASCADE,
		year_id     INTEGER NOT NULL REFERENCES education_years (id) ON DELETE CASCADE,
		code        TEXT NOT NULL,
		description TEXT NOT NULL,
		UNIQUE (subject_id, year_id, code)
	)`,
}

type column struct {
	name string
	ddl  string
}

// sessionColumns is the full, ordered set of columns the sessions table must carry.
var sessionColumns = []column{
	{"id", "TEXT PRIMARY KEY"},
	{"journal_id", "TEXT NOT NULL"},
	{"subject", "TEXT"},
	{"activity_type", "TEXT"},
	{"title", "TEXT"},
	{"content", "TEXT"},
	{"objectives", "TEXT"},
	{"notes", "TEXT"},
	{"resources", "TEXT"},
	{"evaluation", "TEXT"},
	{"start_time", "TEXT"},
	{"end_time", "TEXT"},
	{"category", "TEXT NOT NULL DEFAULT 'lesson'"},
	{"section_number", "INTEGER"},
	{"unit_number", "INTEGER"},
	{"session_number", "INTEGER"},
	{"curriculum_id", "INTEGER"},
	{"competency", "TEXT"},
	{"created_at", "DATETIME NOT NULL"},
	{"updated_at", "DATETIME NOT NULL"},
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_daily_journals_teacher ON daily_journals (teacher_id)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_journals_date ON daily_journals (date)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_journal ON sessions (journal_id)`,
	`CREATE INDEX IF NOT EXISTS idx_students_teacher ON students (teacher_id)`,
	`CREATE INDEX IF NOT EXISTS idx_grades_student ON grades (student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_grades_teacher_subject_term ON grades (teacher_id, subject, term)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_queue_created ON sync_queue (created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_curriculum_year_stream ON curriculum (year_id, stream_id)`,
	`CREATE INDEX IF NOT EXISTS idx_competencies_subject ON competencies (subject_id)`,
}

// Migrate brings the database to the current schema. It is safe to run on every startup.
func Migrate(ctx context.Context, db core.DB, logger core.Logger) error {
	return db.WithinTx(ctx, func(tx core.DBExecutor) error {
		for _, q := range tables {
			if _, err := tx.Run(ctx, q); err != nil {
				return errors.Wrap(err, "creating tables")
			}
		}

		if err := addMissingColumns(ctx, tx, TableSessions, sessionColumns); err != nil {
			// a column that could not be added surfaces when it is first written
			logger.Error("migrating session columns", err)
		}

		for _, q := range indexes {
			if _, err := tx.Run(ctx, q); err != nil {
				return errors.Wrap(err, "creating indexes")
			}
		}
		return nil
	})
}

// Columns returns the names of the live columns of table, in declaration order.
func Columns(ctx context.Context, exec core.DBExecutor, table string) ([]string, error) {
	var names []string
	err := exec.Select(ctx, &names, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s columns", table)
	}
	return names, nil
}

// addMissingColumns adds every expected column absent from table. Existing columns are never altered.
func addMissingColumns(ctx context.Context, exec core.DBExecutor, table string, expected []column) error {
	live, err := Columns(ctx, exec, table)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(expected))
	ddl := make(map[string]string, len(expected))
	for _, col := range expected {
		names = append(names, col.name)
		ddl[col.name] = col.ddl
	}

	for _, name := range strmangle.SetComplement(names, live) {
		q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, name, ddl[name])
		if _, err = exec.Run(ctx, q); err != nil {
			return errors.Wrapf(err, "adding column %s.%s", table, name)
		}
	}
	return nil
}

// HasTable reports whether the named table exists.
func HasTable(ctx context.Context, exec core.DBExecutor, name string) (bool, error) {
	var count int
	err := exec.Get(ctx, &count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	if err != nil {
		return false, errors.Wrap(err, "probing table")
	}
	return count > 0, nil
}

// RequireTables fails with ErrSchemaMissing when any of the named tables is absent.
func RequireTables(ctx context.Context, exec core.DBExecutor, names ...string) error {
	for _, name := range names {
		ok, err := HasTable(ctx, exec, name)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(ErrSchemaMissing, "table %s", name)
		}
	}
	return nil
}
