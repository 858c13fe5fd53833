package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/auth"
	"github.com/tamkeen/tamkeen/core/grading"
	"github.com/tamkeen/tamkeen/core/journal"
	"github.com/tamkeen/tamkeen/core/syncqueue"
	"github.com/tamkeen/tamkeen/services/logger"
	"github.com/tamkeen/tamkeen/storage/database"
	"github.com/tamkeen/tamkeen/storage/database/sqlx"
)

const SecretKey = "test-secret"

// NewConfig returns a memory-only configuration; it never reads the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Tamkeen",
		Build:     "test",
		SecretKey: SecretKey,
		Session:   core.SessionConfig{TTL: time.Hour},
		Server: core.ServerConfig{
			Host:            "127.0.0.1:0",
			ShutdownTimeout: time.Second,
			RequireAuth:     true,
		},
		Admin: core.AdminConfig{
			Email:    "admin@tamkeen.local",
			Password: "admin123",
			FullName: "Administrateur",
		},
		Sync: core.SyncConfig{BatchSize: syncqueue.DefaultBatchSize},
	}
}

func NewLogger() core.Logger {
	lgr := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), NewConfig())
	lgr.Enable(false)
	return lgr
}

// NewValidator returns a validator with every custom tag and translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	journal.InitValidators(validate, translator)
	grading.InitValidators(validate, translator)
	return validate, translator
}

// PrepareDB opens a migrated and seeded memory-only store, closed when t ends.
func PrepareDB(t *testing.T) *database.Store {
	t.Helper()
	ctx := context.Background()
	lgr := NewLogger()

	db, err := database.Open(ctx, "", lgr)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(ctx); err != nil {
			t.Errorf("db.Close(): %v", err)
		}
	})
	if err = database.Migrate(ctx, db, lgr); err != nil {
		t.Fatalf("PrepareDB() migrate: %v", err)
	}
	if err = database.Seed(ctx, db, lgr); err != nil {
		t.Fatalf("PrepareDB() seed: %v", err)
	}
	return db
}

func NewQueue(db core.DB) *syncqueue.Queue {
	return syncqueue.NewQueue(sqlxrepos.NewSyncQueueRepository(db), NewConfig())
}

// MemorySessions is a SessionStore that lives as long as the test.
type MemorySessions struct {
	sess *auth.Session
}

var _ auth.SessionStore = (*MemorySessions)(nil) // interface compliance check

func (m *MemorySessions) SaveSession(sess auth.Session) error {
	m.sess = &sess
	return nil
}

func (m *MemorySessions) LoadSession() (auth.Session, error) {
	if m.sess == nil {
		return auth.Session{}, auth.ErrNoSession
	}
	return *m.sess, nil
}

func (m *MemorySessions) ClearSession() error {
	m.sess = nil
	return nil
}

// NewAuthService wires an auth.Service over db; identity may be nil.
func NewAuthService(db core.DB, sessions auth.SessionStore, identity auth.IdentityVerifier) *auth.Service {
	validate, _ := NewValidator()
	if sessions == nil {
		sessions = new(MemorySessions)
	}
	return auth.NewService(
		db,
		sqlxrepos.NewProfileRepository(db),
		sessions,
		identity,
		NewQueue(db),
		validate,
		NewLogger(),
		NewConfig(),
	)
}

func CreateProfile(t *testing.T, db core.DB, fullName, email, pwd, role string) auth.Profile {
	t.Helper()
	svc := NewAuthService(db, nil, nil)
	prof, err := svc.Create(context.Background(), auth.Registration{
		Email:    email,
		Password: pwd,
		FullName: fullName,
	}, role)
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return prof
}
