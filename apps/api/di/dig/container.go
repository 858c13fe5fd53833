package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/tamkeen/tamkeen/apps/api/echo"
	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/auth"
	"github.com/tamkeen/tamkeen/core/grading"
	"github.com/tamkeen/tamkeen/core/journal"
	"github.com/tamkeen/tamkeen/core/reference"
	"github.com/tamkeen/tamkeen/core/student"
	"github.com/tamkeen/tamkeen/core/syncqueue"
	identitysvc "github.com/tamkeen/tamkeen/services/identity"
	logsvc "github.com/tamkeen/tamkeen/services/logger"
	"github.com/tamkeen/tamkeen/storage/database"
	sqlxrepos "github.com/tamkeen/tamkeen/storage/database/sqlx"
	sessionstore "github.com/tamkeen/tamkeen/storage/session"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type Repositories struct {
	dig.Out
	Profiles  auth.Repository
	Journals  journal.Repository
	Students  student.Repository
	Grades    grading.Repository
	Reference reference.Repository
	SyncQueue syncqueue.Repository
}

type Services struct {
	dig.In
	Auth      *auth.Service
	Journal   *journal.Service
	Student   *student.Service
	Grading   *grading.Service
	Reference *reference.Service
	Queue     *syncqueue.Queue
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

// newDB opens the store, brings its schema up to date and seeds the reference tables.
func newDB(conf *core.Config, loggerParam DBLoggerParam) (*database.Store, core.DB) {
	logger := loggerParam.Logger
	setUp := func() (*database.Store, error) {
		ctx := context.Background()

		db, err := database.Open(ctx, conf.Database.Path, logger)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(ctx, db, logger); err != nil {
			return nil, err
		}
		if err = database.Seed(ctx, db, logger); err != nil {
			return nil, err
		}
		if err = database.RequireTables(ctx, db, database.TableSyncQueue); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newSessionStore(conf *core.Config, logger core.Logger) (*sessionstore.Store, auth.SessionStore) {
	store, err := sessionstore.Open(conf.Session.Path)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening session store: %v", err), err)
	}
	return store, store
}

func newRepositories(db core.DB) Repositories {
	return Repositories{
		Profiles:  sqlxrepos.NewProfileRepository(db),
		Journals:  sqlxrepos.NewJournalRepository(db),
		Students:  sqlxrepos.NewStudentRepository(db),
		Grades:    sqlxrepos.NewGradeRepository(db),
		Reference: sqlxrepos.NewReferenceRepository(db),
		SyncQueue: sqlxrepos.NewSyncQueueRepository(db),
	}
}

func newServer(conf *core.Config, logger core.Logger, translator ut.Translator, svcs Services) *echoapi.Server {
	return echoapi.NewServer(conf, logger, translator, &echoapi.Deps{
		AuthSvc:      svcs.Auth,
		JournalSvc:   svcs.Journal,
		StudentSvc:   svcs.Student,
		GradingSvc:   svcs.Grading,
		ReferenceSvc: svcs.Reference,
		Queue:        svcs.Queue,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newSessionStore))
	must(c.Provide(newRepositories))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(identitysvc.NewGoogleVerifier))
	must(c.Provide(syncqueue.NewQueue))
	must(c.Provide(auth.NewService))
	must(c.Provide(journal.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(grading.NewService))
	must(c.Provide(reference.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
