package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/auth"
	"github.com/tamkeen/tamkeen/core/grading"
	"github.com/tamkeen/tamkeen/core/journal"
	"github.com/tamkeen/tamkeen/core/reference"
	"github.com/tamkeen/tamkeen/core/syncqueue"
	logsvc "github.com/tamkeen/tamkeen/services/logger"
	"github.com/tamkeen/tamkeen/storage/database"
	sqlxrepos "github.com/tamkeen/tamkeen/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(false)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	journal.InitValidators(validate, translator)
	grading.InitValidators(validate, translator)

	// set up DB
	ctx := context.Background()
	db, err := database.Open(ctx, conf.Database.Path, logger)
	if err != nil {
		stdLogger.Fatal(err)
	}

	// start CLI
	queue := syncqueue.NewQueue(sqlxrepos.NewSyncQueueRepository(db), conf)
	cli := commandLine{
		db:     db,
		log:    logger,
		out:    os.Stdout,
		queue:  queue,
		refSvc: reference.NewService(db, sqlxrepos.NewReferenceRepository(db), validate, logger),
	}
	// the CLI never signs anybody in: no session store nor identity provider
	cli.authSvc = auth.NewService(db, sqlxrepos.NewProfileRepository(db), nil, nil, queue, validate, logger, conf)

	runErr := cli.run(os.Args)
	if err = db.Close(ctx); err != nil {
		stdLogger.Printf("closing database: %v", err)
	}
	if runErr != nil {
		if runErr != errHelp {
			stdLogger.Printf("\nerror: %s\n", core.TranslateError(runErr, translator))
		}
		os.Exit(1)
	}
}
