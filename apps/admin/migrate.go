package main

import (
	"context"
	"fmt"

	"github.com/tamkeen/tamkeen/storage/database"
)

func (cli *commandLine) migrate(ctx context.Context) error {
	if err := database.Migrate(ctx, cli.db, cli.log); err != nil {
		return err
	}
	if err := database.Seed(ctx, cli.db, cli.log); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "schema is up to date")
	return nil
}
