package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/auth"
	"github.com/tamkeen/tamkeen/core/reference"
	"github.com/tamkeen/tamkeen/core/syncqueue"
	"github.com/tamkeen/tamkeen/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      core.DB
	log     core.Logger
	out     io.Writer
	authSvc *auth.Service
	refSvc  *reference.Service
	queue   *syncqueue.Queue
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate - create or update the schema and seed the reference data")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME [-admin] - add a profile; the password will be prompted")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset a profile's password; the password will be prompted")
	fmt.Fprintln(cli.out, "  import -file FILE - import a JSON bundle of subjects, curriculum and competencies")
	fmt.Fprintln(cli.out, "  pending - list the changes waiting to be synchronised")
}

// promptPassword reads a password without echoing it. An empty password prints usage.
func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The new profile's email.")
	addUserName := addUserCmd.String("name", "", "The new profile's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the profile the admin role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The profile's email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "Path of the JSON bundle.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, importCmd} {
		fs.SetOutput(cli.out)
	}

	if args[1] != "migrate" {
		if err := database.RequireTables(ctx, cli.db, database.TableProfiles, database.TableSyncQueue); err != nil {
			return errors.Wrap(err, "run the migrate command first")
		}
	}

	switch args[1] {
	case "migrate":
		return cli.migrate(ctx)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(ctx, *addUserEmail, *addUserName, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, pwd)

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importBundle(ctx, *importFile)

	case "pending":
		return cli.pending(ctx)

	default:
		cli.printUsage()
		return errHelp
	}
}
