// Package cli implements the bookshelf command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"Bookshelf/internal/config"
	"Bookshelf/pkg/kit"
)

const service = "bookshelf"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	log    *zap.Logger
	stdout io.Writer
	stderr io.Writer

	// newLogger is swapped in tests.
	newLogger func(level string) *zap.Logger
}

// NewRootCommand builds the command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	return newApp(stdout, stderr).rootCommand()
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		v:      viper.New(),
		stdout: stdout,
		stderr: stderr,
		newLogger: func(level string) *zap.Logger {
			return kit.NewLogger(service, level)
		},
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "bookshelf",
		Short: "Library catalog backed by a CSV file",
		Long: `bookshelf keeps a catalog of books in a CSV file and lets you add,
search, borrow, return, remove and list them, from the command line or
through a small web form UI served by "bookshelf serve".`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.AddGroup(
		&cobra.Group{ID: "books", Title: "Book Commands:"},
		&cobra.Group{ID: "server", Title: "Server Commands:"},
	)

	pf := root.PersistentFlags()
	pf.String(config.KeyConfig, "", "config file (default is ./.bookshelf.yaml)")
	pf.String(config.KeyData, "books.csv", "path of the CSV catalog file")
	pf.String(config.KeyStore, config.StoreCSV, "backing store: csv, sqlite, postgres or memory")
	pf.String(config.KeyDSN, "", "data source name for the sqlite and postgres stores")
	pf.Bool(config.KeyCreate, true, "create an empty catalog when the store does not exist")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String(config.KeyServer, "", "run book commands against a bookshelf server at this URL")

	a.bindFlag(root, config.KeyConfig, config.KeyConfig)
	a.bindFlag(root, config.KeyData, config.KeyData)
	a.bindFlag(root, config.KeyStore, config.KeyStore)
	a.bindFlag(root, config.KeyDSN, config.KeyDSN)
	a.bindFlag(root, config.KeyCreate, config.KeyCreate)
	a.bindFlag(root, config.KeyLogLevel, "log-level")
	a.bindFlag(root, config.KeyServer, config.KeyServer)

	root.AddCommand(
		a.newAddCommand(),
		a.newFindCommand(),
		a.newBorrowCommand(),
		a.newReturnCommand(),
		a.newRemoveCommand(),
		a.newListCommand(),
		a.newServeCommand(),
	)
	return root
}

func (a *app) bindFlag(cmd *cobra.Command, key, flag string) {
	if err := a.v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = a.newLogger(cfg.LogLevel)
	return nil
}

// Execute runs the command line with args and returns the process exit
// code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		var reported errReported
		if !errors.As(err, &reported) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}
