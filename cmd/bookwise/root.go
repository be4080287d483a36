package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/di"
	"github.com/bookwise/bookwise/internal/di/providers"
	"github.com/bookwise/bookwise/internal/service"
)

// app holds the services a command works with. It is populated by the root
// command's pre-run hook.
type app struct {
	overrides config.Overrides
	noSearch  bool
	format    string

	injector *do.RootScope
	log      *slog.Logger
	library  *service.LibraryService
	progress *service.ProgressService
	store    *providers.StoreHandle
	catalog  *providers.CatalogHandle

	in  io.Reader
	out io.Writer
}

// run executes the command line and returns the process exit code.
func run(args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "bookwise",
		Short:         "Track the books you read, the shelves they live on and your reading progress",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", cobra.ShellCompRequestCmd:
				return nil
			}
			return a.open(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.overrides.EnvFile, "env-file", ".env", "path to .env file")
	flags.StringVar(&a.overrides.Environment, "env", "", "environment (development, staging, production)")
	flags.StringVar(&a.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.overrides.LogFormat, "log-format", "", "log format (pretty, json)")
	flags.StringVar(&a.overrides.DataPath, "data-path", "", "data directory (default ~/Bookwise/data)")
	flags.StringVar(&a.overrides.StorageBackend, "storage", "", "storage backend (badger, sqlite, memory)")
	flags.StringVar(&a.overrides.CatalogDir, "catalog-dir", "", "directory of catalog volume records")
	flags.BoolVar(&a.noSearch, "no-search", false, "disable the full-text index")
	flags.StringVarP(&a.format, "output", "o", formatYAML, "output format (yaml, json)")

	root.AddCommand(
		newBooksCmd(a),
		newBookCmd(a),
		newShelvesCmd(a),
		newShelfCmd(a),
		newSearchCmd(a),
		newProgressCmd(a),
		newReadCmd(a),
		newStatsCmd(a),
		newHistoryCmd(a),
		newReindexCmd(a),
		newKeysCmd(a),
		newDumpCmd(a),
	)

	return root
}

// open builds the container and resolves the services.
func (a *app) open(ctx context.Context) error {
	if err := checkFormat(a.format); err != nil {
		return err
	}
	if a.noSearch {
		a.overrides.SearchEnabled = "false"
	}
	if ctx == nil {
		ctx = context.Background()
	}

	a.injector = di.NewContainer(a.overrides)
	if err := di.Bootstrap(ctx, a.injector); err != nil {
		return err
	}

	a.log = do.MustInvoke[*slog.Logger](a.injector)
	a.library = do.MustInvoke[*service.LibraryService](a.injector)
	a.progress = do.MustInvoke[*service.ProgressService](a.injector)
	a.store = do.MustInvoke[*providers.StoreHandle](a.injector)
	a.catalog = do.MustInvoke[*providers.CatalogHandle](a.injector)
	return nil
}

// close shuts the container down, flushing storage and the index.
func (a *app) close() {
	if a.injector == nil {
		return
	}
	if err := a.injector.Shutdown(); err != nil && a.log != nil {
		a.log.Error("shutdown error", "error", err)
	}
	a.injector = nil
}
