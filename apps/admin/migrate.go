package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aiworkshop/slides/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate COMMAND [ARGS]",
		Short:     "Run database migrations (up, up-by-one, up-to, down, down-to, redo, reset, status, version)",
		ValidArgs: []string{"up", "up-by-one", "up-to", "down", "down-to", "redo", "reset", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(cmd.Context(), args)
		},
	}
}

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if cli.conf.Database.Engine == database.EngineMemory {
		return database.ErrMemoryEngine
	}
	db, err := cli.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return migrateFunc(ctx, db, args[0], args[1:]...)
}
