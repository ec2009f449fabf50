package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"petprint-bot/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the order archive schema",
	}

	cmd.AddCommand(
		migrateSubCmd("up", "Apply all pending migrations", storage.RunMigrations),
		migrateSubCmd("down", "Roll back the latest migration", storage.RollbackMigration),
		migrateSubCmd("status", "Print applied and pending migrations", storage.Status),
	)
	return cmd
}

func migrateSubCmd(use, short string, run func(context.Context, *sql.DB, *zap.Logger) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := setup()
			if err != nil {
				return err
			}
			defer zapLogger.Sync()

			if !cfg.Database.Enabled() {
				return errors.New("DB_HOST is required for migrations")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			pgStorage, err := storage.NewPostgresStorage(ctx, cfg.Database, nil, zapLogger)
			if err != nil {
				return err
			}
			defer pgStorage.Close()

			return run(ctx, pgStorage.DB(), zapLogger)
		},
	}
}
