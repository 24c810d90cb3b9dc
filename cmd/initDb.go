/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"dbdoc/internal/bootstrap"
	"dbdoc/internal/bootstrap/logging"
	"dbdoc/internal/errs"
)

// initDbCmd represents the initDb command
var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Initialize the run ledger schema",
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *bootstrap.App) error {
		logging.Info(ctx, "start init-db")

		if err := app.InitSchema(ctx); err != nil {
			logging.Error(ctx, "initialize schema failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "initialize schema")
		}

		logging.Info(ctx, "init-db finished", slog.String("ledger_dsn", app.Config.Ledger.DSN))
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "ledger schema initialized: %s\n", app.Config.Ledger.DSN); err != nil {
			return errs.Wrap(err, "write init-db output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(initDbCmd)
}
