package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"dbdoc/internal/bootstrap/config"
	"dbdoc/internal/bootstrap/logging"
	"dbdoc/internal/errs"
	"dbdoc/internal/infrastructure/persistence/sqlite/model"
)

type App struct {
	Config config.Config
	Logger *slog.Logger
	Ledger *Ledger
}

// InitSchema creates or migrates the run ledger tables.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if a.Ledger == nil || a.Ledger.DB == nil {
		return errors.New("run ledger is disabled")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	if err := a.Ledger.DB.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	logging.Info(logCtx, "schema migration completed", slog.String("ledger_dsn", a.Config.Ledger.DSN))
	return nil
}
