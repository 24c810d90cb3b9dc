package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"dbdoc/internal/bootstrap"
	"dbdoc/internal/bootstrap/logging"
	"dbdoc/internal/errs"
	"dbdoc/internal/usecase/reconcile"
)

// startApp builds the fx graph for one command and fills targets. Only the
// providers the targets need are constructed, so read-only commands never
// touch the catalog database or the tracker.
func startApp(cmd *cobra.Command, targets ...any) (context.Context, func(), error) {
	ctx := logging.WithAttrs(
		cmd.Context(),
		slog.String("command", cmd.CommandPath()),
		slog.String("config_file", cfgFile),
	)

	var app *bootstrap.App
	fxApp := fx.New(
		bootstrap.Module,
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: logging.Logger(ctx)}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),
		fx.Provide(func() context.Context { return ctx }),
		fx.Provide(
			fx.Annotate(
				func() string { return cfgFile },
				fx.ResultTags(`name:"configFile"`),
			),
		),
		fx.Populate(append([]any{&app}, targets...)...),
	)

	startCtx, cancelStart := context.WithTimeout(ctx, 30*time.Second)
	defer cancelStart()
	if err := fxApp.Start(startCtx); err != nil {
		logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
		return ctx, func() {}, errs.Wrap(err, "start fx application")
	}

	runCtx := logging.WithLogger(ctx, app.Logger)
	stop := func() {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelStop()
		if err := fxApp.Stop(stopCtx); err != nil {
			logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
		}
	}
	return runCtx, stop, nil
}

func withApp(run func(ctx context.Context, cmd *cobra.Command, app *bootstrap.App) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		var app *bootstrap.App
		ctx, stop, err := startApp(cmd, &app)
		if err != nil {
			return err
		}
		defer stop()

		if err := run(ctx, cmd, app); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

func withService(run func(ctx context.Context, cmd *cobra.Command, args []string, svc *reconcile.Service) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var svc *reconcile.Service
		ctx, stop, err := startApp(cmd, &svc)
		if err != nil {
			return err
		}
		defer stop()

		if err := run(ctx, cmd, args, svc); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

func withHistory(run func(ctx context.Context, cmd *cobra.Command, args []string, history *reconcile.RunHistory) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var history *reconcile.RunHistory
		ctx, stop, err := startApp(cmd, &history)
		if err != nil {
			return err
		}
		defer stop()

		if err := run(ctx, cmd, args, history); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}
