package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"dbdoc/internal/bootstrap/config"
	"dbdoc/internal/bootstrap/database"
	"dbdoc/internal/bootstrap/logging"
	domain "dbdoc/internal/domain/reconcile"
	"dbdoc/internal/errs"
	"dbdoc/internal/infrastructure/catalog"
	"dbdoc/internal/infrastructure/notify"
	"dbdoc/internal/infrastructure/ownership"
	"dbdoc/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "dbdoc/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "dbdoc/internal/infrastructure/persistence/sqlite/uow"
	githubtracker "dbdoc/internal/infrastructure/tracker/github"
	jiratracker "dbdoc/internal/infrastructure/tracker/jira"
	"dbdoc/internal/ports"
	"dbdoc/internal/usecase/reconcile"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLogger),
	fx.Provide(provideLedger),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			provideSourceDatabase,
			fx.ResultTags(`name:"sourceDB"`),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideFindingSource,
			fx.ParamTags(`name:"sourceDB"`),
		),
	),
	fx.Provide(provideDirectory),
	fx.Provide(provideOwners),
	fx.Provide(providePublisher),
	fx.Provide(provideExecutor),
	fx.Provide(provideService),
	fx.Provide(provideRunHistory),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideLogger(lc fx.Lifecycle, cfg config.Config) (*slog.Logger, error) {
	logger, closer, err := logging.New(os.Stderr, cfg.Log.Options())
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return closer.Close()
		},
	})
	return logger, nil
}

// Ledger groups the run ledger collaborators. Every field is nil when the
// ledger is disabled.
type Ledger struct {
	DB         *gorm.DB
	Repository ports.RunLedger
	UnitOfWork ports.UnitOfWork
}

func provideLedger(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*Ledger, error) {
	if !cfg.Ledger.Enabled {
		return &Ledger{}, nil
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"), slog.String("database", "ledger"))

	db, err := database.Open(logCtx, cfg.Ledger.Database())
	if err != nil {
		return nil, errs.Wrap(err, "open ledger database")
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return database.Close(db)
		},
	})
	if err := db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return nil, errs.Wrap(err, "migrate ledger schema")
	}

	return &Ledger{
		DB:         db,
		Repository: sqliterepo.NewRunRepository(db),
		UnitOfWork: sqliteuow.NewUnitOfWork(db),
	}, nil
}

func provideSourceDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"), slog.String("database", "source"))

	db, err := database.Open(logCtx, cfg.Source.Database())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return database.Close(db)
		},
	})
	return db, nil
}

func provideFindingSource(db *gorm.DB, cfg config.Config) ports.FindingSource {
	return catalog.NewSource(db, cfg.Source.Query)
}

func provideDirectory(ctx context.Context, cfg config.Config) (ports.IssueDirectory, error) {
	tracker := cfg.Tracker
	switch tracker.Provider {
	case config.ProviderJira:
		return jiratracker.New(jiratracker.Config{
			Server:   tracker.Jira.Server,
			Username: tracker.Jira.Username,
			APIKey:   tracker.Jira.APIKey,
			AssignBy: tracker.Jira.AssignBy,
			PageSize: tracker.Jira.PageSize,
		})
	case config.ProviderGitHub:
		return githubtracker.New(ctx, githubtracker.Config{
			BaseURL:        tracker.GitHub.BaseURL,
			Token:          tracker.GitHub.Token,
			AppID:          tracker.GitHub.AppID,
			InstallationID: tracker.GitHub.InstallationID,
			PrivateKeyFile: tracker.GitHub.PrivateKeyFile,
			Repository:     tracker.ProjectKey,
			PageSize:       tracker.GitHub.PageSize,
		})
	default:
		return nil, fmt.Errorf("unsupported tracker provider %q", tracker.Provider)
	}
}

func provideOwners(ctx context.Context, logger *slog.Logger, cfg config.Config) (domain.OwnershipMap, error) {
	return ownership.Resolve(logging.WithLogger(ctx, logger), cfg.Ownership.File, cfg.Ownership.Map)
}

// providePublisher returns a nil publisher when NATS is not configured.
func providePublisher(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.RunPublisher, error) {
	nc := cfg.Notify.NATS
	if !nc.Enabled() {
		return nil, nil
	}

	pub, err := notify.Connect(notify.Config{
		URL:     nc.URL,
		Subject: nc.Subject,
		Name:    cfg.App.Name,
		Timeout: nc.Timeout,
	})
	if err != nil {
		return nil, err
	}
	logging.Info(logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx")), "run events enabled", slog.String("subject", pub.Subject()))

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}

func provideExecutor(directory ports.IssueDirectory, cfg config.Config) *reconcile.Executor {
	return reconcile.NewExecutor(directory, reconcile.ExecutorConfig{
		ProjectKey: cfg.Tracker.ProjectKey,
		ParentKey:  cfg.Tracker.ParentKey,
		IssueType:  cfg.Tracker.IssueType,
		Transitions: reconcile.Transitions{
			Close:  cfg.Tracker.Transitions.Close,
			Reopen: cfg.Tracker.Transitions.Reopen,
		},
		Retry: reconcile.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Delay:       cfg.Retry.Delay,
		},
	})
}

type serviceParams struct {
	fx.In

	Config    config.Config
	Source    ports.FindingSource
	Directory ports.IssueDirectory
	Executor  *reconcile.Executor
	Owners    domain.OwnershipMap
	Ledger    *Ledger
	Publisher ports.RunPublisher
}

func provideService(p serviceParams) *reconcile.Service {
	opts := []reconcile.Option{}
	if p.Ledger.Repository != nil {
		opts = append(opts, reconcile.WithLedger(p.Ledger.Repository, p.Ledger.UnitOfWork))
	}
	if p.Publisher != nil {
		opts = append(opts, reconcile.WithPublisher(p.Publisher))
	}

	return reconcile.NewService(p.Source, p.Directory, p.Executor, Settings(p.Config, p.Owners), opts...)
}

// Settings turns config into the immutable run settings.
func Settings(cfg config.Config, owners domain.OwnershipMap) reconcile.Settings {
	return reconcile.Settings{
		ProjectKey:     cfg.Tracker.ProjectKey,
		ParentKey:      cfg.Tracker.ParentKey,
		Policy:         domain.NewStatusPolicy(cfg.Tracker.SentinelSummary, cfg.Tracker.ClosedStatuses),
		Owners:         owners,
		PublishFilters: filterSet(cfg.Publish.Filters),
		SweepFilters:   filterSet(cfg.Sweep.Filters),
		MaxCloses:      cfg.Sweep.MaxCloses,
	}
}

func filterSet(f config.FilterConfig) domain.FilterSet {
	return domain.FilterSet{
		ExcludeSchemas:        f.ExcludeSchemas,
		ExcludeOwners:         f.ExcludeOwners,
		ExcludeSchemaPrefixes: f.ExcludeSchemaPrefixes,
	}
}

func provideRunHistory(ledger *Ledger) *reconcile.RunHistory {
	return reconcile.NewRunHistory(ledger.Repository)
}

func provideApp(cfg config.Config, logger *slog.Logger, ledger *Ledger) *App {
	return &App{
		Config: cfg,
		Logger: logger,
		Ledger: ledger,
	}
}
