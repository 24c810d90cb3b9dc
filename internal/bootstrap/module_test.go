package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/fx/fxtest"

	"dbdoc/internal/bootstrap/config"
	domain "dbdoc/internal/domain/reconcile"
)

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Config{
		Tracker: config.TrackerConfig{
			ProjectKey:      "EI",
			ParentKey:       "EI-920",
			SentinelSummary: "DO NOT REMOVE",
			ClosedStatuses:  []string{"Done", "Resolved"},
		},
		Publish: config.PublishConfig{Filters: config.FilterConfig{ExcludeSchemaPrefixes: []string{"udb_"}}},
		Sweep:   config.SweepConfig{MaxCloses: 25},
	}

	settings := Settings(cfg, domain.OwnershipMap{"alice_db": "acc-alice"})

	if settings.ProjectKey != "EI" || settings.ParentKey != "EI-920" || settings.MaxCloses != 25 {
		t.Fatalf("settings = %#v", settings)
	}
	if !settings.Policy.IsClosed(domain.TrackedIssue{Status: "resolved"}) {
		t.Fatalf("policy should treat resolved as closed")
	}
	if !settings.Policy.IsSentinel(domain.TrackedIssue{Summary: "DO NOT REMOVE"}) {
		t.Fatalf("policy should recognise the sentinel")
	}
	if !settings.PublishFilters.Excludes(domain.Finding{Schema: "udb_alice"}) {
		t.Fatalf("publish filters should exclude personal schemas")
	}
	if settings.SweepFilters.Excludes(domain.Finding{Schema: "udb_alice"}) {
		t.Fatalf("sweep filters should be empty")
	}
}

func TestInitSchemaCreatesLedgerTables(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{Ledger: config.LedgerConfig{
		Enabled: true,
		Driver:  "sqlite",
		DSN:     filepath.Join(t.TempDir(), "ledger.sqlite"),
	}}

	lc := fxtest.NewLifecycle(t)
	ledger, err := provideLedger(lc, ctx, cfg)
	if err != nil {
		t.Fatalf("provideLedger() error = %v", err)
	}
	lc.RequireStart()
	t.Cleanup(func() { lc.RequireStop() })

	app := &App{Config: cfg, Ledger: ledger}
	if err := app.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	for _, table := range []string{"runs", "run_actions"} {
		if !ledger.DB.Migrator().HasTable(table) {
			t.Fatalf("table %s missing", table)
		}
	}
}

func TestInitSchemaWithoutLedger(t *testing.T) {
	app := &App{Ledger: &Ledger{}}
	if err := app.InitSchema(context.Background()); err == nil {
		t.Fatalf("InitSchema() expected error when ledger is disabled")
	}
}

func TestProvidePublisherDisabled(t *testing.T) {
	pub, err := providePublisher(fxtest.NewLifecycle(t), context.Background(), config.Config{})
	if err != nil || pub != nil {
		t.Fatalf("providePublisher() = %v, %v; want nil, nil", pub, err)
	}
}
