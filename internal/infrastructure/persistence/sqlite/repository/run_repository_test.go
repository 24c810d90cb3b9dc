package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"dbdoc/internal/infrastructure/persistence/sqlite/model"
	"dbdoc/internal/infrastructure/persistence/sqlite/uow"
	"dbdoc/internal/ports"
)

func setupRunRepository(t *testing.T) (*RunRepository, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "ledger.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewRunRepository(db), db
}

func TestSaveRunAndGetRun(t *testing.T) {
	repo, _ := setupRunRepository(t)
	ctx := context.Background()

	run := ports.Run{
		RunID:      "run-1",
		Mode:       "publish",
		StartedAt:  "2026-10-17T08:00:00Z",
		FinishedAt: "2026-10-17T08:00:05Z",
		Findings:   3,
		Applied:    2,
		Skipped:    1,
	}
	actions := []ports.RunAction{
		{Seq: 1, Action: "CREATE", Status: "applied", Summary: "Missing COMMENT on sales.orders", IssueKey: "EI-990", Owner: "alice"},
		{Seq: 2, Action: "ASSIGN", Status: "applied", Summary: "Missing COMMENT on sales.orders", IssueKey: "EI-990", Assignee: "acc-alice", Attempts: 2},
		{Seq: 3, Action: "SKIP_ASSIGN", Status: "skipped", Summary: "Missing COMMENT on hr.staff", Owner: "svc", Detail: "owner has no tracker identity"},
	}
	if err := repo.SaveRun(ctx, run, actions); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, gotActions, err := repo.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Mode != "publish" || got.Applied != 2 || got.Findings != 3 {
		t.Fatalf("GetRun() run = %#v", got)
	}
	if len(gotActions) != 3 {
		t.Fatalf("GetRun() actions len = %d", len(gotActions))
	}
	if gotActions[1].Action != "ASSIGN" || gotActions[1].Attempts != 2 || gotActions[1].RunID != "run-1" {
		t.Fatalf("GetRun() actions[1] = %#v", gotActions[1])
	}
}

func TestSaveRunReplacesActions(t *testing.T) {
	repo, _ := setupRunRepository(t)
	ctx := context.Background()

	run := ports.Run{RunID: "run-1", Mode: "sweep", StartedAt: "2026-10-17T08:00:00Z"}
	if err := repo.SaveRun(ctx, run, []ports.RunAction{{Seq: 1, Action: "CLOSE", Status: "planned", Summary: "s"}}); err != nil {
		t.Fatalf("SaveRun(first) error = %v", err)
	}

	run.Failed = 1
	run.Error = "boom"
	if err := repo.SaveRun(ctx, run, nil); err != nil {
		t.Fatalf("SaveRun(second) error = %v", err)
	}

	got, actions, err := repo.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Failed != 1 || got.Error != "boom" {
		t.Fatalf("GetRun() run = %#v", got)
	}
	if len(actions) != 0 {
		t.Fatalf("GetRun() actions = %#v", actions)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	repo, _ := setupRunRepository(t)
	ctx := context.Background()

	for _, r := range []ports.Run{
		{RunID: "a", Mode: "sweep", StartedAt: "2026-10-15T08:00:00Z"},
		{RunID: "b", Mode: "publish", StartedAt: "2026-10-17T08:00:00Z"},
		{RunID: "c", Mode: "sweep", StartedAt: "2026-10-16T08:00:00Z"},
	} {
		if err := repo.SaveRun(ctx, r, nil); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", r.RunID, err)
		}
	}

	runs, err := repo.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "b" || runs[1].RunID != "c" {
		t.Fatalf("ListRuns() = %#v", runs)
	}
}

func TestGetRunNotFound(t *testing.T) {
	repo, _ := setupRunRepository(t)

	_, _, err := repo.GetRun(context.Background(), "missing")
	if !errors.Is(err, ports.ErrRunNotFound) {
		t.Fatalf("GetRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestSaveRunRollsBackWithUnitOfWork(t *testing.T) {
	repo, db := setupRunRepository(t)
	ctx := context.Background()
	work := uow.NewUnitOfWork(db)

	wantErr := errors.New("abort")
	err := work.WithTx(ctx, func(txCtx context.Context) error {
		if err := repo.SaveRun(txCtx, ports.Run{RunID: "tx", Mode: "sweep", StartedAt: "2026-10-17T08:00:00Z"}, nil); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithTx() error = %v", err)
	}

	if _, _, err := repo.GetRun(ctx, "tx"); !errors.Is(err, ports.ErrRunNotFound) {
		t.Fatalf("GetRun() after rollback error = %v", err)
	}
}
