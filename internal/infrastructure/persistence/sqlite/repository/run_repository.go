package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dbdoc/internal/errs"
	"dbdoc/internal/infrastructure/persistence/sqlite/model"
	"dbdoc/internal/ports"
)

type RunRepository struct {
	db *gorm.DB
}

var _ ports.RunLedger = (*RunRepository)(nil)

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// SaveRun upserts the run row and replaces its actions. Outside a unit of
// work it opens its own transaction.
func (r *RunRepository) SaveRun(ctx context.Context, run ports.Run, actions []ports.RunAction) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if run.RunID == "" {
		return errors.New("run id is required")
	}

	if ports.TxFromContext(ctx) == nil {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return r.SaveRun(ports.WithTxContext(ctx, tx), run, actions)
		})
	}

	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := mapRunRow(run)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}},
		UpdateAll: true,
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert run")
	}

	if err := db.Where("run_id = ?", run.RunID).Delete(&model.RunAction{}).Error; err != nil {
		return errs.Wrap(err, "delete previous run actions")
	}
	if len(actions) == 0 {
		return nil
	}

	rows := make([]model.RunAction, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, model.RunAction{
			RunID:    run.RunID,
			Seq:      a.Seq,
			Action:   a.Action,
			Status:   a.Status,
			Summary:  a.Summary,
			IssueKey: a.IssueKey,
			Owner:    a.Owner,
			Assignee: a.Assignee,
			Detail:   a.Detail,
			Attempts: a.Attempts,
		})
	}
	if err := db.CreateInBatches(&rows, 200).Error; err != nil {
		return errs.Wrap(err, "insert run actions")
	}
	return nil
}

func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]ports.Run, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Run{}).Order("started_at desc").Order("run_id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Run
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query runs")
	}

	items := make([]ports.Run, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapRun(row))
	}
	return items, nil
}

func (r *RunRepository) GetRun(ctx context.Context, runID string) (ports.Run, []ports.RunAction, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Run{}, nil, err
	}

	var row model.Run
	if err := db.Where("run_id = ?", runID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Run{}, nil, fmt.Errorf("%w: %s", ports.ErrRunNotFound, runID)
		}
		return ports.Run{}, nil, errs.Wrap(err, "query run")
	}

	var actionRows []model.RunAction
	if err := db.Where("run_id = ?", runID).Order("seq asc").Find(&actionRows).Error; err != nil {
		return ports.Run{}, nil, errs.Wrap(err, "query run actions")
	}

	actions := make([]ports.RunAction, 0, len(actionRows))
	for _, a := range actionRows {
		actions = append(actions, ports.RunAction{
			RunID:    a.RunID,
			Seq:      a.Seq,
			Action:   a.Action,
			Status:   a.Status,
			Summary:  a.Summary,
			IssueKey: a.IssueKey,
			Owner:    a.Owner,
			Assignee: a.Assignee,
			Detail:   a.Detail,
			Attempts: a.Attempts,
		})
	}
	return mapRun(row), actions, nil
}

func mapRunRow(run ports.Run) model.Run {
	return model.Run{
		RunID:      run.RunID,
		Mode:       run.Mode,
		DryRun:     run.DryRun,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Findings:   run.Findings,
		Issues:     run.Issues,
		Applied:    run.Applied,
		Skipped:    run.Skipped,
		Failed:     run.Failed,
		Error:      run.Error,
	}
}

func mapRun(row model.Run) ports.Run {
	return ports.Run{
		RunID:      row.RunID,
		Mode:       row.Mode,
		DryRun:     row.DryRun,
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
		Findings:   row.Findings,
		Issues:     row.Issues,
		Applied:    row.Applied,
		Skipped:    row.Skipped,
		Failed:     row.Failed,
		Error:      row.Error,
	}
}
