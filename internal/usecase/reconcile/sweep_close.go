package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dbdoc/internal/bootstrap/logging"
	domain "dbdoc/internal/domain/reconcile"
)

// RunSweep closes tracked issues whose object is documented now.
func (s *Service) RunSweep(ctx context.Context, opts RunOptions) (Report, error) {
	if err := s.validate(ctx); err != nil {
		return Report{}, err
	}
	if s.settings.ParentKey == "" {
		return Report{}, errors.New("tracker parent key is required for sweep")
	}

	report := s.startReport(domain.ModeSweep, opts.DryRun)
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "usecase.reconcile"),
		slog.String("mode", string(domain.ModeSweep)),
		slog.String("run_id", report.RunID),
	)
	logging.Info(ctx, "sweep started", slog.Bool("dry_run", opts.DryRun))

	if err := s.directory.Check(ctx); err != nil {
		return s.abort(ctx, report, connectionError("tracker", err))
	}

	findings, err := s.source.ListFindings(ctx)
	if err != nil {
		return s.abort(ctx, report, connectionError("database", err))
	}
	report.Findings = len(findings)

	issues, err := s.directory.ListTrackedIssues(ctx, s.settings.ProjectKey, s.settings.ParentKey)
	if err != nil {
		return s.abort(ctx, report, connectionError("tracker", err))
	}
	report.Issues = len(issues)

	plan := domain.PlanSweep(domain.SweepInput{
		Issues:           issues,
		CurrentSummaries: domain.Summaries(s.settings.SweepFilters.Apply(findings)),
		Policy:           s.settings.Policy,
	})

	closes := plan.Count(domain.ActionClose)
	logging.Info(ctx, "sweep planned",
		slog.Int("findings", report.Findings),
		slog.Int("issues", report.Issues),
		slog.Int("closes", closes),
	)
	if limit := s.settings.MaxCloses; limit > 0 && closes > limit {
		return s.abort(ctx, report, fmt.Errorf("%w: %d planned, limit %d", domain.ErrSweepLimit, closes, limit))
	}

	report.Outcomes = s.executor.Apply(ctx, plan, opts.DryRun)
	return s.finish(ctx, report), nil
}
