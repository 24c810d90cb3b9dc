package reconcile

import (
	"context"
	"log/slog"
	"time"

	"dbdoc/internal/bootstrap/logging"
	"dbdoc/internal/errs"
	"dbdoc/internal/ports"
)

func (s *Service) abort(ctx context.Context, report Report, err error) (Report, error) {
	report.Err = err
	report.FinishedAt = s.now().UTC()
	logging.Error(ctx, "run aborted", slog.Any("err", errs.Loggable(err)))
	s.record(ctx, report)
	return report, err
}

func (s *Service) finish(ctx context.Context, report Report) Report {
	report.FinishedAt = s.now().UTC()
	logging.Info(ctx, "run finished",
		slog.Int("applied", report.Count(StatusApplied)),
		slog.Int("planned", report.Count(StatusPlanned)),
		slog.Int("unchanged", report.Count(StatusUnchanged)),
		slog.Int("skipped", report.Count(StatusSkipped)),
		slog.Int("failed", report.Count(StatusFailed)),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	s.record(ctx, report)
	return report
}

// record stores the run in the ledger and announces it. Neither is allowed to
// fail the run.
func (s *Service) record(ctx context.Context, report Report) {
	run, actions := ledgerEntries(report)

	if s.ledger != nil {
		save := func(txCtx context.Context) error {
			return s.ledger.SaveRun(txCtx, run, actions)
		}
		var err error
		if s.uow != nil {
			err = s.uow.WithTx(ctx, save)
		} else {
			err = save(ctx)
		}
		if err != nil {
			logging.Warn(ctx, "record run in ledger failed", slog.Any("err", errs.Loggable(err)))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRun(ctx, run, actions); err != nil {
			logging.Warn(ctx, "publish run event failed", slog.Any("err", errs.Loggable(err)))
		}
	}
}

func ledgerEntries(report Report) (ports.Run, []ports.RunAction) {
	run := ports.Run{
		RunID:      report.RunID,
		Mode:       string(report.Mode),
		DryRun:     report.DryRun,
		StartedAt:  formatTime(report.StartedAt),
		FinishedAt: formatTime(report.FinishedAt),
		Findings:   report.Findings,
		Issues:     report.Issues,
		Applied:    report.Count(StatusApplied),
		Skipped:    report.Count(StatusSkipped),
		Failed:     report.Count(StatusFailed),
	}
	if report.Err != nil {
		run.Error = report.Err.Error()
	}

	actions := make([]ports.RunAction, 0, len(report.Outcomes))
	for i, out := range report.Outcomes {
		action := ports.RunAction{
			RunID:    report.RunID,
			Seq:      i + 1,
			Action:   string(out.Decision.Action),
			Status:   string(out.Status),
			Summary:  out.Decision.Summary,
			IssueKey: out.IssueKey,
			Owner:    out.Decision.Owner,
			Assignee: out.Decision.Assignee,
			Attempts: out.Attempts,
		}
		if out.Err != nil {
			action.Detail = out.Err.Error()
		}
		actions = append(actions, action)
	}
	return run, actions
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
