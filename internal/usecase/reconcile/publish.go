package reconcile

import (
	"context"
	"log/slog"

	"dbdoc/internal/bootstrap/logging"
	domain "dbdoc/internal/domain/reconcile"
	"dbdoc/internal/errs"
)

// RunPublish creates issues for new findings and reopens issues for findings
// that came back.
func (s *Service) RunPublish(ctx context.Context, opts RunOptions) (Report, error) {
	if err := s.validate(ctx); err != nil {
		return Report{}, err
	}

	report := s.startReport(domain.ModePublish, opts.DryRun)
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "usecase.reconcile"),
		slog.String("mode", string(domain.ModePublish)),
		slog.String("run_id", report.RunID),
	)
	logging.Info(ctx, "publish started", slog.Bool("dry_run", opts.DryRun))

	if err := s.directory.Check(ctx); err != nil {
		return s.abort(ctx, report, connectionError("tracker", err))
	}

	findings, err := s.source.ListFindings(ctx)
	if err != nil {
		return s.abort(ctx, report, connectionError("database", err))
	}
	report.Findings = len(findings)

	candidates := domain.UniqueBySummary(s.settings.PublishFilters.Apply(findings))
	logging.Info(ctx, "findings filtered",
		slog.Int("findings", len(findings)),
		slog.Int("publishable", len(candidates)),
	)

	matches := make(map[string][]domain.TrackedIssue, len(candidates))
	matched := make(map[string]struct{})
	lookedUp := make([]domain.Finding, 0, len(candidates))
	var lookupFailures []Outcome
	for _, finding := range candidates {
		summary := finding.Summary()
		issues, err := s.directory.FindIssuesBySummary(ctx, s.settings.ProjectKey, summary)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s.abort(ctx, report, errs.Wrap(ctxErr, "look up issues"))
			}
			out := Outcome{
				Decision: domain.Decision{Action: ActionLookup, Summary: summary, Owner: finding.Owner},
				Status:   StatusFailed,
				Err:      errs.Wrap(err, "search tracker by summary"),
			}
			logOutcome(ctx, out)
			lookupFailures = append(lookupFailures, out)
			continue
		}
		matches[summary] = issues
		for _, issue := range domain.ExactMatches(issues, summary, s.settings.Policy) {
			matched[issue.Key] = struct{}{}
		}
		lookedUp = append(lookedUp, finding)
	}

	report.Issues = len(matched)

	plan := domain.PlanPublish(domain.PublishInput{
		Findings: lookedUp,
		Matches:  matches,
		Owners:   s.settings.Owners,
		Policy:   s.settings.Policy,
	})
	logging.Info(ctx, "publish planned",
		slog.Int("creates", plan.Count(domain.ActionCreate)),
		slog.Int("reopens", plan.Count(domain.ActionReopen)),
		slog.Int("unchanged", plan.Count(domain.ActionNoop)),
		slog.Int("ambiguous", plan.Count(domain.ActionAmbiguous)),
	)

	report.Outcomes = append(lookupFailures, s.executor.Apply(ctx, plan, opts.DryRun)...)
	return s.finish(ctx, report), nil
}
