package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dbdoc/internal/bootstrap/logging"
	domain "dbdoc/internal/domain/reconcile"
	"dbdoc/internal/errs"
	"dbdoc/internal/ports"
)

// Transitions holds the workflow-specific transition ids.
type Transitions struct {
	Close  string
	Reopen string
}

type ExecutorConfig struct {
	ProjectKey  string
	ParentKey   string
	IssueType   string
	Transitions Transitions
	Retry       RetryPolicy
}

// Executor applies a plan to the tracker, one decision at a time. A failed
// decision never stops the ones after it.
type Executor struct {
	directory ports.IssueDirectory
	cfg       ExecutorConfig
}

func NewExecutor(directory ports.IssueDirectory, cfg ExecutorConfig) *Executor {
	return &Executor{directory: directory, cfg: cfg}
}

func (e *Executor) Apply(ctx context.Context, plan domain.Plan, dryRun bool) []Outcome {
	outcomes := make([]Outcome, 0, len(plan.Decisions))
	created := make(map[string]string)
	failedCreates := make(map[string]struct{})

	for _, d := range plan.Decisions {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{Decision: d, Status: StatusSkipped, IssueKey: d.IssueKey(), Err: err})
			continue
		}

		var out Outcome
		switch {
		case d.Action == domain.ActionNoop:
			out = Outcome{Decision: d, Status: StatusUnchanged, IssueKey: d.IssueKey()}
		case d.Action == domain.ActionSkipAssign || d.Action == domain.ActionAmbiguous:
			out = Outcome{Decision: d, Status: StatusSkipped, IssueKey: created[d.Summary], Err: d.Reason}
		case dryRun:
			out = Outcome{Decision: d, Status: StatusPlanned, IssueKey: d.IssueKey()}
		default:
			out = e.apply(ctx, d, created, failedCreates)
		}

		logOutcome(ctx, out)
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func (e *Executor) apply(ctx context.Context, d domain.Decision, created map[string]string, failedCreates map[string]struct{}) Outcome {
	out := Outcome{Decision: d, IssueKey: d.IssueKey()}

	var (
		attempts int
		err      error
	)
	switch d.Action {
	case domain.ActionCreate:
		var key string
		attempts, err = e.cfg.Retry.Do(ctx, "create", func(ctx context.Context) error {
			var createErr error
			key, createErr = e.directory.CreateIssue(ctx, ports.NewIssue{
				ProjectKey:  e.cfg.ProjectKey,
				ParentKey:   e.cfg.ParentKey,
				IssueType:   e.cfg.IssueType,
				Summary:     d.Summary,
				Description: d.Description,
			})
			return createErr
		})
		if err != nil {
			failedCreates[d.Summary] = struct{}{}
		} else {
			created[d.Summary] = key
			out.IssueKey = key
		}
	case domain.ActionAssign:
		key, ok := created[d.Summary]
		if !ok {
			out.Status = StatusSkipped
			if _, failed := failedCreates[d.Summary]; failed {
				out.Err = errors.New("issue creation failed")
			} else {
				out.Err = errors.New("no issue created for summary")
			}
			return out
		}
		out.IssueKey = key
		attempts, err = e.cfg.Retry.Do(ctx, "assign", func(ctx context.Context) error {
			return e.directory.AssignIssue(ctx, key, d.Assignee)
		})
	case domain.ActionReopen:
		attempts, err = e.transition(ctx, "reopen", d.IssueKey(), e.cfg.Transitions.Reopen)
	case domain.ActionClose:
		attempts, err = e.transition(ctx, "close", d.IssueKey(), e.cfg.Transitions.Close)
	default:
		out.Status = StatusSkipped
		out.Err = fmt.Errorf("unsupported action %q", d.Action)
		return out
	}

	out.Attempts = attempts
	if err != nil {
		out.Status = StatusFailed
		if errs.IsPermanent(err) || ctx.Err() != nil {
			out.Err = err
		} else {
			out.Err = fmt.Errorf("%w: %w", domain.ErrTransientAction, err)
		}
		return out
	}
	out.Status = StatusApplied
	return out
}

func (e *Executor) transition(ctx context.Context, name, key, transitionID string) (int, error) {
	if transitionID == "" {
		return 0, errs.Permanent(fmt.Errorf("%s transition id is not configured", name))
	}
	return e.cfg.Retry.Do(ctx, name, func(ctx context.Context) error {
		return e.directory.TransitionIssue(ctx, key, transitionID)
	})
}

func logOutcome(ctx context.Context, out Outcome) {
	attrs := []slog.Attr{
		slog.String("action", string(out.Decision.Action)),
		slog.String("status", string(out.Status)),
		slog.String("summary", out.Decision.Summary),
	}
	if out.IssueKey != "" {
		attrs = append(attrs, slog.String("issue", out.IssueKey))
	}
	if out.Decision.Owner != "" {
		attrs = append(attrs, slog.String("owner", out.Decision.Owner))
	}
	if out.Attempts > 1 {
		attrs = append(attrs, slog.Int("attempts", out.Attempts))
	}

	switch out.Status {
	case StatusFailed:
		logging.Error(ctx, "tracker action failed", append(attrs, slog.Any("err", errs.Loggable(out.Err)))...)
	case StatusSkipped:
		logging.Warn(ctx, "tracker action skipped", append(attrs, slog.Any("err", errs.Loggable(out.Err)))...)
	case StatusUnchanged:
		logging.Debug(ctx, "issue already tracked and open", attrs...)
	default:
		logging.Info(ctx, "tracker action "+string(out.Status), attrs...)
	}
}
