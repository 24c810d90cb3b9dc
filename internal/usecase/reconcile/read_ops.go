package reconcile

import (
	"context"
	"errors"
	"strings"

	"dbdoc/internal/errs"
	"dbdoc/internal/ports"
)

// ListTransitions shows the workflow transitions available on an issue, which
// is how operators find the close and reopen ids to configure.
func (s *Service) ListTransitions(ctx context.Context, issueKey string) ([]ports.Transition, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if s.directory == nil {
		return nil, errors.New("issue directory is required")
	}
	key := strings.TrimSpace(issueKey)
	if key == "" {
		return nil, errors.New("issue key is required")
	}

	transitions, err := s.directory.ListTransitions(ctx, key)
	if err != nil {
		return nil, errs.Wrapf(err, "list transitions for %s", key)
	}
	return transitions, nil
}

// RunHistory reads the run ledger.
type RunHistory struct {
	ledger ports.RunLedger
}

func NewRunHistory(ledger ports.RunLedger) *RunHistory {
	return &RunHistory{ledger: ledger}
}

func (h *RunHistory) ListRuns(ctx context.Context, limit int) ([]ports.Run, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if h.ledger == nil {
		return nil, errors.New("run ledger is disabled")
	}
	if limit <= 0 {
		limit = 20
	}
	return h.ledger.ListRuns(ctx, limit)
}

func (h *RunHistory) GetRun(ctx context.Context, runID string) (ports.Run, []ports.RunAction, error) {
	if ctx == nil {
		return ports.Run{}, nil, errors.New("context is required")
	}
	if h.ledger == nil {
		return ports.Run{}, nil, errors.New("run ledger is disabled")
	}
	id := strings.TrimSpace(runID)
	if id == "" {
		return ports.Run{}, nil, errors.New("run id is required")
	}
	return h.ledger.GetRun(ctx, id)
}
