package ports

import (
	"context"
	"errors"
)

var ErrRunNotFound = errors.New("run not found")

type Run struct {
	RunID      string
	Mode       string
	DryRun     bool
	StartedAt  string
	FinishedAt string
	Findings   int
	Issues     int
	Applied    int
	Skipped    int
	Failed     int
	Error      string
}

type RunAction struct {
	RunID    string
	Seq      int
	Action   string
	Status   string
	Summary  string
	IssueKey string
	Owner    string
	Assignee string
	Detail   string
	Attempts int
}

// RunLedger keeps an audit trail of reconciliation runs. It is never read by
// the reconciliation engine.
type RunLedger interface {
	SaveRun(ctx context.Context, run Run, actions []RunAction) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, runID string) (Run, []RunAction, error)
}
