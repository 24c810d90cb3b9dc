package reconcile

import (
	"time"

	domain "dbdoc/internal/domain/reconcile"
)

type OutcomeStatus string

const (
	StatusApplied   OutcomeStatus = "applied"
	StatusPlanned   OutcomeStatus = "planned"
	StatusUnchanged OutcomeStatus = "unchanged"
	StatusSkipped   OutcomeStatus = "skipped"
	StatusFailed    OutcomeStatus = "failed"
)

// ActionLookup marks a finding whose tracker lookup failed before planning.
const ActionLookup domain.ActionKind = "LOOKUP"

// Outcome is what happened to one decision.
type Outcome struct {
	Decision domain.Decision
	Status   OutcomeStatus
	IssueKey string
	Attempts int
	Err      error
}

type Report struct {
	RunID      string
	Mode       domain.Mode
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Findings   int
	Issues     int
	Outcomes   []Outcome
	Err        error
}

func (r Report) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func (r Report) CountAction(action domain.ActionKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Decision.Action == action {
			n++
		}
	}
	return n
}
