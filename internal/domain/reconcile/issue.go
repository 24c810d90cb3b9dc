package reconcile

import "strings"

const DefaultSentinelSummary = "DO NOT REMOVE"

var DefaultClosedStatuses = []string{"done", "resolved", "ended", "closed"}

type TrackedIssue struct {
	Key      string
	Summary  string
	Status   string
	Assignee string
}

// StatusPolicy carries the tracker-specific knowledge the engine needs.
type StatusPolicy struct {
	SentinelSummary string
	closed          map[string]struct{}
}

func NewStatusPolicy(sentinel string, closedStatuses []string) StatusPolicy {
	if len(closedStatuses) == 0 {
		closedStatuses = DefaultClosedStatuses
	}
	closed := make(map[string]struct{}, len(closedStatuses))
	for _, status := range closedStatuses {
		status = normalizeStatus(status)
		if status != "" {
			closed[status] = struct{}{}
		}
	}
	return StatusPolicy{
		SentinelSummary: strings.TrimSpace(sentinel),
		closed:          closed,
	}
}

func (p StatusPolicy) IsClosed(issue TrackedIssue) bool {
	_, ok := p.closed[normalizeStatus(issue.Status)]
	return ok
}

func (p StatusPolicy) IsSentinel(issue TrackedIssue) bool {
	return p.SentinelSummary != "" && strings.TrimSpace(issue.Summary) == p.SentinelSummary
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
