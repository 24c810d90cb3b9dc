package ports

import (
	"context"

	"dbdoc/internal/domain/reconcile"
)

type NewIssue struct {
	ProjectKey  string
	ParentKey   string
	IssueType   string
	Summary     string
	Description string
}

type Transition struct {
	ID       string
	Name     string
	ToStatus string
}

// IssueDirectory is the tracker as seen by the reconciler.
//
// FindIssuesBySummary returns every candidate of the tracker's text search;
// callers must not assume the match is exact.
type IssueDirectory interface {
	Check(ctx context.Context) error
	ListTrackedIssues(ctx context.Context, projectKey string, parentKey string) ([]reconcile.TrackedIssue, error)
	FindIssuesBySummary(ctx context.Context, projectKey string, summary string) ([]reconcile.TrackedIssue, error)
	CreateIssue(ctx context.Context, issue NewIssue) (string, error)
	TransitionIssue(ctx context.Context, key string, transitionID string) error
	AssignIssue(ctx context.Context, key string, identity string) error
	ListTransitions(ctx context.Context, key string) ([]Transition, error)
}
