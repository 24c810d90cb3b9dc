package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gojira "github.com/andygrunwald/go-jira"

	"dbdoc/internal/domain/reconcile"
	"dbdoc/internal/errs"
	"dbdoc/internal/ports"
)

const (
	defaultPageSize   = 100
	defaultSearchSize = 50
	defaultIssueType  = "Sub-task"

	AssignByAccountID = "account_id"
	AssignByName      = "name"
)

var searchFields = []string{"summary", "status", "assignee"}

type Config struct {
	Server   string
	Username string
	APIKey   string
	// AssignBy selects which user field carries the identity: Jira Cloud
	// wants account ids, Jira Server wants user names.
	AssignBy string
	PageSize int
}

// Directory implements ports.IssueDirectory against the Jira REST API.
type Directory struct {
	client   *gojira.Client
	assignBy string
	pageSize int
}

var _ ports.IssueDirectory = (*Directory)(nil)

func New(cfg Config) (*Directory, error) {
	server := strings.TrimSpace(cfg.Server)
	if server == "" {
		return nil, errors.New("jira server is required")
	}

	httpClient := http.DefaultClient
	if cfg.Username != "" || cfg.APIKey != "" {
		tp := gojira.BasicAuthTransport{Username: cfg.Username, Password: cfg.APIKey}
		httpClient = tp.Client()
	}

	client, err := gojira.NewClient(httpClient, server)
	if err != nil {
		return nil, errs.Wrap(err, "create jira client")
	}
	return newDirectory(client, cfg), nil
}

func newDirectory(client *gojira.Client, cfg Config) *Directory {
	assignBy := strings.ToLower(strings.TrimSpace(cfg.AssignBy))
	if assignBy == "" {
		assignBy = AssignByAccountID
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Directory{client: client, assignBy: assignBy, pageSize: pageSize}
}

func (d *Directory) Check(ctx context.Context) error {
	_, resp, err := d.client.User.GetSelfWithContext(ctx)
	if err != nil {
		return classify(resp, errs.Wrap(err, "fetch jira session user"))
	}
	return nil
}

func (d *Directory) ListTrackedIssues(ctx context.Context, projectKey string, parentKey string) ([]reconcile.TrackedIssue, error) {
	jql := fmt.Sprintf("project = %s AND parent = %s ORDER BY key ASC", QuoteJQL(projectKey), QuoteJQL(parentKey))

	return d.search(ctx, jql, d.pageSize, "search issues under "+parentKey)
}

func (d *Directory) search(ctx context.Context, jql string, pageSize int, what string) ([]reconcile.TrackedIssue, error) {
	var out []reconcile.TrackedIssue
	startAt := 0
	for {
		issues, resp, err := d.client.Issue.SearchWithContext(ctx, jql, &gojira.SearchOptions{
			StartAt:    startAt,
			MaxResults: pageSize,
			Fields:     searchFields,
		})
		if err != nil {
			return nil, classify(resp, errs.Wrap(err, what))
		}
		for _, issue := range issues {
			out = append(out, mapIssue(issue))
		}

		startAt += len(issues)
		if len(issues) == 0 || resp == nil || startAt >= resp.Total {
			return out, nil
		}
	}
}

func (d *Directory) FindIssuesBySummary(ctx context.Context, projectKey string, summary string) ([]reconcile.TrackedIssue, error) {
	// Phrase search: the quoted summary is itself quoted as a JQL string.
	jql := fmt.Sprintf("project = %s AND summary ~ %s", QuoteJQL(projectKey), QuoteJQL(`"`+summary+`"`))

	// Column issues of a wide table also match a table summary, so every page
	// is read; the exact match may sit anywhere in the result set.
	return d.search(ctx, jql, defaultSearchSize, "search issues by summary")
}

func (d *Directory) CreateIssue(ctx context.Context, input ports.NewIssue) (string, error) {
	issueType := input.IssueType
	if issueType == "" {
		issueType = defaultIssueType
	}

	fields := &gojira.IssueFields{
		Project:     gojira.Project{Key: input.ProjectKey},
		Type:        gojira.IssueType{Name: issueType},
		Summary:     input.Summary,
		Description: input.Description,
	}
	if input.ParentKey != "" {
		fields.Parent = &gojira.Parent{Key: input.ParentKey}
	}

	created, resp, err := d.client.Issue.CreateWithContext(ctx, &gojira.Issue{Fields: fields})
	if err != nil {
		return "", classify(resp, errs.Wrap(err, "create jira issue"))
	}
	if created == nil || created.Key == "" {
		return "", errors.New("jira returned no issue key")
	}
	return created.Key, nil
}

func (d *Directory) TransitionIssue(ctx context.Context, key string, transitionID string) error {
	resp, err := d.client.Issue.DoTransitionWithContext(ctx, key, transitionID)
	if err != nil {
		return classify(resp, errs.Wrapf(err, "transition %s via %s", key, transitionID))
	}
	return nil
}

func (d *Directory) AssignIssue(ctx context.Context, key string, identity string) error {
	user := &gojira.User{AccountID: identity}
	if d.assignBy == AssignByName {
		user = &gojira.User{Name: identity}
	}

	resp, err := d.client.Issue.UpdateAssigneeWithContext(ctx, key, user)
	if err != nil {
		return classify(resp, errs.Wrapf(err, "assign %s to %s", key, identity))
	}
	return nil
}

func (d *Directory) ListTransitions(ctx context.Context, key string) ([]ports.Transition, error) {
	transitions, resp, err := d.client.Issue.GetTransitionsWithContext(ctx, key)
	if err != nil {
		return nil, classify(resp, errs.Wrapf(err, "get transitions of %s", key))
	}

	out := make([]ports.Transition, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, ports.Transition{ID: t.ID, Name: t.Name, ToStatus: t.To.Name})
	}
	return out, nil
}

func mapIssue(issue gojira.Issue) reconcile.TrackedIssue {
	out := reconcile.TrackedIssue{Key: issue.Key}
	if issue.Fields == nil {
		return out
	}
	out.Summary = issue.Fields.Summary
	if issue.Fields.Status != nil {
		out.Status = issue.Fields.Status.Name
	}
	if a := issue.Fields.Assignee; a != nil {
		out.Assignee = a.AccountID
		if out.Assignee == "" {
			out.Assignee = a.Name
		}
	}
	return out
}

// classify marks errors that a retry cannot fix as permanent.
func classify(resp *gojira.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusMethodNotAllowed:
		return errs.Permanent(err)
	default:
		return err
	}
}

// QuoteJQL renders value as a JQL string literal.
func QuoteJQL(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return `"` + escaped + `"`
}
