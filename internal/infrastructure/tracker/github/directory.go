package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"dbdoc/internal/domain/reconcile"
	"dbdoc/internal/errs"
	"dbdoc/internal/ports"
)

// GitHub issues only know two states, so they double as transition ids.
const (
	StateOpen   = "open"
	StateClosed = "closed"

	defaultPageSize = 100
)

type Config struct {
	// BaseURL points at a GitHub Enterprise API root; empty means github.com.
	BaseURL string
	Token   string

	AppID          int64
	InstallationID int64
	PrivateKeyFile string

	// Repository is the "owner/repo" the token must reach; Check reads it
	// because installation tokens cannot read /user.
	Repository string
	PageSize   int
}

// Directory implements ports.IssueDirectory on GitHub issues. The project key
// is "owner/repo", the parent key is a label, and issue keys look like
// "owner/repo#123".
type Directory struct {
	client     *gh.Client
	repository string
	pageSize   int
}

var _ ports.IssueDirectory = (*Directory)(nil)

func New(ctx context.Context, cfg Config) (*Directory, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	httpClient, err := authClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(httpClient)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		client, err = client.WithEnterpriseURLs(base, base)
		if err != nil {
			return nil, errs.Wrap(err, "configure github enterprise urls")
		}
	}
	return newDirectory(client, cfg), nil
}

func authClient(ctx context.Context, cfg Config) (*http.Client, error) {
	switch {
	case cfg.AppID != 0 || cfg.PrivateKeyFile != "":
		if cfg.AppID == 0 || cfg.InstallationID == 0 || cfg.PrivateKeyFile == "" {
			return nil, errors.New("github app auth needs app_id, installation_id and private_key_file")
		}
		tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyFile)
		if err != nil {
			return nil, errs.Wrap(err, "load github app key")
		}
		if base := strings.TrimSpace(cfg.BaseURL); base != "" {
			tr.BaseURL = strings.TrimRight(base, "/")
		}
		return &http.Client{Transport: tr}, nil
	case strings.TrimSpace(cfg.Token) != "":
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: strings.TrimSpace(cfg.Token)})
		return oauth2.NewClient(ctx, src), nil
	default:
		return nil, errors.New("github token or app credentials are required")
	}
}

func newDirectory(client *gh.Client, cfg Config) *Directory {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Directory{client: client, repository: strings.TrimSpace(cfg.Repository), pageSize: pageSize}
}

func (d *Directory) Check(ctx context.Context) error {
	if d.repository == "" {
		_, resp, err := d.client.Users.Get(ctx, "")
		if err != nil {
			return classify(resp, errs.Wrap(err, "fetch github session user"))
		}
		return nil
	}

	owner, repo, err := SplitRepo(d.repository)
	if err != nil {
		return err
	}
	_, resp, err := d.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return classify(resp, errs.Wrapf(err, "fetch github repository %s", d.repository))
	}
	return nil
}

func (d *Directory) ListTrackedIssues(ctx context.Context, projectKey string, parentKey string) ([]reconcile.TrackedIssue, error) {
	owner, repo, err := SplitRepo(projectKey)
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		Labels:      []string{parentKey},
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gh.ListOptions{PerPage: d.pageSize},
	}

	var out []reconcile.TrackedIssue
	for {
		issues, resp, err := d.client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, classify(resp, errs.Wrapf(err, "list issues labelled %s", parentKey))
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			out = append(out, mapIssue(owner, repo, issue))
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (d *Directory) FindIssuesBySummary(ctx context.Context, projectKey string, summary string) ([]reconcile.TrackedIssue, error) {
	owner, repo, err := SplitRepo(projectKey)
	if err != nil {
		return nil, err
	}

	// Search has no escape for quotes inside a phrase; exact matching happens later.
	phrase := strings.ReplaceAll(summary, `"`, " ")
	query := fmt.Sprintf(`repo:%s/%s is:issue in:title "%s"`, owner, repo, phrase)

	opts := &gh.SearchOptions{ListOptions: gh.ListOptions{PerPage: d.pageSize}}

	// Column issues share the table title as a prefix; the exact match may
	// be on any page.
	var out []reconcile.TrackedIssue
	for {
		result, resp, err := d.client.Search.Issues(ctx, query, opts)
		if err != nil {
			return nil, classify(resp, errs.Wrap(err, "search issues by title"))
		}
		for _, issue := range result.Issues {
			if issue.IsPullRequest() {
				continue
			}
			out = append(out, mapIssue(owner, repo, issue))
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (d *Directory) CreateIssue(ctx context.Context, input ports.NewIssue) (string, error) {
	owner, repo, err := SplitRepo(input.ProjectKey)
	if err != nil {
		return "", err
	}

	req := &gh.IssueRequest{
		Title: gh.Ptr(input.Summary),
		Body:  gh.Ptr(input.Description),
	}
	if input.ParentKey != "" {
		req.Labels = &[]string{input.ParentKey}
	}

	created, resp, err := d.client.Issues.Create(ctx, owner, repo, req)
	if err != nil {
		return "", classify(resp, errs.Wrap(err, "create github issue"))
	}
	if created == nil || created.GetNumber() == 0 {
		return "", errors.New("github returned no issue number")
	}
	return IssueKey(owner, repo, created.GetNumber()), nil
}

func (d *Directory) TransitionIssue(ctx context.Context, key string, transitionID string) error {
	owner, repo, number, err := ParseIssueKey(key)
	if err != nil {
		return err
	}

	state := strings.ToLower(strings.TrimSpace(transitionID))
	req := &gh.IssueRequest{State: gh.Ptr(state)}
	switch state {
	case StateClosed:
		req.StateReason = gh.Ptr("completed")
	case StateOpen:
		req.StateReason = gh.Ptr("reopened")
	default:
		return errs.Permanent(fmt.Errorf("unknown github transition %q", transitionID))
	}

	_, resp, err := d.client.Issues.Edit(ctx, owner, repo, number, req)
	if err != nil {
		return classify(resp, errs.Wrapf(err, "set %s to %s", key, state))
	}
	return nil
}

func (d *Directory) AssignIssue(ctx context.Context, key string, identity string) error {
	owner, repo, number, err := ParseIssueKey(key)
	if err != nil {
		return err
	}

	_, resp, err := d.client.Issues.AddAssignees(ctx, owner, repo, number, []string{identity})
	if err != nil {
		return classify(resp, errs.Wrapf(err, "assign %s to %s", key, identity))
	}
	return nil
}

func (d *Directory) ListTransitions(_ context.Context, key string) ([]ports.Transition, error) {
	if _, _, _, err := ParseIssueKey(key); err != nil {
		return nil, err
	}
	return []ports.Transition{
		{ID: StateOpen, Name: "Reopen", ToStatus: StateOpen},
		{ID: StateClosed, Name: "Close", ToStatus: StateClosed},
	}, nil
}

func SplitRepo(projectKey string) (string, string, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(projectKey), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", errs.Permanent(fmt.Errorf("github project key %q must look like owner/repo", projectKey))
	}
	return owner, repo, nil
}

func IssueKey(owner string, repo string, number int) string {
	return owner + "/" + repo + "#" + strconv.Itoa(number)
}

func ParseIssueKey(key string) (string, string, int, error) {
	project, rawNumber, ok := strings.Cut(strings.TrimSpace(key), "#")
	if !ok {
		return "", "", 0, errs.Permanent(fmt.Errorf("github issue key %q must look like owner/repo#number", key))
	}
	owner, repo, err := SplitRepo(project)
	if err != nil {
		return "", "", 0, err
	}
	number, err := strconv.Atoi(rawNumber)
	if err != nil || number <= 0 {
		return "", "", 0, errs.Permanent(fmt.Errorf("github issue key %q has an invalid number", key))
	}
	return owner, repo, number, nil
}

func mapIssue(owner string, repo string, issue *gh.Issue) reconcile.TrackedIssue {
	out := reconcile.TrackedIssue{
		Key:     IssueKey(owner, repo, issue.GetNumber()),
		Summary: issue.GetTitle(),
		Status:  issue.GetState(),
	}
	if len(issue.Assignees) > 0 {
		out.Assignee = issue.Assignees[0].GetLogin()
	} else if issue.Assignee != nil {
		out.Assignee = issue.Assignee.GetLogin()
	}
	return out
}

func classify(resp *gh.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusGone, http.StatusUnprocessableEntity:
		return errs.Permanent(err)
	default:
		return err
	}
}
