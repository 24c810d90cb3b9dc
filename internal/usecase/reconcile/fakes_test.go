package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domain "dbdoc/internal/domain/reconcile"
	"dbdoc/internal/ports"
)

type fakeSource struct {
	findings []domain.Finding
	err      error
}

func (f *fakeSource) ListFindings(context.Context) ([]domain.Finding, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Finding(nil), f.findings...), nil
}

// fakeDirectory is an in-memory tracker. Search is a substring match, like
// the fuzzy text search real trackers do.
type fakeDirectory struct {
	mu     sync.Mutex
	issues map[string]*domain.TrackedIssue
	nextID int

	checkErr  error
	listErr   error
	searchErr map[string]error
	// failures holds errors returned by the next calls of a method, in order.
	failures map[string][]error

	calls []string
}

func newFakeDirectory(issues ...domain.TrackedIssue) *fakeDirectory {
	d := &fakeDirectory{
		issues:    make(map[string]*domain.TrackedIssue),
		nextID:    990,
		searchErr: make(map[string]error),
		failures:  make(map[string][]error),
	}
	for _, issue := range issues {
		issue := issue
		d.issues[issue.Key] = &issue
	}
	return d
}

func (d *fakeDirectory) failNext(method string, errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[method] = append(d.failures[method], errs...)
}

func (d *fakeDirectory) record(call string) error {
	d.calls = append(d.calls, call)
	method, _, _ := strings.Cut(call, " ")
	queue := d.failures[method]
	if len(queue) == 0 {
		return nil
	}
	d.failures[method] = queue[1:]
	return queue[0]
}

func (d *fakeDirectory) callsOf(method string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, c := range d.calls {
		if strings.HasPrefix(c, method+" ") || c == method {
			out = append(out, c)
		}
	}
	return out
}

func (d *fakeDirectory) issue(key string) domain.TrackedIssue {
	d.mu.Lock()
	defer d.mu.Unlock()
	if issue, ok := d.issues[key]; ok {
		return *issue
	}
	return domain.TrackedIssue{}
}

func (d *fakeDirectory) Check(context.Context) error {
	return d.checkErr
}

func (d *fakeDirectory) ListTrackedIssues(context.Context, string, string) ([]domain.TrackedIssue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	out := make([]domain.TrackedIssue, 0, len(d.issues))
	for _, issue := range d.issues {
		out = append(out, *issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (d *fakeDirectory) FindIssuesBySummary(_ context.Context, _ string, summary string) ([]domain.TrackedIssue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.searchErr[summary]; err != nil {
		return nil, err
	}
	var out []domain.TrackedIssue
	for _, issue := range d.issues {
		if strings.Contains(issue.Summary, summary) {
			out = append(out, *issue)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (d *fakeDirectory) CreateIssue(_ context.Context, input ports.NewIssue) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("create " + input.Summary); err != nil {
		return "", err
	}
	d.nextID++
	key := fmt.Sprintf("EI-%d", d.nextID)
	d.issues[key] = &domain.TrackedIssue{Key: key, Summary: input.Summary, Status: "Open"}
	return key, nil
}

func (d *fakeDirectory) TransitionIssue(_ context.Context, key string, transitionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("transition " + key + " " + transitionID); err != nil {
		return err
	}
	issue, ok := d.issues[key]
	if !ok {
		return errors.New("issue not found")
	}
	switch transitionID {
	case testTransitions.Close:
		issue.Status = "Done"
	case testTransitions.Reopen:
		issue.Status = "Open"
	}
	return nil
}

func (d *fakeDirectory) AssignIssue(_ context.Context, key string, identity string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("assign " + key + " " + identity); err != nil {
		return err
	}
	issue, ok := d.issues[key]
	if !ok {
		return errors.New("issue not found")
	}
	issue.Assignee = identity
	return nil
}

func (d *fakeDirectory) ListTransitions(_ context.Context, key string) ([]ports.Transition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.issues[key]; !ok {
		return nil, errors.New("issue not found")
	}
	return []ports.Transition{
		{ID: testTransitions.Reopen, Name: "Reopen", ToStatus: "Open"},
		{ID: testTransitions.Close, Name: "Close", ToStatus: "Done"},
	}, nil
}

type recordingPublisher struct {
	runs    []ports.Run
	actions [][]ports.RunAction
	err     error
}

func (p *recordingPublisher) PublishRun(_ context.Context, run ports.Run, actions []ports.RunAction) error {
	p.runs = append(p.runs, run)
	p.actions = append(p.actions, actions)
	return p.err
}

var testTransitions = Transitions{Close: "41", Reopen: "11"}

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func tableFinding(schema, table, owner string) domain.Finding {
	return domain.Finding{Schema: schema, Table: table, Kind: domain.KindTable, Owner: owner}
}

func columnFinding(schema, table, column, owner string) domain.Finding {
	return domain.Finding{Schema: schema, Table: table, Kind: domain.KindColumn, Column: column, Owner: owner}
}

func testSettings(owners domain.OwnershipMap) Settings {
	return Settings{
		ProjectKey:     "EI",
		ParentKey:      "EI-920",
		Policy:         domain.NewStatusPolicy(domain.DefaultSentinelSummary, nil),
		Owners:         owners,
		PublishFilters: domain.DefaultPublishFilters(),
	}
}

func newTestService(source *fakeSource, directory *fakeDirectory, settings Settings, opts ...Option) *Service {
	executor := NewExecutor(directory, ExecutorConfig{
		ProjectKey:  settings.ProjectKey,
		ParentKey:   settings.ParentKey,
		IssueType:   "Sub-task",
		Transitions: testTransitions,
		Retry:       RetryPolicy{MaxAttempts: 3, Delay: 0},
	})
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	svc := NewService(source, directory, executor, settings, opts...)
	ids := 0
	svc.newRunID = func() string {
		ids++
		return fmt.Sprintf("run-%d", ids)
	}
	return svc
}
