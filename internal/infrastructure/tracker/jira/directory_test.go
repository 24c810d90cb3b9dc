package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"dbdoc/internal/errs"
	"dbdoc/internal/ports"
)

func newTestDirectory(t *testing.T, handler http.Handler) *Directory {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir, err := New(Config{Server: srv.URL, Username: "bot@example.com", APIKey: "secret", PageSize: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return dir
}

func TestListTrackedIssuesPaginates(t *testing.T) {
	all := []string{
		`{"key":"EI-921","fields":{"summary":"DO NOT REMOVE","status":{"name":"Open"}}}`,
		`{"key":"EI-981","fields":{"summary":"Missing COMMENT on sales.orders","status":{"name":"In Progress"},"assignee":{"accountId":"acc-alice"}}}`,
		`{"key":"EI-982","fields":{"summary":"Missing COMMENT on sales.orders.total","status":{"name":"Done"}}}`,
	}

	var jqls []string
	dir := newTestDirectory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/search" {
			http.NotFound(w, r)
			return
		}
		if user, _, ok := r.BasicAuth(); !ok || user != "bot@example.com" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		jqls = append(jqls, r.URL.Query().Get("jql"))
		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		end := startAt + 2
		if end > len(all) {
			end = len(all)
		}
		fmt.Fprintf(w, `{"startAt":%d,"maxResults":2,"total":%d,"issues":[%s]}`, startAt, len(all), strings.Join(all[startAt:end], ","))
	}))

	issues, err := dir.ListTrackedIssues(context.Background(), "EI", "EI-920")
	if err != nil {
		t.Fatalf("ListTrackedIssues() error = %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("ListTrackedIssues() len = %d", len(issues))
	}
	if len(jqls) != 2 {
		t.Fatalf("search calls = %d", len(jqls))
	}
	if jqls[0] != `project = "EI" AND parent = "EI-920" ORDER BY key ASC` {
		t.Fatalf("jql = %q", jqls[0])
	}
	if issues[1].Key != "EI-981" || issues[1].Status != "In Progress" || issues[1].Assignee != "acc-alice" {
		t.Fatalf("issues[1] = %#v", issues[1])
	}
}

func TestFindIssuesBySummaryUsesPhraseSearch(t *testing.T) {
	var jql string
	dir := newTestDirectory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jql = r.URL.Query().Get("jql")
		fmt.Fprint(w, `{"startAt":0,"maxResults":50,"total":1,"issues":[{"key":"EI-981","fields":{"summary":"Missing COMMENT on sales.orders","status":{"name":"Resolved"}}}]}`)
	}))

	issues, err := dir.FindIssuesBySummary(context.Background(), "EI", "Missing COMMENT on sales.orders")
	if err != nil {
		t.Fatalf("FindIssuesBySummary() error = %v", err)
	}
	if want := `project = "EI" AND summary ~ "\"Missing COMMENT on sales.orders\""`; jql != want {
		t.Fatalf("jql = %q, want %q", jql, want)
	}
	if len(issues) != 1 || issues[0].Status != "Resolved" {
		t.Fatalf("issues = %#v", issues)
	}
}

func TestFindIssuesBySummaryReadsEveryPage(t *testing.T) {
	var all []string
	for i := 0; i < 60; i++ {
		all = append(all, fmt.Sprintf(`{"key":"EI-%d","fields":{"summary":"Missing COMMENT on sales.orders.col_%02d","status":{"name":"Open"}}}`, 1000+i, i))
	}
	all = append(all, `{"key":"EI-981","fields":{"summary":"Missing COMMENT on sales.orders","status":{"name":"Resolved"}}}`)

	calls := 0
	dir := newTestDirectory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))
		end := startAt + maxResults
		if end > len(all) {
			end = len(all)
		}
		fmt.Fprintf(w, `{"startAt":%d,"maxResults":%d,"total":%d,"issues":[%s]}`, startAt, maxResults, len(all), strings.Join(all[startAt:end], ","))
	}))

	issues, err := dir.FindIssuesBySummary(context.Background(), "EI", "Missing COMMENT on sales.orders")
	if err != nil {
		t.Fatalf("FindIssuesBySummary() error = %v", err)
	}
	if len(issues) != len(all) || calls != 2 {
		t.Fatalf("FindIssuesBySummary() len = %d calls = %d, want %d in 2 calls", len(issues), calls, len(all))
	}
	last := issues[len(issues)-1]
	if last.Key != "EI-981" || last.Status != "Resolved" {
		t.Fatalf("last candidate = %#v", last)
	}
}

func TestCreateIssueSendsParentAndType(t *testing.T) {
	var body map[string]any
	dir := newTestDirectory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/api/2/issue" {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"10990","key":"EI-990","self":"x"}`)
	}))

	key, err := dir.CreateIssue(context.Background(), ports.NewIssue{
		ProjectKey:  "EI",
		ParentKey:   "EI-920",
		Summary:     "Missing COMMENT on sales.orders",
		Description: "The table `sales.orders` is missing a COMMENT.",
	})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if key != "EI-990" {
		t.Fatalf("CreateIssue() key = %q", key)
	}

	fields, _ := body["fields"].(map[string]any)
	parent, _ := fields["parent"].(map[string]any)
	issueType, _ := fields["issuetype"].(map[string]any)
	if parent["key"] != "EI-920" || issueType["name"] != "Sub-task" || fields["summary"] != "Missing COMMENT on sales.orders" {
		t.Fatalf("create body = %#v", body)
	}
}

func TestTransitionIssuePostsTransitionID(t *testing.T) {
	var body map[string]any
	var path string
	dir := newTestDirectory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := dir.TransitionIssue(context.Background(), "EI-981", "41"); err != nil {
		t.Fatalf("TransitionIssue() error = %v", err)
	}
	if path != "/rest/api/2/issue/EI-981/transitions" {
		t.Fatalf("path = %q", path)
	}
	transition, _ := body["transition"].(map[string]any)
	if transition["id"] != "41" {
		t.Fatalf("transition body = %#v", body)
	}
}

func TestAssignIssueClassifiesFailures(t *testing.T) {
	status := http.StatusUnauthorized
	var body map[string]any
	dir := newTestDirectory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(status)
	}))
	ctx := context.Background()

	err := dir.AssignIssue(ctx, "EI-990", "acc-alice")
	if err == nil || !errs.IsPermanent(err) {
		t.Fatalf("AssignIssue(401) error = %v, want permanent", err)
	}
	if body["accountId"] != "acc-alice" {
		t.Fatalf("assign body = %#v", body)
	}

	status = http.StatusNotFound
	err = dir.AssignIssue(ctx, "EI-990", "acc-alice")
	if err == nil || errs.IsPermanent(err) {
		t.Fatalf("AssignIssue(404) error = %v, want retryable", err)
	}

	status = http.StatusNoContent
	if err := dir.AssignIssue(ctx, "EI-990", "acc-alice"); err != nil {
		t.Fatalf("AssignIssue(204) error = %v", err)
	}
}

func TestListTransitions(t *testing.T) {
	dir := newTestDirectory(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"transitions":[{"id":"11","name":"Reopen","to":{"name":"Open"}},{"id":"41","name":"Close","to":{"name":"Done"}}]}`)
	}))

	transitions, err := dir.ListTransitions(context.Background(), "EI-981")
	if err != nil {
		t.Fatalf("ListTransitions() error = %v", err)
	}
	if len(transitions) != 2 || transitions[1].ID != "41" || transitions[1].ToStatus != "Done" {
		t.Fatalf("ListTransitions() = %#v", transitions)
	}
}

func TestQuoteJQL(t *testing.T) {
	got := QuoteJQL(`Missing COMMENT on "odd"\schema.t`)
	if want := `"Missing COMMENT on \"odd\"\\schema.t"`; got != want {
		t.Fatalf("QuoteJQL() = %q, want %q", got, want)
	}
}

func TestNewRequiresServer(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("New() expected error without server")
	}
}
