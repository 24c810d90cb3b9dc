package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"dbdoc/internal/errs"
	"dbdoc/internal/ports"
)

const DefaultSubject = "dbdoc.runs"

type Config struct {
	URL     string
	Subject string
	Name    string
	Timeout time.Duration
}

type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Publisher sends one JSON message per finished run.
type Publisher struct {
	conn    conn
	subject string
}

var _ ports.RunPublisher = (*Publisher)(nil)

func Connect(cfg Config) (*Publisher, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	name := cfg.Name
	if name == "" {
		name = "dbdoc"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(timeout),
		nats.MaxReconnects(3),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", url)
	}
	return newPublisher(nc, cfg.Subject), nil
}

func newPublisher(c conn, subject string) *Publisher {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: c, subject: subject}
}

func (p *Publisher) Subject() string {
	return p.subject
}

func (p *Publisher) PublishRun(ctx context.Context, run ports.Run, actions []ports.RunAction) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	data, err := EncodeRun(run, actions)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return errs.Wrapf(err, "publish run %s", run.RunID)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errs.Wrapf(err, "flush run %s", run.RunID)
	}
	return nil
}

// Close drains pending messages before closing the connection.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

type runEvent struct {
	RunID      string        `json:"run_id"`
	Mode       string        `json:"mode"`
	DryRun     bool          `json:"dry_run"`
	StartedAt  string        `json:"started_at"`
	FinishedAt string        `json:"finished_at"`
	Findings   int           `json:"findings"`
	Issues     int           `json:"issues"`
	Applied    int           `json:"applied"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Error      string        `json:"error,omitempty"`
	Actions    []actionEvent `json:"actions"`
}

type actionEvent struct {
	Seq      int    `json:"seq"`
	Action   string `json:"action"`
	Status   string `json:"status"`
	Summary  string `json:"summary"`
	IssueKey string `json:"issue_key,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Assignee string `json:"assignee,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Attempts int    `json:"attempts"`
}

func EncodeRun(run ports.Run, actions []ports.RunAction) ([]byte, error) {
	event := runEvent{
		RunID:      run.RunID,
		Mode:       run.Mode,
		DryRun:     run.DryRun,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Findings:   run.Findings,
		Issues:     run.Issues,
		Applied:    run.Applied,
		Skipped:    run.Skipped,
		Failed:     run.Failed,
		Error:      run.Error,
		Actions:    make([]actionEvent, 0, len(actions)),
	}
	for _, a := range actions {
		event.Actions = append(event.Actions, actionEvent{
			Seq:      a.Seq,
			Action:   a.Action,
			Status:   a.Status,
			Summary:  a.Summary,
			IssueKey: a.IssueKey,
			Owner:    a.Owner,
			Assignee: a.Assignee,
			Detail:   a.Detail,
			Attempts: a.Attempts,
		})
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, errs.Wrap(err, "encode run event")
	}
	return data, nil
}
