package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "dbdoc/internal/domain/reconcile"
	"dbdoc/internal/errs"
	"dbdoc/internal/ports"
)

// Settings is everything a run needs to know about the tracker and the
// filters; it is built from config at startup and never mutated.
type Settings struct {
	ProjectKey     string
	ParentKey      string
	Policy         domain.StatusPolicy
	Owners         domain.OwnershipMap
	PublishFilters domain.FilterSet
	SweepFilters   domain.FilterSet
	// MaxCloses aborts a sweep that would close more issues; 0 disables it.
	MaxCloses int
}

type Service struct {
	source    ports.FindingSource
	directory ports.IssueDirectory
	executor  *Executor
	ledger    ports.RunLedger
	uow       ports.UnitOfWork
	publisher ports.RunPublisher
	settings  Settings

	now      func() time.Time
	newRunID func() string
}

type Option func(*Service)

// WithLedger records every run; uow may be nil.
func WithLedger(ledger ports.RunLedger, uow ports.UnitOfWork) Option {
	return func(s *Service) {
		s.ledger = ledger
		s.uow = uow
	}
}

func WithPublisher(publisher ports.RunPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the reconciler with its collaborators.
func NewService(source ports.FindingSource, directory ports.IssueDirectory, executor *Executor, settings Settings, opts ...Option) *Service {
	s := &Service{
		source:    source,
		directory: directory,
		executor:  executor,
		settings:  settings,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RunOptions struct {
	DryRun bool
}

func (s *Service) validate(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.source == nil {
		return errors.New("finding source is required")
	}
	if s.directory == nil {
		return errors.New("issue directory is required")
	}
	if s.executor == nil {
		return errors.New("action executor is required")
	}
	if s.settings.ProjectKey == "" {
		return errors.New("tracker project key is required")
	}
	return nil
}

func (s *Service) startReport(mode domain.Mode, dryRun bool) Report {
	return Report{
		RunID:     s.newRunID(),
		Mode:      mode,
		DryRun:    dryRun,
		StartedAt: s.now().UTC(),
	}
}

func connectionError(collaborator string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrConnection, collaborator, err)
}
