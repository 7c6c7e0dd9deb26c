package transaction

import (
	"context"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
)

// Scope runs a unit of work atomically.
// When a function is executed within a scope, all repository operations are
// part of the same database transaction and are committed or rolled back together.
type Scope interface {
	// Execute runs fn within a transaction. If fn returns an error the
	// transaction is rolled back and the error is returned unchanged.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to every repository bound to the current transaction
type Repositories interface {
	Departments() identity.DepartmentRepository
	Grants() identity.GrantRepository
	Workflows() workflow.Repository
	Applications() licensing.Repository
	Activities() ledger.ActivityRepository
	Metrics() ledger.MetricRepository
	// Events writes domain events to the outbox inside the transaction
	Events() EventSink
}

// EventSink stores domain events for later publication
type EventSink interface {
	Save(ctx context.Context, events ...shared.DomainEvent) error
}

// NoOpScope runs functions without a real transaction.
// This is useful for testing or when transaction support is not required.
type NoOpScope struct {
	DepartmentRepo  identity.DepartmentRepository
	GrantRepo       identity.GrantRepository
	WorkflowRepo    workflow.Repository
	ApplicationRepo licensing.Repository
	ActivityRepo    ledger.ActivityRepository
	MetricRepo      ledger.MetricRepository
	Sink            EventSink
}

// Execute runs fn directly against the wrapped repositories
func (s *NoOpScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s)
}

// Departments returns the department repository
func (s *NoOpScope) Departments() identity.DepartmentRepository { return s.DepartmentRepo }

// Grants returns the grant repository
func (s *NoOpScope) Grants() identity.GrantRepository { return s.GrantRepo }

// Workflows returns the workflow repository
func (s *NoOpScope) Workflows() workflow.Repository { return s.WorkflowRepo }

// Applications returns the application repository
func (s *NoOpScope) Applications() licensing.Repository { return s.ApplicationRepo }

// Activities returns the activity repository
func (s *NoOpScope) Activities() ledger.ActivityRepository { return s.ActivityRepo }

// Metrics returns the metric repository
func (s *NoOpScope) Metrics() ledger.MetricRepository { return s.MetricRepo }

// Events returns the event sink, discarding events when none is configured
func (s *NoOpScope) Events() EventSink {
	if s.Sink == nil {
		return discardSink{}
	}
	return s.Sink
}

type discardSink struct{}

func (discardSink) Save(context.Context, ...shared.DomainEvent) error { return nil }

// Ensure NoOpScope implements both interfaces
var _ Scope = (*NoOpScope)(nil)
var _ Repositories = (*NoOpScope)(nil)
