package persistence

import (
	"context"

	"github.com/afrinict/nbcportal-sub001/internal/application/transaction"
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
	"gorm.io/gorm"
)

// GormScope implements transaction.Scope using GORM transactions.
// Repositories handed to the callback share one database transaction, and
// events saved through Events() land in the outbox of that same transaction.
type GormScope struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormScope creates a new GormScope. outbox may be nil, in which case events are discarded.
func NewGormScope(db *gorm.DB, outbox shared.OutboxEventSaver) *GormScope {
	return &GormScope{db: db, outbox: outbox}
}

// Execute runs fn within a database transaction
func (s *GormScope) Execute(ctx context.Context, fn func(repos transaction.Repositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{tx: tx, outbox: s.outbox})
	})
	return translateError(err)
}

type gormRepositories struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

func (r *gormRepositories) Departments() identity.DepartmentRepository {
	return NewGormDepartmentRepository(r.tx)
}

func (r *gormRepositories) Grants() identity.GrantRepository {
	return NewGormGrantRepository(r.tx)
}

func (r *gormRepositories) Workflows() workflow.Repository {
	return NewGormWorkflowRepository(r.tx)
}

func (r *gormRepositories) Applications() licensing.Repository {
	return NewGormApplicationRepository(r.tx)
}

func (r *gormRepositories) Activities() ledger.ActivityRepository {
	return NewGormActivityRepository(r.tx)
}

func (r *gormRepositories) Metrics() ledger.MetricRepository {
	return NewGormMetricRepository(r.tx)
}

func (r *gormRepositories) Events() transaction.EventSink {
	return outboxSink{tx: r.tx, outbox: r.outbox}
}

type outboxSink struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

func (s outboxSink) Save(ctx context.Context, events ...shared.DomainEvent) error {
	if s.outbox == nil || len(events) == 0 {
		return nil
	}
	return s.outbox.SaveEvents(ctx, s.tx, events...)
}

// Ensure GormScope implements transaction.Scope
var _ transaction.Scope = (*GormScope)(nil)

// Ensure gormRepositories implements transaction.Repositories
var _ transaction.Repositories = (*gormRepositories)(nil)
