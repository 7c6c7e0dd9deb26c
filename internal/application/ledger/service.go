package ledger

import (
	"context"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OpenApplicationCounter counts non-terminal applications per department
type OpenApplicationCounter interface {
	CountOpenByDepartment(ctx context.Context) (map[uuid.UUID]int64, error)
}

// ActiveDepartments lists the departments that receive backlog snapshots
type ActiveDepartments interface {
	FindActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Authorizer checks an actor's capability in a department
type Authorizer interface {
	Require(ctx context.Context, actor identity.Actor, departmentID uuid.UUID, capability identity.Capability) error
}

// Service appends to the activity trail and maintains metric records
type Service struct {
	activities  ledger.ActivityRepository
	metrics     ledger.MetricRepository
	open        OpenApplicationCounter
	departments ActiveDepartments
	authorizer  Authorizer
	logger      *zap.Logger
}

// NewService creates a new ledger service
func NewService(
	activities ledger.ActivityRepository,
	metrics ledger.MetricRepository,
	open OpenApplicationCounter,
	departments ActiveDepartments,
	authorizer Authorizer,
	logger *zap.Logger,
) *Service {
	return &Service{
		activities:  activities,
		metrics:     metrics,
		open:        open,
		departments: departments,
		authorizer:  authorizer,
		logger:      logger,
	}
}

// Record appends one activity record. It fails only with InvalidInput for a
// malformed record or StorageUnavailable, which the caller should retry.
func (s *Service) Record(ctx context.Context, rec *ledger.ActivityRecord) error {
	if rec == nil || rec.ID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Activity record is required")
	}
	if err := s.activities.Append(ctx, rec); err != nil {
		s.logger.Error("Failed to append activity record",
			zap.String("action", string(rec.Action)),
			zap.String("resource_id", rec.ResourceID.String()),
			zap.Error(err))
		return err
	}
	return nil
}

// IncrementMetric atomically adds delta to the record at (department, type, period, date).
// The record is created at zero first if it does not exist.
func (s *Service) IncrementMetric(ctx context.Context, departmentID uuid.UUID, metricType ledger.MetricType,
	period ledger.Period, date time.Time, delta decimal.Decimal) error {
	inc := ledger.MetricIncrement{
		MetricKey: ledger.MetricKey{
			DepartmentID: departmentID,
			MetricType:   metricType,
			Period:       period,
			Date:         period.DateKey(date),
		},
		Delta: delta,
	}
	if err := inc.Validate(shared.Now()); err != nil {
		return err
	}
	return s.metrics.Increment(ctx, inc)
}

// SnapshotBacklog writes today's backlog gauge for every active department
func (s *Service) SnapshotBacklog(ctx context.Context) (int, error) {
	counts, err := s.open.CountOpenByDepartment(ctx)
	if err != nil {
		return 0, err
	}
	depts, err := s.departments.FindActiveIDs(ctx)
	if err != nil {
		return 0, err
	}

	now := shared.Now()
	for _, id := range depts {
		key := ledger.MetricKey{
			DepartmentID: id,
			MetricType:   ledger.MetricBacklog,
			Period:       ledger.PeriodDaily,
			Date:         ledger.PeriodDaily.DateKey(now),
		}
		if err := s.metrics.Set(ctx, key, decimal.NewFromInt(counts[id])); err != nil {
			return 0, err
		}
	}

	s.logger.Info("Backlog snapshot written", zap.Int("departments", len(depts)))
	return len(depts), nil
}

// ActivityTrail lists activity records. Department listings require can_view_analytics.
func (s *Service) ActivityTrail(ctx context.Context, actor identity.Actor, query ledger.ActivityQuery) (shared.Paginated[ActivityDTO], error) {
	if query.DepartmentID != nil {
		if err := s.authorizer.Require(ctx, actor, *query.DepartmentID, identity.CanViewAnalytics); err != nil {
			return shared.Paginated[ActivityDTO]{}, err
		}
	}
	return s.activityPage(ctx, query)
}

// ApplicationTrail lists the activity records of one application for a caller
// who has already been authorized to read it.
func (s *Service) ApplicationTrail(ctx context.Context, applicationID uuid.UUID, filter shared.Filter) (shared.Paginated[ActivityDTO], error) {
	return s.activityPage(ctx, ledger.ActivityQuery{
		Filter:       filter,
		ResourceType: ledger.ResourceApplication,
		ResourceID:   &applicationID,
	})
}

func (s *Service) activityPage(ctx context.Context, query ledger.ActivityQuery) (shared.Paginated[ActivityDTO], error) {
	query.Filter = query.Filter.Normalize()
	records, total, err := s.activities.Find(ctx, query)
	if err != nil {
		return shared.Paginated[ActivityDTO]{}, err
	}
	items := make([]ActivityDTO, len(records))
	for i, r := range records {
		items[i] = ToActivityDTO(r)
	}
	return shared.NewPaginated(items, total, query.Page, query.PageSize), nil
}

// MetricSeries returns a department's metric series. Requires can_view_analytics.
func (s *Service) MetricSeries(ctx context.Context, actor identity.Actor, query ledger.MetricQuery) ([]MetricDTO, error) {
	if err := s.authorizer.Require(ctx, actor, query.DepartmentID, identity.CanViewAnalytics); err != nil {
		return nil, err
	}
	if _, err := ledger.ParsePeriod(string(query.Period)); err != nil {
		return nil, err
	}
	if !query.To.IsZero() && query.To.Before(query.From) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Range end is before range start")
	}

	records, err := s.metrics.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]MetricDTO, len(records))
	for i, r := range records {
		out[i] = ToMetricDTO(r)
	}
	return out, nil
}
