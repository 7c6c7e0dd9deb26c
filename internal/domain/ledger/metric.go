package ledger

import (
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MetricType names an aggregate counter
type MetricType string

const (
	MetricSubmissions   MetricType = "applications_submitted"
	MetricAdvancements  MetricType = "stage_advancements"
	MetricCompletions   MetricType = "applications_approved"
	MetricRejections    MetricType = "applications_rejected"
	MetricReassignments MetricType = "stage_reassignments"
	// MetricReviewHours accumulates submission-to-decision hours of terminal applications
	MetricReviewHours MetricType = "review_hours"
	// MetricBacklog is a gauge written by the backlog snapshot, not incremented
	MetricBacklog MetricType = "backlog"
)

// Period is the bucket width of a metric record
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod validates a period name
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDaily, PeriodMonthly:
		return Period(s), nil
	}
	return "", shared.NewDomainError(shared.CodeInvalidInput, "Unknown metric period: "+s)
}

// DateKey returns the bucket start for t: midnight UTC for daily, the first of the month for monthly
func (p Period) DateKey(t time.Time) time.Time {
	t = t.UTC()
	switch p {
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// MetricKey identifies one metric record
type MetricKey struct {
	DepartmentID uuid.UUID
	MetricType   MetricType
	Period       Period
	Date         time.Time
}

// MetricRecord is a keyed aggregate value
type MetricRecord struct {
	ID uuid.UUID
	MetricKey
	Value     decimal.Decimal
	UpdatedAt time.Time
}

// MetricIncrement adds Delta to the record at Key, creating it at zero first if needed
type MetricIncrement struct {
	MetricKey
	Delta decimal.Decimal
}

// NewMetricIncrement builds an increment for the bucket of period containing at
func NewMetricIncrement(departmentID uuid.UUID, metricType MetricType, period Period, at time.Time, delta decimal.Decimal) MetricIncrement {
	return MetricIncrement{
		MetricKey: MetricKey{
			DepartmentID: departmentID,
			MetricType:   metricType,
			Period:       period,
			Date:         period.DateKey(at),
		},
		Delta: delta,
	}
}

// IncrementsFor builds one increment per period for the same event
func IncrementsFor(departmentID uuid.UUID, metricType MetricType, at time.Time, delta decimal.Decimal, periods ...Period) []MetricIncrement {
	out := make([]MetricIncrement, 0, len(periods))
	for _, p := range periods {
		out = append(out, NewMetricIncrement(departmentID, metricType, p, at, delta))
	}
	return out
}

// Validate rejects malformed increments and increments dated before the
// current bucket of their period.
func (m MetricIncrement) Validate(now time.Time) error {
	if m.DepartmentID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Metric increment requires a department")
	}
	if m.MetricType == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Metric increment requires a metric type")
	}
	if _, err := ParsePeriod(string(m.Period)); err != nil {
		return err
	}
	if !m.Date.Equal(m.Period.DateKey(m.Date)) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Metric date must be the start of its period")
	}
	if m.Date.Before(m.Period.DateKey(now)) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Metric increments cannot be backdated")
	}
	if m.Delta.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Metric increments must be non-negative")
	}
	return nil
}

// MetricQuery selects a metric series
type MetricQuery struct {
	DepartmentID uuid.UUID
	MetricType   MetricType
	Period       Period
	From         time.Time
	To           time.Time
}
