package ledger

import (
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActivityDTO represents one activity record
type ActivityDTO struct {
	ID           uuid.UUID      `json:"id"`
	DepartmentID uuid.UUID      `json:"department_id"`
	ActorID      uuid.UUID      `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   uuid.UUID      `json:"resource_id"`
	Override     bool           `json:"override"`
	Details      map[string]any `json:"details,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// MetricDTO represents one metric record
type MetricDTO struct {
	DepartmentID uuid.UUID       `json:"department_id"`
	MetricType   string          `json:"metric_type"`
	Period       string          `json:"period"`
	Date         string          `json:"date"`
	Value        decimal.Decimal `json:"value"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToActivityDTO converts a domain activity record
func ToActivityDTO(r *ledger.ActivityRecord) ActivityDTO {
	return ActivityDTO{
		ID:           r.ID,
		DepartmentID: r.DepartmentID,
		ActorID:      r.ActorID,
		Action:       string(r.Action),
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		Override:     r.Override,
		Details:      r.Details,
		OccurredAt:   r.OccurredAt,
	}
}

// ToMetricDTO converts a domain metric record
func ToMetricDTO(r *ledger.MetricRecord) MetricDTO {
	return MetricDTO{
		DepartmentID: r.DepartmentID,
		MetricType:   string(r.MetricType),
		Period:       string(r.Period),
		Date:         r.Date.Format("2006-01-02"),
		Value:        r.Value,
		UpdatedAt:    r.UpdatedAt,
	}
}
