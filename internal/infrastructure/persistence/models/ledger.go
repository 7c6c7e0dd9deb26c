package models

import (
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ActivityRecordModel is the persistence model for the append-only activity trail
type ActivityRecordModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	DepartmentID uuid.UUID         `gorm:"type:uuid;not null;index:idx_activity_department_time,priority:1"`
	ActorID      uuid.UUID         `gorm:"type:uuid;not null"`
	Action       string            `gorm:"type:varchar(50);not null"`
	ResourceType string            `gorm:"type:varchar(50);not null;index:idx_activity_resource,priority:1"`
	ResourceID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_activity_resource,priority:2"`
	Override     bool              `gorm:"not null;default:false"`
	Details      datatypes.JSONMap `gorm:"not null"`
	OccurredAt   time.Time         `gorm:"not null;index:idx_activity_department_time,priority:2"`
}

// TableName returns the table name for GORM
func (ActivityRecordModel) TableName() string {
	return "activity_records"
}

// ToDomain converts the persistence model to a domain ActivityRecord
func (m *ActivityRecordModel) ToDomain() *ledger.ActivityRecord {
	details := make(map[string]any, len(m.Details))
	for k, v := range m.Details {
		details[k] = v
	}
	return &ledger.ActivityRecord{
		ID:           m.ID,
		DepartmentID: m.DepartmentID,
		ActorID:      m.ActorID,
		Action:       ledger.Action(m.Action),
		ResourceType: m.ResourceType,
		ResourceID:   m.ResourceID,
		Override:     m.Override,
		Details:      details,
		OccurredAt:   m.OccurredAt.UTC(),
	}
}

// ActivityRecordModelFromDomain creates a new persistence model from a domain ActivityRecord
func ActivityRecordModelFromDomain(r *ledger.ActivityRecord) *ActivityRecordModel {
	details := datatypes.JSONMap{}
	for k, v := range r.Details {
		details[k] = v
	}
	return &ActivityRecordModel{
		ID:           r.ID,
		DepartmentID: r.DepartmentID,
		ActorID:      r.ActorID,
		Action:       string(r.Action),
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		Override:     r.Override,
		Details:      details,
		OccurredAt:   r.OccurredAt,
	}
}

// MetricRecordModel is the persistence model for keyed metric records.
// The four key columns carry a unique index so increments can upsert.
type MetricRecordModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DepartmentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_metric_key,priority:1"`
	MetricType   string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_metric_key,priority:2"`
	Period       string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_metric_key,priority:3"`
	BucketDate   time.Time       `gorm:"type:date;not null;uniqueIndex:idx_metric_key,priority:4"`
	Value        decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MetricRecordModel) TableName() string {
	return "metric_records"
}

// ToDomain converts the persistence model to a domain MetricRecord
func (m *MetricRecordModel) ToDomain() *ledger.MetricRecord {
	return &ledger.MetricRecord{
		ID: m.ID,
		MetricKey: ledger.MetricKey{
			DepartmentID: m.DepartmentID,
			MetricType:   ledger.MetricType(m.MetricType),
			Period:       ledger.Period(m.Period),
			Date:         m.BucketDate.UTC(),
		},
		Value:     m.Value,
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// MetricRecordModelFromKey creates a persistence model for key holding value
func MetricRecordModelFromKey(key ledger.MetricKey, value decimal.Decimal, at time.Time) *MetricRecordModel {
	return &MetricRecordModel{
		ID:           uuid.New(),
		DepartmentID: key.DepartmentID,
		MetricType:   string(key.MetricType),
		Period:       string(key.Period),
		BucketDate:   key.Date,
		Value:        value,
		UpdatedAt:    at,
	}
}
