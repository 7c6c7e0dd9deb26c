package persistence

import (
	"context"

	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var metricKeyColumns = []clause.Column{
	{Name: "department_id"},
	{Name: "metric_type"},
	{Name: "period"},
	{Name: "bucket_date"},
}

// GormMetricRepository implements ledger.MetricRepository using GORM.
// Increments are single INSERT ... ON CONFLICT DO UPDATE statements, so
// concurrent writers to the same key never lose an update.
type GormMetricRepository struct {
	db *gorm.DB
}

// NewGormMetricRepository creates a new GormMetricRepository
func NewGormMetricRepository(db *gorm.DB) *GormMetricRepository {
	return &GormMetricRepository{db: db}
}

// Increment adds each delta to its record, creating the record at zero first
func (r *GormMetricRepository) Increment(ctx context.Context, increments ...ledger.MetricIncrement) error {
	db := r.db.WithContext(ctx)
	now := shared.Now()
	for _, inc := range increments {
		model := models.MetricRecordModelFromKey(inc.MetricKey, inc.Delta, now)
		err := db.Clauses(clause.OnConflict{
			Columns: metricKeyColumns,
			DoUpdates: clause.Assignments(map[string]any{
				"value":      gorm.Expr("metric_records.value + excluded.value"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).Create(model).Error
		if err != nil {
			return translateError(err)
		}
	}
	return nil
}

// Set overwrites the value at key
func (r *GormMetricRepository) Set(ctx context.Context, key ledger.MetricKey, value decimal.Decimal) error {
	model := models.MetricRecordModelFromKey(key, value, shared.Now())
	return translateError(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   metricKeyColumns,
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(model).Error)
}

// Find returns the series for a department, metric type and period ordered by date.
// Both ends of the date range are inclusive.
func (r *GormMetricRepository) Find(ctx context.Context, q ledger.MetricQuery) ([]*ledger.MetricRecord, error) {
	query := r.db.WithContext(ctx).
		Where("department_id = ? AND metric_type = ? AND period = ?", q.DepartmentID, string(q.MetricType), string(q.Period))
	if !q.From.IsZero() {
		query = query.Where("bucket_date >= ?", q.From.UTC())
	}
	if !q.To.IsZero() {
		query = query.Where("bucket_date <= ?", q.To.UTC())
	}

	var rows []models.MetricRecordModel
	if err := query.Order("bucket_date ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	out := make([]*ledger.MetricRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Ensure GormMetricRepository implements ledger.MetricRepository
var _ ledger.MetricRepository = (*GormMetricRepository)(nil)
