package persistence

import (
	"context"

	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormActivityRepository implements ledger.ActivityRepository using GORM.
// It only ever inserts; in PostgreSQL a trigger additionally rejects UPDATE
// and DELETE on the table.
type GormActivityRepository struct {
	db *gorm.DB
}

// NewGormActivityRepository creates a new GormActivityRepository
func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

// Append inserts the records in one statement
func (r *GormActivityRepository) Append(ctx context.Context, records ...*ledger.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]*models.ActivityRecordModel, len(records))
	for i, rec := range records {
		rows[i] = models.ActivityRecordModelFromDomain(rec)
	}
	return translateError(r.db.WithContext(ctx).Create(rows).Error)
}

// Find lists records matching the query, newest first
func (r *GormActivityRepository) Find(ctx context.Context, q ledger.ActivityQuery) ([]*ledger.ActivityRecord, int64, error) {
	filter := q.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.ActivityRecordModel{})
	if q.DepartmentID != nil {
		query = query.Where("department_id = ?", *q.DepartmentID)
	}
	if q.ResourceType != "" {
		query = query.Where("resource_type = ?", q.ResourceType)
	}
	if q.ResourceID != nil {
		query = query.Where("resource_id = ?", *q.ResourceID)
	}
	if q.Action != "" {
		query = query.Where("action = ?", string(q.Action))
	}
	if q.OverrideOnly {
		query = query.Where("override = ?", true)
	}
	if q.From != nil {
		query = query.Where("occurred_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		query = query.Where("occurred_at < ?", q.To.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rows []models.ActivityRecordModel
	if err := query.
		Order("occurred_at DESC, id DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translateError(err)
	}

	out := make([]*ledger.ActivityRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// Ensure GormActivityRepository implements ledger.ActivityRepository
var _ ledger.ActivityRepository = (*GormActivityRepository)(nil)
