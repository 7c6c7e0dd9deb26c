package persistence

import (
	"context"

	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormApplicationRepository implements licensing.Repository using GORM
type GormApplicationRepository struct {
	db *gorm.DB
}

// NewGormApplicationRepository creates a new GormApplicationRepository
func NewGormApplicationRepository(db *gorm.DB) *GormApplicationRepository {
	return &GormApplicationRepository{db: db}
}

// FindByID returns the application with the given ID
func (r *GormApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*licensing.Application, error) {
	var model models.ApplicationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

// FindByNumber returns the application with the given external number
func (r *GormApplicationRepository) FindByNumber(ctx context.Context, number string) (*licensing.Application, error) {
	var model models.ApplicationModel
	if err := r.db.WithContext(ctx).
		Where("application_number = ?", number).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

// FindAll lists applications matching the query
func (r *GormApplicationRepository) FindAll(ctx context.Context, q licensing.Query) ([]*licensing.Application, int64, error) {
	filter := q.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.ApplicationModel{})
	if q.DepartmentID != nil {
		query = query.Where("department_id = ?", *q.DepartmentID)
	}
	if q.ApplicantID != nil {
		query = query.Where("applicant_id = ?", *q.ApplicantID)
	}
	if q.LicenseTypeID != "" {
		query = query.Where("license_type_id = ?", q.LicenseTypeID)
	}
	if q.Status != nil {
		query = query.Where("status = ?", q.Status.Label())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rows []models.ApplicationModel
	if err := query.
		Order(orderClause(filter, ApplicationSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translateError(err)
	}

	apps := make([]*licensing.Application, 0, len(rows))
	for i := range rows {
		app, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, app)
	}
	return apps, total, nil
}

// CountOpenByDepartment counts applications sitting on a stage, per department
func (r *GormApplicationRepository) CountOpenByDepartment(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		DepartmentID uuid.UUID
		Total        int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ApplicationModel{}).
		Select("department_id, COUNT(*) AS total").
		Where("status IN ?", []string{string(licensing.StatusSubmitted), string(licensing.StatusInReview)}).
		Group("department_id").
		Scan(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.DepartmentID] = row.Total
	}
	return counts, nil
}

// Create inserts a new application
func (r *GormApplicationRepository) Create(ctx context.Context, app *licensing.Application) error {
	model := models.ApplicationModelFromDomain(app)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// Update saves a transitioned application guarded by its previous version
func (r *GormApplicationRepository) Update(ctx context.Context, app *licensing.Application) error {
	model := models.ApplicationModelFromDomain(app)
	result := r.db.WithContext(ctx).
		Model(&models.ApplicationModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]any{
			"department_id":       model.DepartmentID,
			"workflow_id":         model.WorkflowID,
			"workflow_version":    model.WorkflowVersion,
			"current_stage_order": model.CurrentStage,
			"status":              model.Status,
			"frozen_percent":      model.FrozenPercent,
			"decisions":           model.Decisions,
			"submitted_at":        model.SubmittedAt,
			"completed_at":        model.CompletedAt,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ApplicationModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConcurrencyConflict.WithMessage("Application " + model.ApplicationNumber + " was modified concurrently")
}

// Ensure GormApplicationRepository implements licensing.Repository
var _ licensing.Repository = (*GormApplicationRepository)(nil)
