package persistence

import (
	"context"

	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWorkflowRepository implements workflow.Repository using GORM.
// A workflow row and its stage rows are written together and never updated
// afterwards except for the active flag.
type GormWorkflowRepository struct {
	db *gorm.DB
}

// NewGormWorkflowRepository creates a new GormWorkflowRepository
func NewGormWorkflowRepository(db *gorm.DB) *GormWorkflowRepository {
	return &GormWorkflowRepository{db: db}
}

// FindActive returns the active version for a license type
func (r *GormWorkflowRepository) FindActive(ctx context.Context, licenseTypeID string) (*workflow.Workflow, error) {
	var model models.WorkflowModel
	if err := r.withStages(ctx).
		Where("license_type_id = ? AND active = ?", workflow.NormalizeLicenseType(licenseTypeID), true).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

// FindByID returns a specific workflow version
func (r *GormWorkflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*workflow.Workflow, error) {
	var model models.WorkflowModel
	if err := r.withStages(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

// ListActive returns the active version of every license type
func (r *GormWorkflowRepository) ListActive(ctx context.Context) ([]*workflow.Workflow, error) {
	var rows []models.WorkflowModel
	if err := r.withStages(ctx).
		Where("active = ?", true).
		Order("license_type_id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	out := make([]*workflow.Workflow, 0, len(rows))
	for i := range rows {
		w, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// Activate deactivates the current version of w's license type and inserts w
// with its stages as the active one. Callers run it inside a transaction.
func (r *GormWorkflowRepository) Activate(ctx context.Context, w *workflow.Workflow) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.WorkflowModel{}).
		Where("license_type_id = ? AND active = ? AND id <> ?", w.LicenseTypeID, true, w.ID).
		Update("active", false).Error; err != nil {
		return translateError(err)
	}

	model := models.WorkflowModelFromDomain(w)
	model.Active = true
	return translateError(db.Create(model).Error)
}

func (r *GormWorkflowRepository) withStages(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Stages", func(db *gorm.DB) *gorm.DB {
		return db.Order("stage_order ASC")
	})
}

// Ensure GormWorkflowRepository implements workflow.Repository
var _ workflow.Repository = (*GormWorkflowRepository)(nil)
