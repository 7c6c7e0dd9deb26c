package persistence

import (
	"context"
	"strings"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDepartmentRepository implements DepartmentRepository using GORM
type GormDepartmentRepository struct {
	db *gorm.DB
}

// NewGormDepartmentRepository creates a new GormDepartmentRepository
func NewGormDepartmentRepository(db *gorm.DB) *GormDepartmentRepository {
	return &GormDepartmentRepository{db: db}
}

// Create saves a new department
func (r *GormDepartmentRepository) Create(ctx context.Context, dept *identity.Department) error {
	model := models.DepartmentModelFromDomain(dept)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// Update saves the department if the stored row is still at the previous version
func (r *GormDepartmentRepository) Update(ctx context.Context, dept *identity.Department) error {
	result := r.db.WithContext(ctx).
		Model(&models.DepartmentModel{}).
		Where("id = ? AND version = ?", dept.ID, dept.Version-1).
		Updates(map[string]any{
			"name":        dept.Name,
			"description": dept.Description,
			"active":      dept.Active,
			"version":     dept.Version,
			"updated_at":  dept.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missingOrStale(ctx, dept.ID)
	}
	return nil
}

// FindByID finds a department by ID
func (r *GormDepartmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Department, error) {
	var model models.DepartmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a department by its code
func (r *GormDepartmentRepository) FindByCode(ctx context.Context, code string) (*identity.Department, error) {
	var model models.DepartmentModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists departments with pagination. Filters["active"] narrows by status.
func (r *GormDepartmentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*identity.Department, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.DepartmentModel{})
	if active, ok := filter.Filters["active"].(bool); ok {
		query = query.Where("active = ?", active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rows []models.DepartmentModel
	if err := query.
		Order(orderClause(filter, DepartmentSortFields, "code")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translateError(err)
	}

	depts := make([]*identity.Department, len(rows))
	for i := range rows {
		depts[i] = rows[i].ToDomain()
	}
	return depts, total, nil
}

// FindActiveIDs returns the IDs of all active departments
func (r *GormDepartmentRepository) FindActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.DepartmentModel{}).
		Where("active = ?", true).
		Order("code ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, translateError(err)
	}
	return ids, nil
}

func (r *GormDepartmentRepository) missingOrStale(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DepartmentModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConcurrencyConflict
}

// Ensure GormDepartmentRepository implements DepartmentRepository
var _ identity.DepartmentRepository = (*GormDepartmentRepository)(nil)
