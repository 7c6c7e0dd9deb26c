package persistence

import (
	"context"
	"sort"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormGrantRepository implements GrantRepository using GORM
type GormGrantRepository struct {
	db *gorm.DB
}

// NewGormGrantRepository creates a new GormGrantRepository
func NewGormGrantRepository(db *gorm.DB) *GormGrantRepository {
	return &GormGrantRepository{db: db}
}

// Find returns the grant for a department and tier
func (r *GormGrantRepository) Find(ctx context.Context, departmentID uuid.UUID, tier identity.RoleTier) (*identity.PermissionGrant, error) {
	var model models.PermissionGrantModel
	if err := r.db.WithContext(ctx).
		Where("department_id = ? AND role_tier = ?", departmentID, tier.String()).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

// FindByDepartment returns every grant of a department in ascending tier order
func (r *GormGrantRepository) FindByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*identity.PermissionGrant, error) {
	var rows []models.PermissionGrantModel
	if err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	grants := make([]*identity.PermissionGrant, 0, len(rows))
	for i := range rows {
		g, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Tier < grants[j].Tier })
	return grants, nil
}

// Create stores a new grant
func (r *GormGrantRepository) Create(ctx context.Context, grant *identity.PermissionGrant) error {
	model := models.PermissionGrantModelFromDomain(grant)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// Delete removes the grant for a department and tier
func (r *GormGrantRepository) Delete(ctx context.Context, departmentID uuid.UUID, tier identity.RoleTier) error {
	result := r.db.WithContext(ctx).
		Where("department_id = ? AND role_tier = ?", departmentID, tier.String()).
		Delete(&models.PermissionGrantModel{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormGrantRepository implements GrantRepository
var _ identity.GrantRepository = (*GormGrantRepository)(nil)
