package identity

import (
	"context"

	"github.com/google/uuid"
)

// GrantRepository persists permission grants
type GrantRepository interface {
	// Find returns the grant for (departmentID, tier) or shared.ErrNotFound
	Find(ctx context.Context, departmentID uuid.UUID, tier RoleTier) (*PermissionGrant, error)

	// FindByDepartment returns every tier enabled for a department
	FindByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*PermissionGrant, error)

	// Create stores a new grant; a second grant for the same pair fails with shared.ErrAlreadyExists
	Create(ctx context.Context, grant *PermissionGrant) error

	// Delete removes the grant for (departmentID, tier)
	Delete(ctx context.Context, departmentID uuid.UUID, tier RoleTier) error
}
