package identity

import (
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
)

// PermissionGrant records that a role tier is enabled for a department.
// The capabilities themselves come from the tier's row in the capability
// matrix; a grant never carries its own capability list.
type PermissionGrant struct {
	ID           uuid.UUID
	DepartmentID uuid.UUID
	Tier         RoleTier
	GrantedBy    uuid.UUID
	CreatedAt    time.Time
}

// NewPermissionGrant enables tier for departmentID
func NewPermissionGrant(departmentID uuid.UUID, tier RoleTier, grantedBy uuid.UUID) (*PermissionGrant, error) {
	if departmentID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Department ID is required")
	}
	if !tier.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid role tier")
	}
	return &PermissionGrant{
		ID:           uuid.New(),
		DepartmentID: departmentID,
		Tier:         tier,
		GrantedBy:    grantedBy,
		CreatedAt:    shared.Now(),
	}, nil
}

// Capabilities returns the capability set this grant confers
func (g *PermissionGrant) Capabilities() CapabilitySet {
	return CapabilitiesFor(g.Tier)
}

// Resolve turns a grant lookup result into a capability set.
// A missing grant fails with NotFound; callers treat that as deny-all.
func Resolve(grant *PermissionGrant) (CapabilitySet, error) {
	if grant == nil {
		return EmptySet, shared.NewDomainError(shared.CodeNotFound, "No permission grant for department and role tier")
	}
	return grant.Capabilities(), nil
}
