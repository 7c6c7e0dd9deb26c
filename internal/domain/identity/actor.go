package identity

import (
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
)

// Actor is the caller identity supplied by the identity provider
type Actor struct {
	UserID       uuid.UUID
	DepartmentID uuid.UUID
	Tier         RoleTier
	// DepartmentAdmin is the platform super-role. It receives every
	// capability in every department regardless of grants.
	DepartmentAdmin bool
}

// Validate checks that the actor carries enough identity to be authorized
func (a Actor) Validate() error {
	if a.UserID == uuid.Nil {
		return shared.NewDomainError(shared.CodeUnauthorized, "Actor user ID is required")
	}
	if a.DepartmentAdmin {
		return nil
	}
	if a.DepartmentID == uuid.Nil {
		return shared.NewDomainError(shared.CodeUnauthorized, "Actor department is required")
	}
	if !a.Tier.IsValid() {
		return shared.NewDomainError(shared.CodeUnauthorized, "Actor role tier is invalid")
	}
	return nil
}

// IsApplicant reports whether the actor is a member of the public: a user
// with no department, tier or admin role. Applicants hold no capabilities.
func (a Actor) IsApplicant() bool {
	return a.UserID != uuid.Nil && !a.DepartmentAdmin && a.DepartmentID == uuid.Nil && a.Tier == 0
}

// InDepartment reports whether the actor is a member of departmentID
func (a Actor) InDepartment(departmentID uuid.UUID) bool {
	return a.DepartmentID == departmentID
}
