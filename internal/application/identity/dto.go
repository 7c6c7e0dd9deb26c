package identity

import (
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/google/uuid"
)

// DepartmentDTO represents department data transfer object
type DepartmentDTO struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GrantDTO represents an enabled role tier of a department
type GrantDTO struct {
	DepartmentID uuid.UUID              `json:"department_id"`
	RoleTier     identity.RoleTier      `json:"role_tier"`
	Capabilities identity.CapabilitySet `json:"capabilities"`
	GrantedBy    uuid.UUID              `json:"granted_by"`
	CreatedAt    time.Time              `json:"created_at"`
}

// CapabilitiesDTO is the resolved capability set of a (department, tier) pair or an actor
type CapabilitiesDTO struct {
	DepartmentID    uuid.UUID              `json:"department_id"`
	RoleTier        string                 `json:"role_tier,omitempty"`
	DepartmentAdmin bool                   `json:"department_admin,omitempty"`
	Capabilities    identity.CapabilitySet `json:"capabilities"`
	Names           []string               `json:"granted"`
}

// ToDepartmentDTO converts a domain department
func ToDepartmentDTO(d *identity.Department) DepartmentDTO {
	return DepartmentDTO{
		ID:          d.ID,
		Code:        d.Code,
		Name:        d.Name,
		Description: d.Description,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// ToGrantDTO converts a domain grant
func ToGrantDTO(g *identity.PermissionGrant) GrantDTO {
	return GrantDTO{
		DepartmentID: g.DepartmentID,
		RoleTier:     g.Tier,
		Capabilities: g.Capabilities(),
		GrantedBy:    g.GrantedBy,
		CreatedAt:    g.CreatedAt,
	}
}

// NewCapabilitiesDTO builds the capability view of a department
func NewCapabilitiesDTO(departmentID uuid.UUID, tier identity.RoleTier, departmentAdmin bool, set identity.CapabilitySet) CapabilitiesDTO {
	dto := CapabilitiesDTO{
		DepartmentID:    departmentID,
		DepartmentAdmin: departmentAdmin,
		Capabilities:    set,
		Names:           set.Names(),
	}
	if tier.IsValid() {
		dto.RoleTier = tier.String()
	}
	if dto.Names == nil {
		dto.Names = []string{}
	}
	return dto
}
