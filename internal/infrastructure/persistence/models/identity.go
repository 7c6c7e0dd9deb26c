package models

import (
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/google/uuid"
)

// DepartmentModel is the persistence model for departments
type DepartmentModel struct {
	AggregateModel
	Code        string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name        string `gorm:"type:varchar(200);not null"`
	Description string `gorm:"type:text"`
	Active      bool   `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (DepartmentModel) TableName() string {
	return "departments"
}

// ToDomain converts the persistence model to a domain Department
func (m *DepartmentModel) ToDomain() *identity.Department {
	return &identity.Department{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		Description:       m.Description,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain Department
func (m *DepartmentModel) FromDomain(d *identity.Department) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.Code = d.Code
	m.Name = d.Name
	m.Description = d.Description
	m.Active = d.Active
}

// DepartmentModelFromDomain creates a new persistence model from a domain Department
func DepartmentModelFromDomain(d *identity.Department) *DepartmentModel {
	m := &DepartmentModel{}
	m.FromDomain(d)
	return m
}

// PermissionGrantModel is the persistence model for (department, role tier) grants.
// The tier is stored by wire name so the table reads without a lookup.
type PermissionGrantModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	DepartmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grant_department_tier,priority:1"`
	RoleTier     string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_grant_department_tier,priority:2"`
	GrantedBy    uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PermissionGrantModel) TableName() string {
	return "permission_grants"
}

// ToDomain converts the persistence model to a domain PermissionGrant
func (m *PermissionGrantModel) ToDomain() (*identity.PermissionGrant, error) {
	tier, err := identity.ParseRoleTier(m.RoleTier)
	if err != nil {
		return nil, err
	}
	return &identity.PermissionGrant{
		ID:           m.ID,
		DepartmentID: m.DepartmentID,
		Tier:         tier,
		GrantedBy:    m.GrantedBy,
		CreatedAt:    m.CreatedAt.UTC(),
	}, nil
}

// PermissionGrantModelFromDomain creates a new persistence model from a domain PermissionGrant
func PermissionGrantModelFromDomain(g *identity.PermissionGrant) *PermissionGrantModel {
	return &PermissionGrantModel{
		ID:           g.ID,
		DepartmentID: g.DepartmentID,
		RoleTier:     g.Tier.String(),
		GrantedBy:    g.GrantedBy,
		CreatedAt:    g.CreatedAt,
	}
}
