package identity

import (
	"context"

	"github.com/afrinict/nbcportal-sub001/internal/application/transaction"
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DepartmentService administers departments and their enabled role tiers
type DepartmentService struct {
	scope       transaction.Scope
	departments identity.DepartmentRepository
	grants      identity.GrantRepository
	permissions *PermissionService
	logger      *zap.Logger
}

// NewDepartmentService creates a new department service
func NewDepartmentService(
	scope transaction.Scope,
	departments identity.DepartmentRepository,
	grants identity.GrantRepository,
	permissions *PermissionService,
	logger *zap.Logger,
) *DepartmentService {
	return &DepartmentService{
		scope:       scope,
		departments: departments,
		grants:      grants,
		permissions: permissions,
		logger:      logger,
	}
}

// CreateDepartmentInput contains input for creating a department
type CreateDepartmentInput struct {
	Code        string
	Name        string
	Description string
}

// Create creates an active department. Only department admins may create departments.
func (s *DepartmentService) Create(ctx context.Context, actor identity.Actor, input CreateDepartmentInput) (*DepartmentDTO, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !actor.DepartmentAdmin {
		return nil, shared.ErrPermissionDenied.WithMessage("Only department admins can create departments")
	}

	dept, err := identity.NewDepartment(input.Code, input.Name)
	if err != nil {
		return nil, err
	}
	if input.Description != "" {
		dept.Description = input.Description
	}

	rec, err := ledger.NewActivityRecord(dept.ID, actor.UserID, ledger.ActionCreateDepartment, ledger.ResourceDepartment, dept.ID, dept.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.WithDetail("code", dept.Code)

	err = s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		if err := repos.Departments().Create(ctx, dept); err != nil {
			return err
		}
		if err := repos.Activities().Append(ctx, rec); err != nil {
			return err
		}
		return repos.Events().Save(ctx, dept.GetDomainEvents()...)
	})
	if err != nil {
		s.logger.Warn("Failed to create department", zap.String("code", dept.Code), zap.Error(err))
		return nil, err
	}
	dept.ClearDomainEvents()

	s.logger.Info("Department created",
		zap.String("department_id", dept.ID.String()),
		zap.String("code", dept.Code))

	dto := ToDepartmentDTO(dept)
	return &dto, nil
}

// SetStatus activates or deactivates a department. Requires can_manage_roles in it.
func (s *DepartmentService) SetStatus(ctx context.Context, actor identity.Actor, departmentID uuid.UUID, active bool) (*DepartmentDTO, error) {
	if err := s.permissions.Require(ctx, actor, departmentID, identity.CanManageRoles); err != nil {
		return nil, err
	}

	var dept *identity.Department
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		var err error
		dept, err = repos.Departments().FindByID(ctx, departmentID)
		if err != nil {
			return err
		}
		if active {
			err = dept.Activate()
		} else {
			err = dept.Deactivate()
		}
		if err != nil {
			return err
		}

		rec, err := ledger.NewActivityRecord(dept.ID, actor.UserID, ledger.ActionDepartmentStatus, ledger.ResourceDepartment, dept.ID, dept.UpdatedAt)
		if err != nil {
			return err
		}
		rec.WithDetail("active", active)

		if err := repos.Departments().Update(ctx, dept); err != nil {
			return err
		}
		if err := repos.Activities().Append(ctx, rec); err != nil {
			return err
		}
		return repos.Events().Save(ctx, dept.GetDomainEvents()...)
	})
	if err != nil {
		return nil, err
	}
	dept.ClearDomainEvents()
	s.permissions.Invalidate(ctx, departmentID)

	s.logger.Info("Department status changed",
		zap.String("department_id", departmentID.String()),
		zap.Bool("active", active))

	dto := ToDepartmentDTO(dept)
	return &dto, nil
}

// EnableTier enables a role tier for a department. Requires can_manage_roles in it.
func (s *DepartmentService) EnableTier(ctx context.Context, actor identity.Actor, departmentID uuid.UUID, tier identity.RoleTier) (*GrantDTO, error) {
	if err := s.permissions.Require(ctx, actor, departmentID, identity.CanManageRoles); err != nil {
		return nil, err
	}

	grant, err := identity.NewPermissionGrant(departmentID, tier, actor.UserID)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		if _, err := repos.Departments().FindByID(ctx, departmentID); err != nil {
			return err
		}
		if err := repos.Grants().Create(ctx, grant); err != nil {
			return err
		}
		rec, err := ledger.NewActivityRecord(departmentID, actor.UserID, ledger.ActionEnableGrant, ledger.ResourceGrant, grant.ID, grant.CreatedAt)
		if err != nil {
			return err
		}
		rec.WithDetail("role_tier", tier.String())
		return repos.Activities().Append(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	s.permissions.Invalidate(ctx, departmentID)

	s.logger.Info("Role tier enabled",
		zap.String("department_id", departmentID.String()),
		zap.String("role_tier", tier.String()))

	dto := ToGrantDTO(grant)
	return &dto, nil
}

// RevokeTier disables a role tier for a department. Requires can_manage_roles in it.
func (s *DepartmentService) RevokeTier(ctx context.Context, actor identity.Actor, departmentID uuid.UUID, tier identity.RoleTier) error {
	if err := s.permissions.Require(ctx, actor, departmentID, identity.CanManageRoles); err != nil {
		return err
	}

	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		grant, err := repos.Grants().Find(ctx, departmentID, tier)
		if err != nil {
			return err
		}
		if err := repos.Grants().Delete(ctx, departmentID, tier); err != nil {
			return err
		}
		rec, err := ledger.NewActivityRecord(departmentID, actor.UserID, ledger.ActionRevokeGrant, ledger.ResourceGrant, grant.ID, shared.Now())
		if err != nil {
			return err
		}
		rec.WithDetail("role_tier", tier.String())
		return repos.Activities().Append(ctx, rec)
	})
	if err != nil {
		return err
	}
	s.permissions.Invalidate(ctx, departmentID)

	s.logger.Info("Role tier revoked",
		zap.String("department_id", departmentID.String()),
		zap.String("role_tier", tier.String()))
	return nil
}

// Get returns a department
func (s *DepartmentService) Get(ctx context.Context, id uuid.UUID) (*DepartmentDTO, error) {
	dept, err := s.departments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToDepartmentDTO(dept)
	return &dto, nil
}

// List returns a page of departments
func (s *DepartmentService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[DepartmentDTO], error) {
	filter = filter.Normalize()
	depts, total, err := s.departments.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[DepartmentDTO]{}, err
	}
	items := make([]DepartmentDTO, len(depts))
	for i, d := range depts {
		items[i] = ToDepartmentDTO(d)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// ListGrants returns the tiers enabled for a department. Requires can_read in it.
func (s *DepartmentService) ListGrants(ctx context.Context, actor identity.Actor, departmentID uuid.UUID) ([]GrantDTO, error) {
	if err := s.permissions.Require(ctx, actor, departmentID, identity.CanRead); err != nil {
		return nil, err
	}
	grants, err := s.grants.FindByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	out := make([]GrantDTO, len(grants))
	for i, g := range grants {
		out[i] = ToGrantDTO(g)
	}
	return out, nil
}
