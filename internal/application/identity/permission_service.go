package identity

import (
	"context"
	"errors"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CapabilityCache caches resolved (department, tier) capability sets.
// Entries of a department must be dropped whenever its grants or status change.
type CapabilityCache interface {
	Get(ctx context.Context, departmentID uuid.UUID, tier identity.RoleTier) (identity.CapabilitySet, bool)
	Set(ctx context.Context, departmentID uuid.UUID, tier identity.RoleTier, set identity.CapabilitySet)
	InvalidateDepartment(ctx context.Context, departmentID uuid.UUID) error
}

// PermissionService resolves actors to capability sets
type PermissionService struct {
	departments identity.DepartmentRepository
	grants      identity.GrantRepository
	cache       CapabilityCache
	logger      *zap.Logger
}

// PermissionServiceOption configures a PermissionService
type PermissionServiceOption func(*PermissionService)

// WithCapabilityCache enables caching of resolved capability sets
func WithCapabilityCache(cache CapabilityCache) PermissionServiceOption {
	return func(s *PermissionService) {
		s.cache = cache
	}
}

// NewPermissionService creates a new permission service
func NewPermissionService(
	departments identity.DepartmentRepository,
	grants identity.GrantRepository,
	logger *zap.Logger,
	opts ...PermissionServiceOption,
) *PermissionService {
	s := &PermissionService{
		departments: departments,
		grants:      grants,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve looks up the capability set of a role tier in a department.
// It fails with NotFound when the department is unknown or inactive, or when
// the tier is not enabled there. Callers treat NotFound as deny-all.
func (s *PermissionService) Resolve(ctx context.Context, departmentID uuid.UUID, tier identity.RoleTier) (identity.CapabilitySet, error) {
	if !tier.IsValid() {
		return identity.EmptySet, shared.NewDomainError(shared.CodeInvalidInput, "Invalid role tier")
	}
	if s.cache != nil {
		if set, ok := s.cache.Get(ctx, departmentID, tier); ok {
			return set, nil
		}
	}

	dept, err := s.departments.FindByID(ctx, departmentID)
	if err != nil {
		return identity.EmptySet, err
	}
	if !dept.IsActive() {
		return identity.EmptySet, shared.NewDomainError(shared.CodeNotFound, "Department "+dept.Code+" is inactive")
	}

	grant, err := s.grants.Find(ctx, departmentID, tier)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return identity.Resolve(nil)
		}
		return identity.EmptySet, err
	}
	set, err := identity.Resolve(grant)
	if err != nil {
		return identity.EmptySet, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, departmentID, tier, set)
	}
	return set, nil
}

// Invalidate drops cached capability sets of a department
func (s *PermissionService) Invalidate(ctx context.Context, departmentID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDepartment(ctx, departmentID); err != nil {
		s.logger.Warn("Failed to invalidate capability cache",
			zap.String("department_id", departmentID.String()),
			zap.Error(err))
	}
}

// Authorize reports whether set permits capability
func (s *PermissionService) Authorize(set identity.CapabilitySet, capability identity.Capability) bool {
	return identity.Authorize(set, capability)
}

// CapabilitiesOf returns what actor may do in departmentID.
// Department admins receive every capability. Applicants, members of other
// departments and actors whose grant is missing receive the empty set.
func (s *PermissionService) CapabilitiesOf(ctx context.Context, actor identity.Actor, departmentID uuid.UUID) (identity.CapabilitySet, error) {
	if actor.IsApplicant() {
		return identity.EmptySet, nil
	}
	if err := actor.Validate(); err != nil {
		return identity.EmptySet, err
	}
	if actor.DepartmentAdmin {
		return identity.AllCapabilities, nil
	}
	if !actor.InDepartment(departmentID) {
		return identity.EmptySet, nil
	}

	set, err := s.Resolve(ctx, departmentID, actor.Tier)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("No grant for actor, denying all",
				zap.String("user_id", actor.UserID.String()),
				zap.String("department_id", departmentID.String()),
				zap.String("role_tier", actor.Tier.String()))
			return identity.EmptySet, nil
		}
		return identity.EmptySet, err
	}
	return set, nil
}

// Require fails with PermissionDenied unless actor holds capability in departmentID
func (s *PermissionService) Require(ctx context.Context, actor identity.Actor, departmentID uuid.UUID, capability identity.Capability) error {
	set, err := s.CapabilitiesOf(ctx, actor, departmentID)
	if err != nil {
		return err
	}
	if !identity.Authorize(set, capability) {
		return shared.ErrPermissionDenied.WithMessage("Actor lacks " + capability.String() + " in this department")
	}
	return nil
}
