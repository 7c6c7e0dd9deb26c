package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
)

type MockDepartmentRepository struct {
	mock.Mock
}

func (m *MockDepartmentRepository) Create(ctx context.Context, dept *identity.Department) error {
	return m.Called(ctx, dept).Error(0)
}

func (m *MockDepartmentRepository) Update(ctx context.Context, dept *identity.Department) error {
	return m.Called(ctx, dept).Error(0)
}

func (m *MockDepartmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Department, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Department), args.Error(1)
}

func (m *MockDepartmentRepository) FindByCode(ctx context.Context, code string) (*identity.Department, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Department), args.Error(1)
}

func (m *MockDepartmentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*identity.Department, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*identity.Department), args.Get(1).(int64), args.Error(2)
}

func (m *MockDepartmentRepository) FindActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockGrantRepository struct {
	mock.Mock
}

func (m *MockGrantRepository) Find(ctx context.Context, departmentID uuid.UUID, tier identity.RoleTier) (*identity.PermissionGrant, error) {
	args := m.Called(ctx, departmentID, tier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.PermissionGrant), args.Error(1)
}

func (m *MockGrantRepository) FindByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*identity.PermissionGrant, error) {
	args := m.Called(ctx, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.PermissionGrant), args.Error(1)
}

func (m *MockGrantRepository) Create(ctx context.Context, grant *identity.PermissionGrant) error {
	return m.Called(ctx, grant).Error(0)
}

func (m *MockGrantRepository) Delete(ctx context.Context, departmentID uuid.UUID, tier identity.RoleTier) error {
	return m.Called(ctx, departmentID, tier).Error(0)
}

type MockCapabilityCache struct {
	mock.Mock
}

func (m *MockCapabilityCache) Get(ctx context.Context, departmentID uuid.UUID, tier identity.RoleTier) (identity.CapabilitySet, bool) {
	args := m.Called(ctx, departmentID, tier)
	return args.Get(0).(identity.CapabilitySet), args.Bool(1)
}

func (m *MockCapabilityCache) Set(ctx context.Context, departmentID uuid.UUID, tier identity.RoleTier, set identity.CapabilitySet) {
	m.Called(ctx, departmentID, tier, set)
}

func (m *MockCapabilityCache) InvalidateDepartment(ctx context.Context, departmentID uuid.UUID) error {
	return m.Called(ctx, departmentID).Error(0)
}

func newDepartment(t *testing.T, active bool) *identity.Department {
	t.Helper()
	d, err := identity.NewDepartment("LIC", "Licensing")
	require.NoError(t, err)
	if !active {
		require.NoError(t, d.Deactivate())
	}
	return d
}

func TestPermissionService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("enabled tier resolves to matrix row", func(t *testing.T) {
		depts, grants := new(MockDepartmentRepository), new(MockGrantRepository)
		dept := newDepartment(t, true)
		grant, _ := identity.NewPermissionGrant(dept.ID, identity.TierWrite, uuid.New())
		depts.On("FindByID", ctx, dept.ID).Return(dept, nil)
		grants.On("Find", ctx, dept.ID, identity.TierWrite).Return(grant, nil)

		svc := NewPermissionService(depts, grants, zap.NewNop())
		set, err := svc.Resolve(ctx, dept.ID, identity.TierWrite)

		require.NoError(t, err)
		assert.Equal(t, identity.CapabilitiesFor(identity.TierWrite), set)
		assert.True(t, svc.Authorize(set, identity.CanWrite))
		assert.False(t, svc.Authorize(set, identity.CanDelete))
	})

	t.Run("missing grant is NotFound", func(t *testing.T) {
		depts, grants := new(MockDepartmentRepository), new(MockGrantRepository)
		dept := newDepartment(t, true)
		depts.On("FindByID", ctx, dept.ID).Return(dept, nil)
		grants.On("Find", ctx, dept.ID, identity.TierAdmin).Return(nil, shared.ErrNotFound)

		svc := NewPermissionService(depts, grants, zap.NewNop())
		set, err := svc.Resolve(ctx, dept.ID, identity.TierAdmin)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, identity.EmptySet, set)
	})

	t.Run("inactive department is NotFound", func(t *testing.T) {
		depts, grants := new(MockDepartmentRepository), new(MockGrantRepository)
		dept := newDepartment(t, false)
		depts.On("FindByID", ctx, dept.ID).Return(dept, nil)

		svc := NewPermissionService(depts, grants, zap.NewNop())
		_, err := svc.Resolve(ctx, dept.ID, identity.TierWrite)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		grants.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		depts, grants := new(MockDepartmentRepository), new(MockGrantRepository)
		dept := newDepartment(t, true)
		depts.On("FindByID", ctx, dept.ID).Return(dept, nil)
		grants.On("Find", ctx, dept.ID, identity.TierWrite).Return(nil, shared.ErrStorageUnavailable)

		svc := NewPermissionService(depts, grants, zap.NewNop())
		_, err := svc.Resolve(ctx, dept.ID, identity.TierWrite)

		assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
	})

	t.Run("invalid tier", func(t *testing.T) {
		svc := NewPermissionService(new(MockDepartmentRepository), new(MockGrantRepository), zap.NewNop())
		_, err := svc.Resolve(ctx, uuid.New(), identity.RoleTier(9))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestPermissionService_ResolveUsesCache(t *testing.T) {
	ctx := context.Background()
	depts, grants, c := new(MockDepartmentRepository), new(MockGrantRepository), new(MockCapabilityCache)
	dept := newDepartment(t, true)
	grant, _ := identity.NewPermissionGrant(dept.ID, identity.TierReadOnly, uuid.New())
	readOnly := identity.CapabilitiesFor(identity.TierReadOnly)

	c.On("Get", ctx, dept.ID, identity.TierReadOnly).Return(identity.EmptySet, false).Once()
	depts.On("FindByID", ctx, dept.ID).Return(dept, nil).Once()
	grants.On("Find", ctx, dept.ID, identity.TierReadOnly).Return(grant, nil).Once()
	c.On("Set", ctx, dept.ID, identity.TierReadOnly, readOnly).Once()
	c.On("Get", ctx, dept.ID, identity.TierReadOnly).Return(readOnly, true).Once()

	svc := NewPermissionService(depts, grants, zap.NewNop(), WithCapabilityCache(c))

	first, err := svc.Resolve(ctx, dept.ID, identity.TierReadOnly)
	require.NoError(t, err)
	second, err := svc.Resolve(ctx, dept.ID, identity.TierReadOnly)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	depts.AssertNumberOfCalls(t, "FindByID", 1)
	c.AssertExpectations(t)
}

func TestPermissionService_InvalidateLogsCacheErrors(t *testing.T) {
	c := new(MockCapabilityCache)
	deptID := uuid.New()
	c.On("InvalidateDepartment", mock.Anything, deptID).Return(errors.New("redis down"))

	svc := NewPermissionService(new(MockDepartmentRepository), new(MockGrantRepository), zap.NewNop(), WithCapabilityCache(c))
	svc.Invalidate(context.Background(), deptID)

	c.AssertExpectations(t)
}

func TestPermissionService_CapabilitiesOf(t *testing.T) {
	ctx := context.Background()
	dept := newDepartment(t, true)
	grant, _ := identity.NewPermissionGrant(dept.ID, identity.TierWrite, uuid.New())

	depts, grants := new(MockDepartmentRepository), new(MockGrantRepository)
	depts.On("FindByID", mock.Anything, dept.ID).Return(dept, nil)
	grants.On("Find", mock.Anything, dept.ID, identity.TierWrite).Return(grant, nil)
	grants.On("Find", mock.Anything, dept.ID, identity.TierAdmin).Return(nil, shared.ErrNotFound)
	svc := NewPermissionService(depts, grants, zap.NewNop())

	tests := []struct {
		name  string
		actor identity.Actor
		want  identity.CapabilitySet
	}{
		{"member with grant", identity.Actor{UserID: uuid.New(), DepartmentID: dept.ID, Tier: identity.TierWrite}, identity.CapabilitiesFor(identity.TierWrite)},
		{"member without grant", identity.Actor{UserID: uuid.New(), DepartmentID: dept.ID, Tier: identity.TierAdmin}, identity.EmptySet},
		{"other department", identity.Actor{UserID: uuid.New(), DepartmentID: uuid.New(), Tier: identity.TierAdmin}, identity.EmptySet},
		{"department admin", identity.Actor{UserID: uuid.New(), DepartmentAdmin: true}, identity.AllCapabilities},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CapabilitiesOf(ctx, tt.actor, dept.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("anonymous actor", func(t *testing.T) {
		_, err := svc.CapabilitiesOf(ctx, identity.Actor{}, dept.ID)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})
}

func TestPermissionService_Require(t *testing.T) {
	ctx := context.Background()
	dept := newDepartment(t, true)
	grant, _ := identity.NewPermissionGrant(dept.ID, identity.TierReadOnly, uuid.New())
	depts, grants := new(MockDepartmentRepository), new(MockGrantRepository)
	depts.On("FindByID", mock.Anything, dept.ID).Return(dept, nil)
	grants.On("Find", mock.Anything, dept.ID, identity.TierReadOnly).Return(grant, nil)
	svc := NewPermissionService(depts, grants, zap.NewNop())
	actor := identity.Actor{UserID: uuid.New(), DepartmentID: dept.ID, Tier: identity.TierReadOnly}

	assert.NoError(t, svc.Require(ctx, actor, dept.ID, identity.CanRead))
	err := svc.Require(ctx, actor, dept.ID, identity.CanManageRoles)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "can_manage_roles")
}
