package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPermissionResolver struct {
	mock.Mock
}

func (m *MockPermissionResolver) Resolve(ctx context.Context, departmentID uuid.UUID, tier identity.RoleTier) (identity.CapabilitySet, error) {
	args := m.Called(ctx, departmentID, tier)
	return args.Get(0).(identity.CapabilitySet), args.Error(1)
}

func (m *MockPermissionResolver) CapabilitiesOf(ctx context.Context, actor identity.Actor, departmentID uuid.UUID) (identity.CapabilitySet, error) {
	args := m.Called(ctx, actor, departmentID)
	return args.Get(0).(identity.CapabilitySet), args.Error(1)
}

type capabilitiesBody struct {
	DepartmentID    uuid.UUID       `json:"department_id"`
	RoleTier        string          `json:"role_tier"`
	DepartmentAdmin bool            `json:"department_admin"`
	Capabilities    map[string]bool `json:"capabilities"`
	Granted         []string        `json:"granted"`
}

func TestPermissionHandler_Resolve(t *testing.T) {
	dept := uuid.New()
	actor := reviewerActor(dept, identity.TierReadOnly)
	resolver := new(MockPermissionResolver)
	resolver.On("Resolve", mock.Anything, dept, identity.TierWrite).
		Return(identity.CapabilitiesFor(identity.TierWrite), nil)

	r := newTestRouter(NewPermissionHandler(resolver), &actor)
	w := doJSON(r, http.MethodGet, "/api/v1/permissions/resolve?department_id="+dept.String()+"&role_tier=write", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeData[capabilitiesBody](t, w)
	assert.Equal(t, dept, got.DepartmentID)
	assert.Equal(t, "write", got.RoleTier)
	assert.Equal(t, []string{"can_read", "can_view_analytics", "can_write"}, got.Granted)
	assert.True(t, got.Capabilities["can_write"])
	assert.False(t, got.Capabilities["can_delete"])
	resolver.AssertExpectations(t)
}

func TestPermissionHandler_ResolveNotFound(t *testing.T) {
	dept := uuid.New()
	actor := reviewerActor(dept, identity.TierAdmin)
	resolver := new(MockPermissionResolver)
	resolver.On("Resolve", mock.Anything, dept, identity.TierAdmin).
		Return(identity.EmptySet, shared.ErrNotFound)

	r := newTestRouter(NewPermissionHandler(resolver), &actor)
	w := doJSON(r, http.MethodGet, "/api/v1/permissions/resolve?department_id="+dept.String()+"&role_tier=admin", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, errorCode(t, w))
}

func TestPermissionHandler_ResolveValidation(t *testing.T) {
	actor := applicantActor()
	resolver := new(MockPermissionResolver)
	r := newTestRouter(NewPermissionHandler(resolver), &actor)

	for _, query := range []string{
		"",
		"?department_id=x&role_tier=admin",
		"?department_id=" + uuid.NewString() + "&role_tier=owner",
	} {
		w := doJSON(r, http.MethodGet, "/api/v1/permissions/resolve"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
}

func TestPermissionHandler_Mine(t *testing.T) {
	t.Run("own department", func(t *testing.T) {
		dept := uuid.New()
		actor := reviewerActor(dept, identity.TierReadOnly)
		resolver := new(MockPermissionResolver)
		resolver.On("CapabilitiesOf", mock.Anything, actor, dept).
			Return(identity.CapabilitiesFor(identity.TierReadOnly), nil)

		r := newTestRouter(NewPermissionHandler(resolver), &actor)
		w := doJSON(r, http.MethodGet, "/api/v1/permissions/me", nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[capabilitiesBody](t, w)
		assert.Equal(t, "read_only", got.RoleTier)
		assert.Equal(t, []string{"can_read", "can_view_analytics"}, got.Granted)
	})

	t.Run("other department", func(t *testing.T) {
		actor := reviewerActor(uuid.New(), identity.TierAdmin)
		other := uuid.New()
		resolver := new(MockPermissionResolver)
		resolver.On("CapabilitiesOf", mock.Anything, actor, other).Return(identity.EmptySet, nil)

		r := newTestRouter(NewPermissionHandler(resolver), &actor)
		w := doJSON(r, http.MethodGet, "/api/v1/permissions/me?department_id="+other.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[capabilitiesBody](t, w)
		assert.Empty(t, got.RoleTier)
		assert.Equal(t, []string{}, got.Granted)
	})

	t.Run("applicant", func(t *testing.T) {
		actor := applicantActor()
		resolver := new(MockPermissionResolver)
		resolver.On("CapabilitiesOf", mock.Anything, actor, uuid.Nil).Return(identity.EmptySet, nil)

		r := newTestRouter(NewPermissionHandler(resolver), &actor)
		w := doJSON(r, http.MethodGet, "/api/v1/permissions/me", nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[capabilitiesBody](t, w)
		assert.False(t, got.DepartmentAdmin)
		assert.Empty(t, got.Granted)
	})
}
