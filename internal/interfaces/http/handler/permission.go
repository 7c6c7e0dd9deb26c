package handler

import (
	"context"

	identityapp "github.com/afrinict/nbcportal-sub001/internal/application/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PermissionResolver resolves role tiers and actors to capability sets
type PermissionResolver interface {
	Resolve(ctx context.Context, departmentID uuid.UUID, tier identity.RoleTier) (identity.CapabilitySet, error)
	CapabilitiesOf(ctx context.Context, actor identity.Actor, departmentID uuid.UUID) (identity.CapabilitySet, error)
}

// PermissionHandler serves /permissions
type PermissionHandler struct {
	BaseHandler
	resolver PermissionResolver
}

// NewPermissionHandler creates a new PermissionHandler
func NewPermissionHandler(resolver PermissionResolver) *PermissionHandler {
	return &PermissionHandler{resolver: resolver}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *PermissionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/permissions")
	g.GET("/resolve", h.Resolve)
	g.GET("/me", h.Mine)
}

// Resolve returns the capability set of a role tier in a department.
// Unknown or inactive departments and disabled tiers are 404.
func (h *PermissionHandler) Resolve(c *gin.Context) {
	if _, ok := h.Actor(c); !ok {
		return
	}
	var req dto.ResolvePermissionsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	deptID := uuid.MustParse(req.DepartmentID)
	tier, _ := identity.ParseRoleTier(req.RoleTier)

	set, err := h.resolver.Resolve(c.Request.Context(), deptID, tier)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, identityapp.NewCapabilitiesDTO(deptID, tier, false, set))
}

// Mine returns what the caller may do in a department, defaulting to their own
func (h *PermissionHandler) Mine(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.MyPermissionsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	deptID := actor.DepartmentID
	if req.DepartmentID != "" {
		deptID = uuid.MustParse(req.DepartmentID)
	}

	set, err := h.resolver.CapabilitiesOf(c.Request.Context(), actor, deptID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var tier identity.RoleTier
	if actor.InDepartment(deptID) {
		tier = actor.Tier
	}
	h.Success(c, identityapp.NewCapabilitiesDTO(deptID, tier, actor.DepartmentAdmin, set))
}
