package handler

import (
	"context"
	"time"

	identityapp "github.com/afrinict/nbcportal-sub001/internal/application/identity"
	ledgerapp "github.com/afrinict/nbcportal-sub001/internal/application/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DepartmentService manages departments and their role tier grants
type DepartmentService interface {
	Create(ctx context.Context, actor identity.Actor, input identityapp.CreateDepartmentInput) (*identityapp.DepartmentDTO, error)
	SetStatus(ctx context.Context, actor identity.Actor, departmentID uuid.UUID, active bool) (*identityapp.DepartmentDTO, error)
	EnableTier(ctx context.Context, actor identity.Actor, departmentID uuid.UUID, tier identity.RoleTier) (*identityapp.GrantDTO, error)
	RevokeTier(ctx context.Context, actor identity.Actor, departmentID uuid.UUID, tier identity.RoleTier) error
	Get(ctx context.Context, id uuid.UUID) (*identityapp.DepartmentDTO, error)
	List(ctx context.Context, filter shared.Filter) (shared.Paginated[identityapp.DepartmentDTO], error)
	ListGrants(ctx context.Context, actor identity.Actor, departmentID uuid.UUID) ([]identityapp.GrantDTO, error)
}

// DepartmentLedger reads department activity and metrics
type DepartmentLedger interface {
	ActivityTrail(ctx context.Context, actor identity.Actor, query ledger.ActivityQuery) (shared.Paginated[ledgerapp.ActivityDTO], error)
	MetricSeries(ctx context.Context, actor identity.Actor, query ledger.MetricQuery) ([]ledgerapp.MetricDTO, error)
}

// DepartmentHandler serves /departments
type DepartmentHandler struct {
	BaseHandler
	departments DepartmentService
	ledger      DepartmentLedger
}

// NewDepartmentHandler creates a new DepartmentHandler
func NewDepartmentHandler(departments DepartmentService, ledger DepartmentLedger) *DepartmentHandler {
	return &DepartmentHandler{departments: departments, ledger: ledger}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *DepartmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/departments")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.SetStatus)
	g.GET("/:id/grants", h.ListGrants)
	g.PUT("/:id/grants/:tier", h.EnableTier)
	g.DELETE("/:id/grants/:tier", h.RevokeTier)
	g.GET("/:id/activity", h.Activity)
	g.GET("/:id/metrics", h.Metrics)
}

// Create creates a department
func (h *DepartmentHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.CreateDepartmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	dept, err := h.departments.Create(c.Request.Context(), actor, identityapp.CreateDepartmentInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dept)
}

// List lists departments
func (h *DepartmentHandler) List(c *gin.Context) {
	if _, ok := h.Actor(c); !ok {
		return
	}
	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.departments.List(c.Request.Context(), req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get returns one department
func (h *DepartmentHandler) Get(c *gin.Context) {
	if _, ok := h.Actor(c); !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	dept, err := h.departments.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dept)
}

// SetStatus activates or deactivates a department
func (h *DepartmentHandler) SetStatus(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.DepartmentStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	dept, err := h.departments.SetStatus(c.Request.Context(), actor, id, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dept)
}

// ListGrants lists the enabled role tiers of a department
func (h *DepartmentHandler) ListGrants(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	grants, err := h.departments.ListGrants(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if grants == nil {
		grants = []identityapp.GrantDTO{}
	}
	h.Success(c, grants)
}

// EnableTier enables a role tier in the department
func (h *DepartmentHandler) EnableTier(c *gin.Context) {
	actor, id, tier, ok := h.grantTarget(c)
	if !ok {
		return
	}
	grant, err := h.departments.EnableTier(c.Request.Context(), actor, id, tier)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, grant)
}

// RevokeTier disables a role tier in the department
func (h *DepartmentHandler) RevokeTier(c *gin.Context) {
	actor, id, tier, ok := h.grantTarget(c)
	if !ok {
		return
	}
	if err := h.departments.RevokeTier(c.Request.Context(), actor, id, tier); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Activity lists the department's activity trail
func (h *DepartmentHandler) Activity(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ActivityListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.ledger.ActivityTrail(c.Request.Context(), actor, ledger.ActivityQuery{
		Filter:       req.Filter(),
		DepartmentID: &id,
		Action:       ledger.Action(req.Action),
		OverrideOnly: req.OverrideOnly,
		From:         req.From,
		To:           req.To,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Metrics returns one metric series of the department
func (h *DepartmentHandler) Metrics(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.MetricSeriesRequest
	if !h.BindQuery(c, &req) {
		return
	}
	query := ledger.MetricQuery{
		DepartmentID: id,
		MetricType:   ledger.MetricType(req.MetricType),
		Period:       ledger.Period(req.Period),
	}
	// Dates were checked by the datetime validator.
	if req.From != "" {
		query.From, _ = time.Parse(time.DateOnly, req.From)
	}
	if req.To != "" {
		query.To, _ = time.Parse(time.DateOnly, req.To)
	}

	series, err := h.ledger.MetricSeries(c.Request.Context(), actor, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if series == nil {
		series = []ledgerapp.MetricDTO{}
	}
	h.Success(c, series)
}

func (h *DepartmentHandler) grantTarget(c *gin.Context) (identity.Actor, uuid.UUID, identity.RoleTier, bool) {
	actor, ok := h.Actor(c)
	if !ok {
		return identity.Actor{}, uuid.Nil, 0, false
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return identity.Actor{}, uuid.Nil, 0, false
	}
	tier, err := identity.ParseRoleTier(c.Param("tier"))
	if err != nil {
		h.HandleError(c, err)
		return identity.Actor{}, uuid.Nil, 0, false
	}
	return actor, id, tier, true
}
