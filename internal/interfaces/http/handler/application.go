package handler

import (
	"context"

	licensingapp "github.com/afrinict/nbcportal-sub001/internal/application/licensing"
	ledgerapp "github.com/afrinict/nbcportal-sub001/internal/application/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/logger"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ApplicationService is the transition engine as seen by the HTTP layer
type ApplicationService interface {
	CreateDraft(ctx context.Context, input licensingapp.CreateDraftInput) (*licensingapp.ApplicationDTO, error)
	Submit(ctx context.Context, input licensingapp.SubmitInput) (*licensingapp.ApplicationDTO, error)
	Act(ctx context.Context, input licensingapp.ActInput) (*licensingapp.ApplicationDTO, error)
	ReassignStage(ctx context.Context, input licensingapp.ReassignInput) (*licensingapp.ApplicationDTO, error)
	ProgressOf(ctx context.Context, applicationID uuid.UUID) (*licensingapp.ProgressDTO, error)
	Get(ctx context.Context, applicationID uuid.UUID) (*licensingapp.ApplicationDTO, error)
	List(ctx context.Context, query licensing.Query) (shared.Paginated[licensingapp.ApplicationDTO], error)
	CanView(ctx context.Context, actor identity.Actor, applicationID uuid.UUID) error
}

// ApplicationTrailReader lists the activity records of one application
type ApplicationTrailReader interface {
	ApplicationTrail(ctx context.Context, applicationID uuid.UUID, filter shared.Filter) (shared.Paginated[ledgerapp.ActivityDTO], error)
}

// ApplicationHandler serves /applications
type ApplicationHandler struct {
	BaseHandler
	engine ApplicationService
	trail  ApplicationTrailReader
}

// NewApplicationHandler creates a new ApplicationHandler
func NewApplicationHandler(engine ApplicationService, trail ApplicationTrailReader) *ApplicationHandler {
	return &ApplicationHandler{engine: engine, trail: trail}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *ApplicationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/applications", tagApplication)
	g.POST("", h.Create)
	g.GET("", h.ListMine)
	g.GET("/:id", h.Get)
	g.POST("/:id/submit", h.Submit)
	g.POST("/:id/decisions", h.Decide)
	g.POST("/:id/reassign", h.Reassign)
	g.GET("/:id/progress", h.Progress)
	g.GET("/:id/activity", h.Activity)
}

// tagApplication adds the application id in the path to the request's log correlation
func tagApplication(c *gin.Context) {
	if id, err := uuid.Parse(c.Param("id")); err == nil {
		c.Request = c.Request.WithContext(logger.WithApplication(c.Request.Context(), id.String()))
	}
	c.Next()
}

// Create starts a draft, or submits straight away when submit is true
func (h *ApplicationHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.CreateApplicationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var (
		app *licensingapp.ApplicationDTO
		err error
	)
	if req.Submit {
		app, err = h.engine.Submit(c.Request.Context(), licensingapp.SubmitInput{
			ApplicantID:   actor.UserID,
			LicenseTypeID: req.LicenseTypeID,
		})
	} else {
		app, err = h.engine.CreateDraft(c.Request.Context(), licensingapp.CreateDraftInput{
			ApplicantID:   actor.UserID,
			LicenseTypeID: req.LicenseTypeID,
		})
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, app)
}

// ListMine lists the caller's own applications
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.ApplicationListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	query := licensing.Query{Filter: req.Filter(), ApplicantID: &actor.UserID}
	if req.Status != "" {
		status, err := licensing.ParseStatus(req.Status)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		query.Status = &status
	}

	page, err := h.engine.List(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get returns the application with its decision history
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := h.viewable(c)
	if !ok {
		return
	}
	app, err := h.engine.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app)
}

// Submit submits the caller's draft
func (h *ApplicationHandler) Submit(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	app, err := h.engine.Submit(c.Request.Context(), licensingapp.SubmitInput{
		ApplicationID: &id,
		ApplicantID:   actor.UserID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app)
}

// Decide approves or rejects the current stage
func (h *ApplicationHandler) Decide(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	decision, err := licensing.ParseDecision(req.Decision)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	app, err := h.engine.Act(c.Request.Context(), licensingapp.ActInput{
		ApplicationID: id,
		Actor:         actor,
		Decision:      decision,
		Comment:       req.Comment,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app)
}

// Reassign moves the application to another stage
func (h *ApplicationHandler) Reassign(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReassignRequest
	if !h.BindJSON(c, &req) {
		return
	}

	app, err := h.engine.ReassignStage(c.Request.Context(), licensingapp.ReassignInput{
		ApplicationID: id,
		Actor:         actor,
		StageOrder:    req.StageOrder,
		Reason:        req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app)
}

// Progress returns the applicant-facing progress view
func (h *ApplicationHandler) Progress(c *gin.Context) {
	id, ok := h.viewable(c)
	if !ok {
		return
	}
	progress, err := h.engine.ProgressOf(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, progress)
}

// Activity lists the application's activity trail
func (h *ApplicationHandler) Activity(c *gin.Context) {
	id, ok := h.viewable(c)
	if !ok {
		return
	}
	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.trail.ApplicationTrail(c.Request.Context(), id, req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// viewable parses :id and checks the caller may read the application
func (h *ApplicationHandler) viewable(c *gin.Context) (uuid.UUID, bool) {
	actor, ok := h.Actor(c)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return uuid.Nil, false
	}
	if err := h.engine.CanView(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return uuid.Nil, false
	}
	return id, true
}
