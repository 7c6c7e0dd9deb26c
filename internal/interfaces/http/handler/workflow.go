package handler

import (
	"context"

	workflowapp "github.com/afrinict/nbcportal-sub001/internal/application/workflow"
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WorkflowService defines and reads license type workflows
type WorkflowService interface {
	Define(ctx context.Context, actor identity.Actor, input workflowapp.DefineInput) (*workflowapp.WorkflowDTO, error)
	Active(ctx context.Context, licenseTypeID string) (*workflowapp.WorkflowDTO, error)
}

// WorkflowHandler serves /workflows
type WorkflowHandler struct {
	BaseHandler
	service WorkflowService
}

// NewWorkflowHandler creates a new WorkflowHandler
func NewWorkflowHandler(service WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{service: service}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *WorkflowHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/workflows")
	g.PUT("/:licenseTypeId", h.Define)
	g.GET("/:licenseTypeId", h.Active)
}

// Define activates a new workflow version for the license type
func (h *WorkflowHandler) Define(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.DefineWorkflowRequest
	if !h.BindJSON(c, &req) {
		return
	}
	deptID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		h.BadRequest(c, "Invalid department_id")
		return
	}

	stages := make([]workflowapp.StageInput, len(req.Stages))
	for i, st := range req.Stages {
		// Tags were checked by the roletier validator.
		tier, _ := identity.ParseRoleTier(st.AssignedRoleTier)
		stages[i] = workflowapp.StageInput{
			Order:             st.Order,
			Name:              st.Name,
			RequiredDocuments: st.RequiredDocuments,
			AssignedTier:      tier,
			CanApprove:        st.CanApprove,
			CanReject:         st.CanReject,
			EstimatedDuration: st.EstimatedDuration(),
		}
	}

	wf, err := h.service.Define(c.Request.Context(), actor, workflowapp.DefineInput{
		LicenseTypeID: c.Param("licenseTypeId"),
		DepartmentID:  deptID,
		Stages:        stages,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, wf)
}

// Active returns the active workflow of the license type
func (h *WorkflowHandler) Active(c *gin.Context) {
	if _, ok := h.Actor(c); !ok {
		return
	}
	wf, err := h.service.Active(c.Request.Context(), c.Param("licenseTypeId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, wf)
}
