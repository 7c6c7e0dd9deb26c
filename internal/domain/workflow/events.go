package workflow

import (
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
)

// AggregateTypeWorkflow is the aggregate type of workflow events
const AggregateTypeWorkflow = "Workflow"

// EventTypeWorkflowDefined is raised when a new workflow version is activated
const EventTypeWorkflowDefined = "WorkflowDefined"

// WorkflowDefinedEvent is raised when a new workflow version becomes active
type WorkflowDefinedEvent struct {
	shared.BaseDomainEvent
	LicenseTypeID string `json:"license_type_id"`
	Version       int    `json:"version"`
	StageCount    int    `json:"stage_count"`
}

// NewWorkflowDefinedEvent creates a new WorkflowDefinedEvent
func NewWorkflowDefinedEvent(w *Workflow) *WorkflowDefinedEvent {
	return &WorkflowDefinedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWorkflowDefined, AggregateTypeWorkflow, w.ID, w.DepartmentID),
		LicenseTypeID:   w.LicenseTypeID,
		Version:         w.Version,
		StageCount:      w.StageCount(),
	}
}
