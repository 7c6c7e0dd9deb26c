package licensing

import (
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
	"github.com/google/uuid"
)

// AggregateTypeApplication is the aggregate type of application events
const AggregateTypeApplication = "Application"

// Application domain event types
const (
	EventTypeApplicationSubmitted       = "ApplicationSubmitted"
	EventTypeApplicationAdvanced        = "ApplicationAdvanced"
	EventTypeApplicationApproved        = "ApplicationApproved"
	EventTypeApplicationRejected        = "ApplicationRejected"
	EventTypeApplicationStageReassigned = "ApplicationStageReassigned"
)

// ApplicationSubmittedEvent is raised when a draft enters its workflow
type ApplicationSubmittedEvent struct {
	shared.BaseDomainEvent
	ApplicationNumber string    `json:"application_number"`
	ApplicantID       uuid.UUID `json:"applicant_id"`
	LicenseTypeID     string    `json:"license_type_id"`
	WorkflowVersion   int       `json:"workflow_version"`
	StageOrder        int       `json:"stage_order"`
	StageName         string    `json:"stage_name"`
}

// NewApplicationSubmittedEvent creates a new ApplicationSubmittedEvent
func NewApplicationSubmittedEvent(a *Application, first workflow.Stage) *ApplicationSubmittedEvent {
	return &ApplicationSubmittedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeApplicationSubmitted, AggregateTypeApplication, a.ID, a.DepartmentID),
		ApplicationNumber: a.number,
		ApplicantID:       a.applicantID,
		LicenseTypeID:     a.licenseTypeID,
		WorkflowVersion:   a.workflowVersion,
		StageOrder:        first.Order,
		StageName:         first.Name,
	}
}

// ApplicationAdvancedEvent is raised when an approval moves the application to the next stage
type ApplicationAdvancedEvent struct {
	shared.BaseDomainEvent
	ApplicationNumber string    `json:"application_number"`
	ApplicantID       uuid.UUID `json:"applicant_id"`
	FromStage         int       `json:"from_stage"`
	ToStage           int       `json:"to_stage"`
	ToStageName       string    `json:"to_stage_name"`
	ActorID           uuid.UUID `json:"actor_id"`
}

// NewApplicationAdvancedEvent creates a new ApplicationAdvancedEvent
func NewApplicationAdvancedEvent(a *Application, from, to workflow.Stage, actorID uuid.UUID) *ApplicationAdvancedEvent {
	return &ApplicationAdvancedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeApplicationAdvanced, AggregateTypeApplication, a.ID, a.DepartmentID),
		ApplicationNumber: a.number,
		ApplicantID:       a.applicantID,
		FromStage:         from.Order,
		ToStage:           to.Order,
		ToStageName:       to.Name,
		ActorID:           actorID,
	}
}

// ApplicationApprovedEvent is raised when the last stage is approved
type ApplicationApprovedEvent struct {
	shared.BaseDomainEvent
	ApplicationNumber string    `json:"application_number"`
	ApplicantID       uuid.UUID `json:"applicant_id"`
	LicenseTypeID     string    `json:"license_type_id"`
	FinalStage        int       `json:"final_stage"`
	ActorID           uuid.UUID `json:"actor_id"`
}

// NewApplicationApprovedEvent creates a new ApplicationApprovedEvent
func NewApplicationApprovedEvent(a *Application, final workflow.Stage, actorID uuid.UUID) *ApplicationApprovedEvent {
	return &ApplicationApprovedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeApplicationApproved, AggregateTypeApplication, a.ID, a.DepartmentID),
		ApplicationNumber: a.number,
		ApplicantID:       a.applicantID,
		LicenseTypeID:     a.licenseTypeID,
		FinalStage:        final.Order,
		ActorID:           actorID,
	}
}

// ApplicationRejectedEvent is raised when a reviewer rejects the application
type ApplicationRejectedEvent struct {
	shared.BaseDomainEvent
	ApplicationNumber string    `json:"application_number"`
	ApplicantID       uuid.UUID `json:"applicant_id"`
	StageOrder        int       `json:"stage_order"`
	StageName         string    `json:"stage_name"`
	Reason            string    `json:"reason,omitempty"`
	ActorID           uuid.UUID `json:"actor_id"`
}

// NewApplicationRejectedEvent creates a new ApplicationRejectedEvent
func NewApplicationRejectedEvent(a *Application, stage workflow.Stage, actorID uuid.UUID, reason string) *ApplicationRejectedEvent {
	return &ApplicationRejectedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeApplicationRejected, AggregateTypeApplication, a.ID, a.DepartmentID),
		ApplicationNumber: a.number,
		ApplicantID:       a.applicantID,
		StageOrder:        stage.Order,
		StageName:         stage.Name,
		Reason:            reason,
		ActorID:           actorID,
	}
}

// ApplicationStageReassignedEvent is raised on a manual stage override
type ApplicationStageReassignedEvent struct {
	shared.BaseDomainEvent
	ApplicationNumber string    `json:"application_number"`
	FromStage         int       `json:"from_stage"`
	ToStage           int       `json:"to_stage"`
	ToStageName       string    `json:"to_stage_name"`
	Reason            string    `json:"reason,omitempty"`
	ActorID           uuid.UUID `json:"actor_id"`
}

// NewApplicationStageReassignedEvent creates a new ApplicationStageReassignedEvent
func NewApplicationStageReassignedEvent(a *Application, from, to workflow.Stage, actorID uuid.UUID, reason string) *ApplicationStageReassignedEvent {
	return &ApplicationStageReassignedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeApplicationStageReassigned, AggregateTypeApplication, a.ID, a.DepartmentID),
		ApplicationNumber: a.number,
		FromStage:         from.Order,
		ToStage:           to.Order,
		ToStageName:       to.Name,
		Reason:            reason,
		ActorID:           actorID,
	}
}
