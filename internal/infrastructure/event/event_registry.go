package event

import (
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
)

// RegisterAllEvents registers every domain event type with the serializer.
// The outbox only accepts and delivers events whose type is registered here.
func RegisterAllEvents(serializer *EventSerializer) {
	// Identity
	serializer.Register(identity.EventTypeDepartmentCreated, func() shared.DomainEvent { return &identity.DepartmentCreatedEvent{} })
	serializer.Register(identity.EventTypeDepartmentStatusChanged, func() shared.DomainEvent { return &identity.DepartmentStatusChangedEvent{} })

	// Workflow definitions
	serializer.Register(workflow.EventTypeWorkflowDefined, func() shared.DomainEvent { return &workflow.WorkflowDefinedEvent{} })

	// Application lifecycle
	serializer.Register(licensing.EventTypeApplicationSubmitted, func() shared.DomainEvent { return &licensing.ApplicationSubmittedEvent{} })
	serializer.Register(licensing.EventTypeApplicationAdvanced, func() shared.DomainEvent { return &licensing.ApplicationAdvancedEvent{} })
	serializer.Register(licensing.EventTypeApplicationApproved, func() shared.DomainEvent { return &licensing.ApplicationApprovedEvent{} })
	serializer.Register(licensing.EventTypeApplicationRejected, func() shared.DomainEvent { return &licensing.ApplicationRejectedEvent{} })
	serializer.Register(licensing.EventTypeApplicationStageReassigned, func() shared.DomainEvent { return &licensing.ApplicationStageReassignedEvent{} })
}
