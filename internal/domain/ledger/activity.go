package ledger

import (
	"strings"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
)

// Action names a state-changing operation recorded in the activity trail
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionAdvance  Action = "advance"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionReassign Action = "reassign"

	ActionDefineWorkflow    Action = "define_workflow"
	ActionCreateDepartment  Action = "create_department"
	ActionDepartmentStatus  Action = "department_status"
	ActionEnableGrant       Action = "enable_grant"
	ActionRevokeGrant       Action = "revoke_grant"
	ActionCreateApplication Action = "create_application"
)

// Resource types referenced by activity records
const (
	ResourceApplication = "application"
	ResourceWorkflow    = "workflow"
	ResourceDepartment  = "department"
	ResourceGrant       = "permission_grant"
)

// ActivityRecord is one immutable audit-trail entry. Records are only ever
// appended; no code path updates or deletes them.
type ActivityRecord struct {
	ID           uuid.UUID
	DepartmentID uuid.UUID
	ActorID      uuid.UUID
	Action       Action
	ResourceType string
	ResourceID   uuid.UUID
	// Override marks manual corrections such as stage reassignment
	Override   bool
	Details    map[string]any
	OccurredAt time.Time
}

// NewActivityRecord builds a validated activity record
func NewActivityRecord(departmentID, actorID uuid.UUID, action Action, resourceType string, resourceID uuid.UUID, at time.Time) (*ActivityRecord, error) {
	if departmentID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Activity record requires a department")
	}
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Activity record requires an actor")
	}
	if strings.TrimSpace(string(action)) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Activity record requires an action")
	}
	if resourceType == "" || resourceID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Activity record requires a resource")
	}
	return &ActivityRecord{
		ID:           uuid.New(),
		DepartmentID: departmentID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      make(map[string]any),
		OccurredAt:   at.UTC(),
	}, nil
}

// WithDetail adds a structured detail entry and returns the record
func (r *ActivityRecord) WithDetail(key string, value any) *ActivityRecord {
	if r.Details == nil {
		r.Details = make(map[string]any)
	}
	r.Details[key] = value
	return r
}

// MarkOverride tags the record as a manual correction
func (r *ActivityRecord) MarkOverride() *ActivityRecord {
	r.Override = true
	return r.WithDetail("override", true)
}

// ActivityQuery narrows an activity trail listing
type ActivityQuery struct {
	shared.Filter
	DepartmentID *uuid.UUID
	ResourceType string
	ResourceID   *uuid.UUID
	Action       Action
	OverrideOnly bool
	From         *time.Time
	To           *time.Time
}
