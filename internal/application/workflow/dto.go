package workflow

import (
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
	"github.com/google/uuid"
)

// StageDTO represents a workflow stage
type StageDTO struct {
	Order                  int               `json:"order"`
	Name                   string            `json:"name"`
	RequiredDocuments      []string          `json:"required_documents"`
	AssignedTier           identity.RoleTier `json:"assigned_role_tier"`
	CanApprove             bool              `json:"can_approve"`
	CanReject              bool              `json:"can_reject"`
	EstimatedDurationHours float64           `json:"estimated_duration_hours"`
}

// WorkflowDTO represents one workflow version
type WorkflowDTO struct {
	ID            uuid.UUID  `json:"id"`
	LicenseTypeID string     `json:"license_type_id"`
	DepartmentID  uuid.UUID  `json:"department_id"`
	Version       int        `json:"version"`
	Active        bool       `json:"active"`
	Stages        []StageDTO `json:"stages"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ToWorkflowDTO converts a domain workflow
func ToWorkflowDTO(w *workflow.Workflow) WorkflowDTO {
	stages := w.Stages()
	out := make([]StageDTO, len(stages))
	for i, s := range stages {
		docs := s.RequiredDocuments
		if docs == nil {
			docs = []string{}
		}
		out[i] = StageDTO{
			Order:                  s.Order,
			Name:                   s.Name,
			RequiredDocuments:      docs,
			AssignedTier:           s.AssignedTier,
			CanApprove:             s.CanApprove,
			CanReject:              s.CanReject,
			EstimatedDurationHours: s.EstimatedDuration.Hours(),
		}
	}
	return WorkflowDTO{
		ID:            w.ID,
		LicenseTypeID: w.LicenseTypeID,
		DepartmentID:  w.DepartmentID,
		Version:       w.Version,
		Active:        w.Active,
		Stages:        out,
		CreatedBy:     w.CreatedBy,
		CreatedAt:     w.CreatedAt,
	}
}
