package licensing

import (
	"math"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/google/uuid"
)

// ApplicationDTO represents application data transfer object
type ApplicationDTO struct {
	ID              uuid.UUID                 `json:"id"`
	Number          string                    `json:"application_number"`
	ApplicantID     uuid.UUID                 `json:"applicant_id"`
	LicenseTypeID   string                    `json:"license_type_id"`
	DepartmentID    uuid.UUID                 `json:"department_id"`
	WorkflowID      *uuid.UUID                `json:"workflow_id,omitempty"`
	WorkflowVersion int                       `json:"workflow_version,omitempty"`
	CurrentStage    *int                      `json:"current_stage,omitempty"`
	Status          string                    `json:"status"`
	Decisions       []licensing.StageDecision `json:"decisions"`
	SubmittedAt     *time.Time                `json:"submitted_at,omitempty"`
	CompletedAt     *time.Time                `json:"completed_at,omitempty"`
	Version         int                       `json:"version"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// ProgressDTO is the applicant-facing progress view
type ProgressDTO struct {
	ApplicationID           uuid.UUID `json:"application_id"`
	Number                  string    `json:"application_number"`
	Percent                 int       `json:"percent"`
	Label                   string    `json:"label"`
	Status                  string    `json:"status"`
	StageIndex              int       `json:"stage_index,omitempty"`
	StageCount              int       `json:"stage_count,omitempty"`
	EstimatedRemainingHours float64   `json:"estimated_remaining_hours"`
}

// ToApplicationDTO converts a domain application
func ToApplicationDTO(a *licensing.Application) ApplicationDTO {
	s := a.Snapshot()
	dto := ApplicationDTO{
		ID:            s.ID,
		Number:        s.Number,
		ApplicantID:   s.ApplicantID,
		LicenseTypeID: s.LicenseTypeID,
		DepartmentID:  s.DepartmentID,
		CurrentStage:  s.CurrentStage,
		Status:        s.Status.Label(),
		Decisions:     s.Decisions,
		SubmittedAt:   s.SubmittedAt,
		CompletedAt:   s.CompletedAt,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.WorkflowID != uuid.Nil {
		id := s.WorkflowID
		dto.WorkflowID = &id
		dto.WorkflowVersion = s.WorkflowVersion
	}
	if dto.Decisions == nil {
		dto.Decisions = []licensing.StageDecision{}
	}
	return dto
}

// ToProgressDTO converts a progress projection
func ToProgressDTO(a *licensing.Application, p licensing.Progress) ProgressDTO {
	return ProgressDTO{
		ApplicationID:           a.ID,
		Number:                  a.Number(),
		Percent:                 p.Percent,
		Label:                   p.Label,
		Status:                  p.Status,
		StageIndex:              p.StageIndex,
		StageCount:              p.StageCount,
		EstimatedRemainingHours: math.Round(p.EstimatedRemaining.Hours()*100) / 100,
	}
}
