package licensing

import (
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
)

// Snapshot is the persisted form of an Application
type Snapshot struct {
	ID              uuid.UUID
	Number          string
	ApplicantID     uuid.UUID
	LicenseTypeID   string
	DepartmentID    uuid.UUID
	WorkflowID      uuid.UUID
	WorkflowVersion int
	CurrentStage    *int
	Status          Status
	FrozenPercent   int
	Decisions       []StageDecision
	SubmittedAt     *time.Time
	CompletedAt     *time.Time
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Snapshot captures the application's current state
func (a *Application) Snapshot() Snapshot {
	var stage *int
	if a.currentStage != nil {
		stage = intPtr(*a.currentStage)
	}
	return Snapshot{
		ID:              a.ID,
		Number:          a.number,
		ApplicantID:     a.applicantID,
		LicenseTypeID:   a.licenseTypeID,
		DepartmentID:    a.DepartmentID,
		WorkflowID:      a.workflowID,
		WorkflowVersion: a.workflowVersion,
		CurrentStage:    stage,
		Status:          a.status,
		FrozenPercent:   a.frozenPercent,
		Decisions:       a.Decisions(),
		SubmittedAt:     a.submittedAt,
		CompletedAt:     a.completedAt,
		Version:         a.Version,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// Restore rebuilds an application from a snapshot. It raises no events.
func Restore(s Snapshot) *Application {
	var stage *int
	if s.CurrentStage != nil {
		stage = intPtr(*s.CurrentStage)
	}
	return &Application{
		DepartmentAggregateRoot: shared.DepartmentAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{ID: s.ID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt},
				Version:    s.Version,
			},
			DepartmentID: s.DepartmentID,
		},
		number:          s.Number,
		applicantID:     s.ApplicantID,
		licenseTypeID:   s.LicenseTypeID,
		workflowID:      s.WorkflowID,
		workflowVersion: s.WorkflowVersion,
		currentStage:    stage,
		status:          s.Status,
		frozenPercent:   s.FrozenPercent,
		decisions:       append([]StageDecision(nil), s.Decisions...),
		submittedAt:     s.SubmittedAt,
		completedAt:     s.CompletedAt,
	}
}
