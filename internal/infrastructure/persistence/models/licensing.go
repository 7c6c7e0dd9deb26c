package models

import (
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ApplicationModel is the persistence model for license applications
type ApplicationModel struct {
	DepartmentAggregateModel
	ApplicationNumber string                                       `gorm:"type:varchar(32);not null;uniqueIndex"`
	ApplicantID       uuid.UUID                                    `gorm:"type:uuid;not null;index"`
	LicenseTypeID     string                                       `gorm:"type:varchar(50);not null;index"`
	WorkflowID        *uuid.UUID                                   `gorm:"type:uuid"`
	WorkflowVersion   int                                          `gorm:"not null;default:0"`
	CurrentStage      *int                                         `gorm:"column:current_stage_order"`
	Status            string                                       `gorm:"type:varchar(20);not null;index"`
	FrozenPercent     int                                          `gorm:"not null;default:0"`
	Decisions         datatypes.JSONSlice[licensing.StageDecision] `gorm:"not null"`
	SubmittedAt       *time.Time
	CompletedAt       *time.Time
}

// TableName returns the table name for GORM
func (ApplicationModel) TableName() string {
	return "applications"
}

// ToDomain converts the persistence model to a domain Application
func (m *ApplicationModel) ToDomain() (*licensing.Application, error) {
	status, err := licensing.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}
	var workflowID uuid.UUID
	if m.WorkflowID != nil {
		workflowID = *m.WorkflowID
	}
	return licensing.Restore(licensing.Snapshot{
		ID:              m.ID,
		Number:          m.ApplicationNumber,
		ApplicantID:     m.ApplicantID,
		LicenseTypeID:   m.LicenseTypeID,
		DepartmentID:    m.DepartmentID,
		WorkflowID:      workflowID,
		WorkflowVersion: m.WorkflowVersion,
		CurrentStage:    m.CurrentStage,
		Status:          status,
		FrozenPercent:   m.FrozenPercent,
		Decisions:       []licensing.StageDecision(m.Decisions),
		SubmittedAt:     utcPtr(m.SubmittedAt),
		CompletedAt:     utcPtr(m.CompletedAt),
		Version:         m.Version,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}), nil
}

// ApplicationModelFromDomain creates a new persistence model from a domain Application
func ApplicationModelFromDomain(a *licensing.Application) *ApplicationModel {
	s := a.Snapshot()
	m := &ApplicationModel{
		ApplicationNumber: s.Number,
		ApplicantID:       s.ApplicantID,
		LicenseTypeID:     s.LicenseTypeID,
		WorkflowVersion:   s.WorkflowVersion,
		CurrentStage:      s.CurrentStage,
		Status:            s.Status.Label(),
		FrozenPercent:     s.FrozenPercent,
		Decisions:         datatypes.JSONSlice[licensing.StageDecision](s.Decisions),
		SubmittedAt:       s.SubmittedAt,
		CompletedAt:       s.CompletedAt,
	}
	if m.Decisions == nil {
		m.Decisions = datatypes.JSONSlice[licensing.StageDecision]{}
	}
	if s.WorkflowID != uuid.Nil {
		id := s.WorkflowID
		m.WorkflowID = &id
	}
	m.ID = s.ID
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
	m.Version = s.Version
	m.DepartmentID = s.DepartmentID
	return m
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
