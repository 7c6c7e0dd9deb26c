package models

import (
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WorkflowModel is the persistence model for one workflow version
type WorkflowModel struct {
	ID            uuid.UUID            `gorm:"type:uuid;primaryKey"`
	LicenseTypeID string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_workflow_license_version,priority:1;index:idx_workflow_license_active,priority:1"`
	DepartmentID  uuid.UUID            `gorm:"type:uuid;not null;index"`
	Version       int                  `gorm:"not null;uniqueIndex:idx_workflow_license_version,priority:2"`
	Active        bool                 `gorm:"not null;default:false;index:idx_workflow_license_active,priority:2"`
	CreatedBy     uuid.UUID            `gorm:"type:uuid"`
	CreatedAt     time.Time            `gorm:"not null"`
	Stages        []WorkflowStageModel `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (WorkflowModel) TableName() string {
	return "workflows"
}

// WorkflowStageModel is one stage row of a workflow version
type WorkflowStageModel struct {
	ID                uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	WorkflowID        uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_stage_workflow_order,priority:1"`
	StageOrder        int                         `gorm:"not null;uniqueIndex:idx_stage_workflow_order,priority:2"`
	Name              string                      `gorm:"type:varchar(100);not null"`
	RequiredDocuments datatypes.JSONSlice[string] `gorm:"not null"`
	AssignedTier      string                      `gorm:"type:varchar(20);not null"`
	CanApprove        bool                        `gorm:"not null;default:false"`
	CanReject         bool                        `gorm:"not null;default:false"`
	EstimatedSeconds  int64                       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (WorkflowStageModel) TableName() string {
	return "workflow_stages"
}

// ToDomain converts the persistence model and its stages to a domain Workflow
func (m *WorkflowModel) ToDomain() (*workflow.Workflow, error) {
	stages := make([]workflow.Stage, 0, len(m.Stages))
	for i := range m.Stages {
		s, err := m.Stages[i].ToDomain()
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return workflow.Reconstruct(m.ID, m.LicenseTypeID, m.DepartmentID, m.Version, m.Active,
		m.CreatedBy, m.CreatedAt.UTC(), stages), nil
}

// ToDomain converts a stage row to a domain Stage
func (m *WorkflowStageModel) ToDomain() (workflow.Stage, error) {
	tier, err := identity.ParseRoleTier(m.AssignedTier)
	if err != nil {
		return workflow.Stage{}, err
	}
	return workflow.Stage{
		Order:             m.StageOrder,
		Name:              m.Name,
		RequiredDocuments: append([]string(nil), m.RequiredDocuments...),
		AssignedTier:      tier,
		CanApprove:        m.CanApprove,
		CanReject:         m.CanReject,
		EstimatedDuration: time.Duration(m.EstimatedSeconds) * time.Second,
	}, nil
}

// WorkflowModelFromDomain creates a persistence model, stages included, from a domain Workflow
func WorkflowModelFromDomain(w *workflow.Workflow) *WorkflowModel {
	m := &WorkflowModel{
		ID:            w.ID,
		LicenseTypeID: w.LicenseTypeID,
		DepartmentID:  w.DepartmentID,
		Version:       w.Version,
		Active:        w.Active,
		CreatedBy:     w.CreatedBy,
		CreatedAt:     w.CreatedAt,
	}
	for _, s := range w.Stages() {
		docs := s.RequiredDocuments
		if docs == nil {
			docs = []string{}
		}
		m.Stages = append(m.Stages, WorkflowStageModel{
			ID:                uuid.New(),
			WorkflowID:        w.ID,
			StageOrder:        s.Order,
			Name:              s.Name,
			RequiredDocuments: datatypes.JSONSlice[string](docs),
			AssignedTier:      s.AssignedTier.String(),
			CanApprove:        s.CanApprove,
			CanReject:         s.CanReject,
			EstimatedSeconds:  int64(s.EstimatedDuration / time.Second),
		})
	}
	return m
}
