package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/application/transaction"
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Authorizer checks an actor's capability in a department
type Authorizer interface {
	Require(ctx context.Context, actor identity.Actor, departmentID uuid.UUID, capability identity.Capability) error
}

// DefinitionService defines and reads license type workflows
type DefinitionService struct {
	scope       transaction.Scope
	catalog     *Catalog
	departments identity.DepartmentRepository
	authorizer  Authorizer
	logger      *zap.Logger
}

// NewDefinitionService creates a new definition service
func NewDefinitionService(
	scope transaction.Scope,
	catalog *Catalog,
	departments identity.DepartmentRepository,
	authorizer Authorizer,
	logger *zap.Logger,
) *DefinitionService {
	return &DefinitionService{
		scope:       scope,
		catalog:     catalog,
		departments: departments,
		authorizer:  authorizer,
		logger:      logger,
	}
}

// StageInput describes one stage of a new definition
type StageInput struct {
	Order             int
	Name              string
	RequiredDocuments []string
	AssignedTier      identity.RoleTier
	CanApprove        bool
	CanReject         bool
	EstimatedDuration time.Duration
}

// DefineInput contains input for defining a workflow version
type DefineInput struct {
	LicenseTypeID string
	DepartmentID  uuid.UUID
	Stages        []StageInput
}

// Define validates the definition and activates it as version N+1 of its
// license type. A rejected definition leaves the current version active.
// Requires can_manage_roles in the owning department.
func (s *DefinitionService) Define(ctx context.Context, actor identity.Actor, input DefineInput) (*WorkflowDTO, error) {
	if err := s.authorizer.Require(ctx, actor, input.DepartmentID, identity.CanManageRoles); err != nil {
		return nil, err
	}

	stages := make([]workflow.Stage, len(input.Stages))
	for i, st := range input.Stages {
		stages[i] = workflow.Stage{
			Order:             st.Order,
			Name:              st.Name,
			RequiredDocuments: st.RequiredDocuments,
			AssignedTier:      st.AssignedTier,
			CanApprove:        st.CanApprove,
			CanReject:         st.CanReject,
			EstimatedDuration: st.EstimatedDuration,
		}
	}

	wf, err := workflow.NewWorkflow(workflow.Definition{
		LicenseTypeID: input.LicenseTypeID,
		DepartmentID:  input.DepartmentID,
		Stages:        stages,
		CreatedBy:     actor.UserID,
	})
	if err != nil {
		s.logger.Warn("Rejected workflow definition",
			zap.String("license_type_id", input.LicenseTypeID),
			zap.Error(err))
		return nil, err
	}

	dept, err := s.departments.FindByID(ctx, input.DepartmentID)
	if err != nil {
		return nil, err
	}
	if !dept.IsActive() {
		return nil, shared.ErrInvalidState.WithMessage("Department " + dept.Code + " is inactive")
	}

	err = s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		previous, err := repos.Workflows().FindActive(ctx, wf.LicenseTypeID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		wf.Supersede(previous)

		if err := repos.Workflows().Activate(ctx, wf); err != nil {
			return err
		}

		rec, err := ledger.NewActivityRecord(wf.DepartmentID, actor.UserID, ledger.ActionDefineWorkflow, ledger.ResourceWorkflow, wf.ID, wf.CreatedAt)
		if err != nil {
			return err
		}
		rec.WithDetail("license_type_id", wf.LicenseTypeID).
			WithDetail("version", wf.Version).
			WithDetail("stage_count", wf.StageCount())
		if err := repos.Activities().Append(ctx, rec); err != nil {
			return err
		}
		return repos.Events().Save(ctx, workflow.NewWorkflowDefinedEvent(wf))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Workflow defined",
		zap.String("license_type_id", wf.LicenseTypeID),
		zap.Int("version", wf.Version),
		zap.Int("stage_count", wf.StageCount()))

	dto := ToWorkflowDTO(wf)
	return &dto, nil
}

// Active returns the active workflow of a license type
func (s *DefinitionService) Active(ctx context.Context, licenseTypeID string) (*WorkflowDTO, error) {
	wf, err := s.catalog.Active(ctx, licenseTypeID)
	if err != nil {
		return nil, err
	}
	dto := ToWorkflowDTO(wf)
	return &dto, nil
}

// StagesFor returns the ordered stages of a license type's active workflow
func (s *DefinitionService) StagesFor(ctx context.Context, licenseTypeID string) ([]workflow.Stage, error) {
	wf, err := s.catalog.Active(ctx, licenseTypeID)
	if err != nil {
		return nil, err
	}
	return wf.Stages(), nil
}

// FirstStage returns the first stage of a license type's active workflow
func (s *DefinitionService) FirstStage(ctx context.Context, licenseTypeID string) (workflow.Stage, error) {
	wf, err := s.catalog.Active(ctx, licenseTypeID)
	if err != nil {
		return workflow.Stage{}, err
	}
	return wf.FirstStage()
}

// NextStage returns the stage after currentOrder in a license type's active workflow.
// ok is false when currentOrder is the last stage.
func (s *DefinitionService) NextStage(ctx context.Context, licenseTypeID string, currentOrder int) (workflow.Stage, bool, error) {
	wf, err := s.catalog.Active(ctx, licenseTypeID)
	if err != nil {
		return workflow.Stage{}, false, err
	}
	return wf.NextStage(currentOrder)
}
