package licensing

import (
	"errors"
	"testing"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func reviewWorkflow(t *testing.T, deptID uuid.UUID) *workflow.Workflow {
	t.Helper()
	wf, err := workflow.NewWorkflow(workflow.Definition{
		LicenseTypeID: "FM-RADIO",
		DepartmentID:  deptID,
		CreatedBy:     uuid.New(),
		Stages: []workflow.Stage{
			{Order: 1, Name: "Document Review", RequiredDocuments: []string{"a", "b"}, AssignedTier: identity.TierWrite, CanApprove: true, CanReject: true, EstimatedDuration: 24 * time.Hour},
			{Order: 2, Name: "Technical Assessment", AssignedTier: identity.TierAdmin, CanApprove: true, CanReject: true, EstimatedDuration: 48 * time.Hour},
			{Order: 3, Name: "Final Approval", AssignedTier: identity.TierAdmin, CanApprove: true, CanReject: false, EstimatedDuration: 8 * time.Hour},
		},
	})
	require.NoError(t, err)
	wf.Supersede(nil)
	return wf
}

func submitted(t *testing.T) (*Application, *workflow.Workflow) {
	t.Helper()
	deptID := uuid.New()
	wf := reviewWorkflow(t, deptID)
	app, err := NewDraft(uuid.New(), "fm-radio", deptID)
	require.NoError(t, err)
	_, err = app.Submit(wf, t0)
	require.NoError(t, err)
	app.ClearDomainEvents()
	return app, wf
}

func admin(deptID uuid.UUID) (identity.Actor, identity.CapabilitySet) {
	return identity.Actor{UserID: uuid.New(), DepartmentID: deptID, Tier: identity.TierAdmin}, identity.CapabilitiesFor(identity.TierAdmin)
}

func allDocs() map[string]bool {
	return map[string]bool{"a": true, "b": true}
}

func TestNewDraft(t *testing.T) {
	app, err := NewDraft(uuid.New(), " fm-radio ", uuid.New())
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, app.Status())
	assert.Equal(t, "FM-RADIO", app.LicenseTypeID())
	assert.Regexp(t, `^NBC-\d{8}-[0-9A-F]{10}$`, app.Number())
	_, onStage := app.CurrentStage()
	assert.False(t, onStage)

	_, err = NewDraft(uuid.Nil, "fm-radio", uuid.New())
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestSubmit(t *testing.T) {
	deptID := uuid.New()
	wf := reviewWorkflow(t, deptID)
	app, err := NewDraft(uuid.New(), "FM-RADIO", deptID)
	require.NoError(t, err)
	number := app.Number()

	tr, err := app.Submit(wf, t0)
	require.NoError(t, err)

	assert.Equal(t, ledger.ActionSubmit, tr.Action)
	assert.Equal(t, StatusSubmitted, app.Status())
	order, ok := app.CurrentStage()
	assert.True(t, ok)
	assert.Equal(t, 1, order)
	assert.Equal(t, wf.ID, app.WorkflowID())
	assert.Equal(t, 1, app.WorkflowVersion())
	assert.Equal(t, number, app.Number())
	require.Len(t, app.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeApplicationSubmitted, app.GetDomainEvents()[0].EventType())

	_, err = app.Submit(wf, t0)
	assert.True(t, errors.Is(err, shared.ErrAlreadySubmitted))
}

func TestSubmit_WrongLicenseType(t *testing.T) {
	deptID := uuid.New()
	wf := reviewWorkflow(t, deptID)
	app, _ := NewDraft(uuid.New(), "TV", deptID)

	_, err := app.Submit(wf, t0)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	assert.Equal(t, StatusDraft, app.Status())

	_, err = app.Submit(nil, t0)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestProgressRoundTripAfterSubmit(t *testing.T) {
	app, wf := submitted(t)

	p, err := ProgressOf(app, wf)
	require.NoError(t, err)

	assert.Equal(t, 33, p.Percent)
	assert.Equal(t, "Document Review", p.Label)
	assert.Equal(t, 1, p.StageIndex)
	assert.Equal(t, 3, p.StageCount)
	assert.Equal(t, 80*time.Hour, p.EstimatedRemaining)
}

func TestAct_MissingRequirements(t *testing.T) {
	app, wf := submitted(t)
	actor, caps := admin(app.DepartmentID)
	before := app.Snapshot()

	_, err := app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionApprove,
		Verified: map[string]bool{"a": true}, At: t0.Add(time.Hour)})

	require.True(t, errors.Is(err, shared.ErrMissingRequirements))
	assert.Equal(t, []string{"b"}, MissingDocuments(err))
	assert.Equal(t, before, app.Snapshot())
	assert.Empty(t, app.GetDomainEvents())
}

func TestAct_ApproveThroughAllStages(t *testing.T) {
	app, wf := submitted(t)
	actor, caps := admin(app.DepartmentID)

	tr, err := app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionApprove, Verified: allDocs(), At: t0.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, ledger.ActionAdvance, tr.Action)
	assert.Equal(t, StatusInReview, app.Status())

	tr, err = app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionApprove, At: t0.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, ledger.ActionAdvance, tr.Action)
	order, _ := app.CurrentStage()
	assert.Equal(t, 3, order)
	assert.Equal(t, StatusInReview, app.Status())

	tr, err = app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionApprove, At: t0.Add(10 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, ledger.ActionApprove, tr.Action)
	assert.Equal(t, 10*time.Hour, tr.ReviewDuration)
	assert.Equal(t, StatusApproved, app.Status())

	p, err := ProgressOf(app, wf)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, "approved", p.Label)
	assert.Equal(t, time.Duration(0), p.EstimatedRemaining)

	assert.Len(t, app.Decisions(), 3)
	assert.Len(t, app.GetDomainEvents(), 3)
}

func TestAct_TerminalIsPermanent(t *testing.T) {
	app, wf := submitted(t)
	actor, caps := admin(app.DepartmentID)

	_, err := app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionReject, Verified: allDocs(), At: t0})
	require.NoError(t, err)
	before := app.Snapshot()

	_, err = app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionApprove, Verified: allDocs(), At: t0})
	assert.True(t, errors.Is(err, shared.ErrTerminalState))

	_, err = app.ReassignStage(wf, actor, caps, 2, "retry", t0)
	assert.True(t, errors.Is(err, shared.ErrTerminalState))

	assert.Equal(t, before, app.Snapshot())
}

func TestAct_RejectFreezesProgress(t *testing.T) {
	app, wf := submitted(t)
	actor, caps := admin(app.DepartmentID)

	_, err := app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionApprove, Verified: allDocs(), At: t0})
	require.NoError(t, err)

	tr, err := app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionReject, Comment: "interference", At: t0.Add(3 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, ledger.ActionReject, tr.Action)

	p, err := ProgressOf(app, wf)
	require.NoError(t, err)
	assert.Equal(t, 66, p.Percent)
	assert.Equal(t, "rejected", p.Label)
}

func TestAct_PermissionRules(t *testing.T) {
	tests := []struct {
		name     string
		tier     identity.RoleTier
		deptAdm  bool
		crossDep bool
		stage    int
		decision Decision
		allowed  bool
	}{
		{"read_only cannot approve", identity.TierReadOnly, false, false, 1, DecisionApprove, false},
		{"write cannot approve", identity.TierWrite, false, false, 1, DecisionApprove, false},
		{"admin approves", identity.TierAdmin, false, false, 1, DecisionApprove, true},
		{"write rejects write stage", identity.TierWrite, false, false, 1, DecisionReject, true},
		{"read_only cannot reject write stage", identity.TierReadOnly, false, false, 1, DecisionReject, false},
		{"write cannot reject admin stage", identity.TierWrite, false, false, 2, DecisionReject, false},
		{"nobody rejects on a non-rejecting stage", identity.TierAdmin, false, false, 3, DecisionReject, false},
		{"department admin bypasses tier", identity.TierReadOnly, true, false, 2, DecisionReject, true},
		{"other department admin tier denied", identity.TierAdmin, false, true, 1, DecisionApprove, false},
		{"other department reject denied", identity.TierAdmin, false, true, 1, DecisionReject, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, wf := submitted(t)
			owner, ownerCaps := admin(app.DepartmentID)
			for order := 1; order < tt.stage; order++ {
				_, err := app.Act(wf, ActInput{Actor: owner, Capabilities: ownerCaps, Decision: DecisionApprove, Verified: allDocs(), At: t0})
				require.NoError(t, err)
			}
			app.ClearDomainEvents()

			actor := identity.Actor{UserID: uuid.New(), DepartmentID: app.DepartmentID, Tier: tt.tier, DepartmentAdmin: tt.deptAdm}
			caps := identity.CapabilitiesFor(tt.tier)
			if tt.deptAdm {
				caps = identity.AllCapabilities
			}
			if tt.crossDep {
				actor.DepartmentID = uuid.New()
				caps = identity.EmptySet
			}
			before := app.Snapshot()

			_, err := app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: tt.decision, Verified: allDocs(), At: t0})
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, shared.ErrPermissionDenied), "got %v", err)
			assert.Equal(t, before, app.Snapshot())
			assert.Empty(t, app.GetDomainEvents())
		})
	}
}

func TestAct_TerminalCheckedBeforePermission(t *testing.T) {
	app, wf := submitted(t)
	actor, caps := admin(app.DepartmentID)
	_, err := app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionReject, Verified: allDocs(), At: t0})
	require.NoError(t, err)

	readOnly := identity.Actor{UserID: uuid.New(), DepartmentID: app.DepartmentID, Tier: identity.TierReadOnly}
	_, err = app.Act(wf, ActInput{Actor: readOnly, Capabilities: identity.CapabilitiesFor(identity.TierReadOnly), Decision: DecisionApprove, At: t0})
	assert.True(t, errors.Is(err, shared.ErrTerminalState))
}

func TestAct_PermissionCheckedBeforeDocuments(t *testing.T) {
	app, wf := submitted(t)
	readOnly := identity.Actor{UserID: uuid.New(), DepartmentID: app.DepartmentID, Tier: identity.TierReadOnly}

	_, err := app.Act(wf, ActInput{Actor: readOnly, Capabilities: identity.CapabilitiesFor(identity.TierReadOnly), Decision: DecisionApprove, At: t0})
	assert.True(t, errors.Is(err, shared.ErrPermissionDenied))
}

func TestAct_Draft(t *testing.T) {
	deptID := uuid.New()
	wf := reviewWorkflow(t, deptID)
	app, _ := NewDraft(uuid.New(), "FM-RADIO", deptID)
	actor, caps := admin(deptID)

	_, err := app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionApprove, At: t0})
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestAct_AmbiguousNextStage(t *testing.T) {
	deptID := uuid.New()
	wf := workflow.Reconstruct(uuid.New(), "FM-RADIO", deptID, 1, true, uuid.New(), t0, []workflow.Stage{
		{Order: 1, Name: "Intake", AssignedTier: identity.TierWrite, CanApprove: true},
		{Order: 2, Name: "Review A", AssignedTier: identity.TierWrite, CanApprove: true},
		{Order: 2, Name: "Review B", AssignedTier: identity.TierWrite, CanApprove: true},
	})
	app, _ := NewDraft(uuid.New(), "FM-RADIO", deptID)
	_, err := app.Submit(wf, t0)
	require.NoError(t, err)
	before := app.Snapshot()
	actor, caps := admin(deptID)

	_, err = app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionApprove, At: t0})
	assert.True(t, errors.Is(err, shared.ErrAmbiguousStage))
	assert.Equal(t, before, app.Snapshot())
}

func TestReassignStage(t *testing.T) {
	app, wf := submitted(t)
	actor, caps := admin(app.DepartmentID)

	tr, err := app.ReassignStage(wf, actor, caps, 3, "fast-track", t0.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, ledger.ActionReassign, tr.Action)
	assert.True(t, tr.Override)
	assert.Equal(t, 1, *tr.FromStage)
	assert.Equal(t, 3, *tr.ToStage)
	assert.Equal(t, StatusInReview, app.Status())

	decisions := app.Decisions()
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Override)
	assert.Equal(t, "fast-track", decisions[0].Comment)
}

func TestReassignStage_Failures(t *testing.T) {
	app, wf := submitted(t)
	_, caps := admin(app.DepartmentID)
	actor := identity.Actor{UserID: uuid.New(), DepartmentID: app.DepartmentID, Tier: identity.TierAdmin}

	writeCaps := identity.CapabilitiesFor(identity.TierWrite)
	_, err := app.ReassignStage(wf, actor, writeCaps, 2, "", t0)
	assert.True(t, errors.Is(err, shared.ErrPermissionDenied))

	_, err = app.ReassignStage(wf, actor, caps, 1, "", t0)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = app.ReassignStage(wf, actor, caps, 7, "", t0)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	status := app.Status()
	assert.Equal(t, StatusSubmitted, status)
}

func TestRestoreRoundTrip(t *testing.T) {
	app, wf := submitted(t)
	actor, caps := admin(app.DepartmentID)
	_, err := app.Act(wf, ActInput{Actor: actor, Capabilities: caps, Decision: DecisionApprove, Verified: allDocs(), At: t0})
	require.NoError(t, err)

	restored := Restore(app.Snapshot())

	assert.Equal(t, app.Snapshot(), restored.Snapshot())
	assert.Empty(t, restored.GetDomainEvents())
}

func TestProgressOf_Draft(t *testing.T) {
	app, _ := NewDraft(uuid.New(), "FM-RADIO", uuid.New())

	p, err := ProgressOf(app, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Percent)
	assert.Equal(t, "draft", p.Label)
}

func TestProgressOf_WrongWorkflowVersion(t *testing.T) {
	app, _ := submitted(t)
	other := reviewWorkflow(t, app.DepartmentID)

	_, err := ProgressOf(app, other)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}
