package licensing

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
	"github.com/google/uuid"
)

// StageDecision is one entry of an application's per-stage decision history
type StageDecision struct {
	StageOrder int       `json:"stage_order"`
	StageName  string    `json:"stage_name"`
	Action     string    `json:"action"`
	ActorID    uuid.UUID `json:"actor_id"`
	Comment    string    `json:"comment,omitempty"`
	Override   bool      `json:"override"`
	ToStage    *int      `json:"to_stage,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

// Application is a license application. Its lifecycle fields are unexported:
// they change only through Submit, Act and ReassignStage.
type Application struct {
	shared.DepartmentAggregateRoot

	number        string
	applicantID   uuid.UUID
	licenseTypeID string

	workflowID      uuid.UUID
	workflowVersion int
	currentStage    *int
	status          Status
	frozenPercent   int
	decisions       []StageDecision
	submittedAt     *time.Time
	completedAt     *time.Time
}

// NewDraft creates an unsubmitted application for the license type's owning department
func NewDraft(applicantID uuid.UUID, licenseTypeID string, departmentID uuid.UUID) (*Application, error) {
	if applicantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Applicant ID is required")
	}
	licenseTypeID = workflow.NormalizeLicenseType(licenseTypeID)
	if licenseTypeID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "License type is required")
	}
	if departmentID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Department ID is required")
	}

	app := &Application{
		DepartmentAggregateRoot: shared.NewDepartmentAggregateRoot(departmentID),
		applicantID:             applicantID,
		licenseTypeID:           licenseTypeID,
		status:                  StatusDraft,
	}
	app.number = GenerateApplicationNumber(app.CreatedAt)
	return app, nil
}

// GenerateApplicationNumber returns a new externally visible identifier such as NBC-20260301-9F2C41D07A
func GenerateApplicationNumber(at time.Time) string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		id := uuid.New()
		copy(buf, id[:5])
	}
	return "NBC-" + at.UTC().Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(buf))
}

// Number returns the immutable application number
func (a *Application) Number() string { return a.number }

// ApplicantID returns the owning user
func (a *Application) ApplicantID() uuid.UUID { return a.applicantID }

// LicenseTypeID returns the license type applied for
func (a *Application) LicenseTypeID() string { return a.licenseTypeID }

// WorkflowID returns the pinned workflow version, uuid.Nil for drafts
func (a *Application) WorkflowID() uuid.UUID { return a.workflowID }

// WorkflowVersion returns the pinned workflow version number
func (a *Application) WorkflowVersion() int { return a.workflowVersion }

// Status returns the lifecycle state
func (a *Application) Status() Status { return a.status }

// CurrentStage returns the current stage order, ok=false before submission
func (a *Application) CurrentStage() (order int, ok bool) {
	if a.currentStage == nil {
		return 0, false
	}
	return *a.currentStage, true
}

// FrozenPercent returns the progress percentage captured at rejection
func (a *Application) FrozenPercent() int { return a.frozenPercent }

// Decisions returns a copy of the decision history
func (a *Application) Decisions() []StageDecision {
	return append([]StageDecision(nil), a.decisions...)
}

// SubmittedAt returns the submission time, nil for drafts
func (a *Application) SubmittedAt() *time.Time { return a.submittedAt }

// CompletedAt returns the time the application reached a terminal state
func (a *Application) CompletedAt() *time.Time { return a.completedAt }

// Transition describes a successful state change for the ledger
type Transition struct {
	Action    ledger.Action
	FromStage *int
	ToStage   *int
	Override  bool
	Comment   string
	// ReviewDuration is set when the application reaches a terminal state
	ReviewDuration time.Duration
	At             time.Time
}

// Submit places the draft on the first stage of wf and pins wf's version
func (a *Application) Submit(wf *workflow.Workflow, at time.Time) (Transition, error) {
	if a.status != StatusDraft {
		return Transition{}, shared.ErrAlreadySubmitted.WithMessage("Application " + a.number + " is already " + string(a.status))
	}
	if err := a.checkWorkflow(wf); err != nil {
		return Transition{}, err
	}
	first, err := wf.FirstStage()
	if err != nil {
		return Transition{}, err
	}

	at = at.UTC()
	order := first.Order
	a.workflowID = wf.ID
	a.workflowVersion = wf.Version
	a.DepartmentID = wf.DepartmentID
	a.currentStage = &order
	a.status = StatusSubmitted
	a.submittedAt = &at
	a.mutated(at)

	a.AddDomainEvent(NewApplicationSubmittedEvent(a, first))

	return Transition{Action: ledger.ActionSubmit, ToStage: intPtr(order), At: at}, nil
}

// ActInput carries everything Act needs to validate and apply a decision
type ActInput struct {
	Actor        identity.Actor
	Capabilities identity.CapabilitySet
	Decision     Decision
	Comment      string
	// Verified lists the document types that are present and verified for this application
	Verified map[string]bool
	At       time.Time
}

// CurrentStageOf returns the stage the application sits on within its pinned workflow
func (a *Application) CurrentStageOf(wf *workflow.Workflow) (workflow.Stage, int, error) {
	if a.currentStage == nil {
		return workflow.Stage{}, -1, shared.ErrInvalidState.WithMessage("Application has not been submitted")
	}
	if err := a.checkPinned(wf); err != nil {
		return workflow.Stage{}, -1, err
	}
	return wf.StageAt(*a.currentStage)
}

// Authorize runs the terminal and permission checks of Act without touching state.
// It lets callers skip document lookups for actors who would be refused anyway.
func (a *Application) Authorize(wf *workflow.Workflow, actor identity.Actor, caps identity.CapabilitySet, decision Decision) (workflow.Stage, error) {
	if a.status.IsTerminal() {
		return workflow.Stage{}, terminalError(a.status)
	}
	if a.status == StatusDraft {
		return workflow.Stage{}, shared.ErrInvalidState.WithMessage("Application has not been submitted")
	}
	stage, _, err := a.CurrentStageOf(wf)
	if err != nil {
		return workflow.Stage{}, err
	}

	switch decision {
	case DecisionApprove:
		if !identity.Authorize(caps, identity.CanApproveApplications) {
			return workflow.Stage{}, permissionDenied("Actor cannot approve applications in this department")
		}
		if !stage.CanApprove {
			return workflow.Stage{}, permissionDenied("Stage " + stage.Name + " does not permit approval")
		}
	case DecisionReject:
		if !stage.CanReject {
			return workflow.Stage{}, permissionDenied("Stage " + stage.Name + " does not permit rejection")
		}
		if !actor.DepartmentAdmin && (caps == identity.EmptySet || !actor.Tier.AtLeast(stage.AssignedTier)) {
			return workflow.Stage{}, permissionDenied("Actor's role tier cannot act on stage " + stage.Name)
		}
	default:
		return workflow.Stage{}, shared.NewDomainError(shared.CodeInvalidInput, "Decision must be approve or reject")
	}
	return stage, nil
}

// Act applies an approve or reject decision on the current stage. Checks run
// in order: terminal state, permission, required documents. On any error the
// application is left untouched.
func (a *Application) Act(wf *workflow.Workflow, in ActInput) (Transition, error) {
	stage, err := a.Authorize(wf, in.Actor, in.Capabilities, in.Decision)
	if err != nil {
		return Transition{}, err
	}

	if missing := missingDocuments(stage, in.Verified); len(missing) > 0 {
		return Transition{}, NewMissingRequirementsError(missing)
	}

	at := in.At.UTC()
	from := stage.Order

	if in.Decision == DecisionReject {
		a.frozenPercent = percentAt(wf, from)
		a.status = StatusRejected
		a.completedAt = &at
		a.recordDecision(stage, string(ledger.ActionReject), in.Actor.UserID, in.Comment, false, nil, at)
		a.mutated(at)
		a.AddDomainEvent(NewApplicationRejectedEvent(a, stage, in.Actor.UserID, in.Comment))
		return Transition{Action: ledger.ActionReject, FromStage: intPtr(from), Comment: in.Comment,
			ReviewDuration: a.reviewDuration(at), At: at}, nil
	}

	next, ok, err := wf.NextStage(from)
	if err != nil {
		return Transition{}, err
	}
	if !ok {
		a.status = StatusApproved
		a.completedAt = &at
		a.recordDecision(stage, string(ledger.ActionApprove), in.Actor.UserID, in.Comment, false, nil, at)
		a.mutated(at)
		a.AddDomainEvent(NewApplicationApprovedEvent(a, stage, in.Actor.UserID))
		return Transition{Action: ledger.ActionApprove, FromStage: intPtr(from), Comment: in.Comment,
			ReviewDuration: a.reviewDuration(at), At: at}, nil
	}

	to := next.Order
	a.currentStage = &to
	a.status = StatusInReview
	a.recordDecision(stage, string(ledger.ActionAdvance), in.Actor.UserID, in.Comment, false, intPtr(to), at)
	a.mutated(at)
	a.AddDomainEvent(NewApplicationAdvancedEvent(a, stage, next, in.Actor.UserID))
	return Transition{Action: ledger.ActionAdvance, FromStage: intPtr(from), ToStage: intPtr(to), Comment: in.Comment, At: at}, nil
}

// ReassignStage moves a non-terminal application to newOrder without document checks.
// The decision is recorded as an override.
func (a *Application) ReassignStage(wf *workflow.Workflow, actor identity.Actor, caps identity.CapabilitySet, newOrder int, reason string, at time.Time) (Transition, error) {
	if a.status.IsTerminal() {
		return Transition{}, terminalError(a.status)
	}
	if !identity.Authorize(caps, identity.CanAssignApplications) {
		return Transition{}, permissionDenied("Actor cannot reassign applications in this department")
	}
	current, _, err := a.CurrentStageOf(wf)
	if err != nil {
		return Transition{}, err
	}
	target, _, err := wf.StageAt(newOrder)
	if err != nil {
		return Transition{}, err
	}
	if target.Order == current.Order {
		return Transition{}, shared.NewDomainError(shared.CodeInvalidInput, "Application is already on stage "+current.Name)
	}

	at = at.UTC()
	from, to := current.Order, target.Order
	a.currentStage = &to
	a.status = StatusInReview
	a.recordDecision(current, string(ledger.ActionReassign), actor.UserID, reason, true, intPtr(to), at)
	a.mutated(at)
	a.AddDomainEvent(NewApplicationStageReassignedEvent(a, current, target, actor.UserID, reason))

	return Transition{Action: ledger.ActionReassign, FromStage: intPtr(from), ToStage: intPtr(to),
		Override: true, Comment: reason, At: at}, nil
}

func (a *Application) checkWorkflow(wf *workflow.Workflow) error {
	if wf == nil {
		return shared.NewDomainError(shared.CodeNotFound, "No active workflow for license type "+a.licenseTypeID)
	}
	if wf.LicenseTypeID != a.licenseTypeID {
		return shared.NewDomainError(shared.CodeInvalidInput, "Workflow belongs to license type "+wf.LicenseTypeID)
	}
	return nil
}

func (a *Application) checkPinned(wf *workflow.Workflow) error {
	if wf == nil || wf.ID != a.workflowID {
		return shared.NewDomainError(shared.CodeInvalidState, "Workflow does not match the version pinned at submission")
	}
	return nil
}

func (a *Application) recordDecision(stage workflow.Stage, action string, actorID uuid.UUID, comment string, override bool, to *int, at time.Time) {
	a.decisions = append(a.decisions, StageDecision{
		StageOrder: stage.Order,
		StageName:  stage.Name,
		Action:     action,
		ActorID:    actorID,
		Comment:    comment,
		Override:   override,
		ToStage:    to,
		DecidedAt:  at,
	})
}

func (a *Application) mutated(at time.Time) {
	a.Touch(at)
	a.IncrementVersion()
}

func (a *Application) reviewDuration(at time.Time) time.Duration {
	if a.submittedAt == nil {
		return 0
	}
	return at.Sub(*a.submittedAt)
}

func missingDocuments(stage workflow.Stage, verified map[string]bool) []string {
	var missing []string
	for _, doc := range stage.RequiredDocuments {
		if !verified[doc] {
			missing = append(missing, doc)
		}
	}
	return missing
}

func intPtr(v int) *int {
	return &v
}
