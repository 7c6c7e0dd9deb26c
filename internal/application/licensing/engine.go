package licensing

import (
	"context"
	"errors"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/application/transaction"
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WorkflowSource resolves active and pinned workflow versions
type WorkflowSource interface {
	Active(ctx context.Context, licenseTypeID string) (*workflow.Workflow, error)
	Version(ctx context.Context, id uuid.UUID) (*workflow.Workflow, error)
}

// CapabilityResolver resolves what an actor may do in a department
type CapabilityResolver interface {
	CapabilitiesOf(ctx context.Context, actor identity.Actor, departmentID uuid.UUID) (identity.CapabilitySet, error)
}

// EngineConfig tunes the engine
type EngineConfig struct {
	// Periods receive one metric increment each per transition
	Periods []ledger.Period
	// TransientRetries is how many times a transaction failing with
	// StorageUnavailable is retried before the error is returned
	TransientRetries int
	RetryBaseDelay   time.Duration
	// LockWait bounds how long a transition waits for the application lock, 0 waits for ctx
	LockWait time.Duration
}

// DefaultEngineConfig returns the default engine configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Periods:          []ledger.Period{ledger.PeriodDaily, ledger.PeriodMonthly},
		TransientRetries: 2,
		RetryBaseDelay:   50 * time.Millisecond,
	}
}

// Engine is the application state machine. It serializes transitions per
// application, validates them against the pinned workflow and the actor's
// capabilities, and commits the application, its activity record, metric
// increments and outbox events in one transaction.
type Engine struct {
	scope       transaction.Scope
	apps        licensing.Repository
	workflows   WorkflowSource
	permissions CapabilityResolver
	documents   *DocumentVerifier
	locker      Locker
	observer    Observer
	cfg         EngineConfig
	logger      *zap.Logger
}

// EngineOption configures optional engine collaborators
type EngineOption func(*Engine)

// WithObserver sets the telemetry observer
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithConfig overrides the default configuration
func WithConfig(cfg EngineConfig) EngineOption {
	return func(e *Engine) {
		if len(cfg.Periods) > 0 {
			e.cfg.Periods = cfg.Periods
		}
		if cfg.TransientRetries >= 0 {
			e.cfg.TransientRetries = cfg.TransientRetries
		}
		if cfg.RetryBaseDelay > 0 {
			e.cfg.RetryBaseDelay = cfg.RetryBaseDelay
		}
		if cfg.LockWait > 0 {
			e.cfg.LockWait = cfg.LockWait
		}
	}
}

// NewEngine creates a new engine
func NewEngine(
	scope transaction.Scope,
	apps licensing.Repository,
	workflows WorkflowSource,
	permissions CapabilityResolver,
	documents *DocumentVerifier,
	locker Locker,
	logger *zap.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		scope:       scope,
		apps:        apps,
		workflows:   workflows,
		permissions: permissions,
		documents:   documents,
		locker:      locker,
		observer:    noopObserver{},
		cfg:         DefaultEngineConfig(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateDraftInput contains input for creating a draft
type CreateDraftInput struct {
	ApplicantID   uuid.UUID
	LicenseTypeID string
}

// CreateDraft creates an unsubmitted application so documents can be attached before submission
func (e *Engine) CreateDraft(ctx context.Context, input CreateDraftInput) (*ApplicationDTO, error) {
	wf, err := e.workflows.Active(ctx, input.LicenseTypeID)
	if err != nil {
		return nil, e.fail(ctx, "create_draft", err)
	}
	app, err := licensing.NewDraft(input.ApplicantID, input.LicenseTypeID, wf.DepartmentID)
	if err != nil {
		return nil, e.fail(ctx, "create_draft", err)
	}

	rec, err := ledger.NewActivityRecord(app.DepartmentID, input.ApplicantID, ledger.ActionCreateApplication,
		ledger.ResourceApplication, app.ID, app.CreatedAt)
	if err != nil {
		return nil, e.fail(ctx, "create_draft", err)
	}
	rec.WithDetail("application_number", app.Number()).WithDetail("license_type_id", app.LicenseTypeID())

	err = e.withRetry(ctx, func() error {
		return e.scope.Execute(ctx, func(repos transaction.Repositories) error {
			if err := repos.Applications().Create(ctx, app); err != nil {
				return err
			}
			return repos.Activities().Append(ctx, rec)
		})
	})
	if err != nil {
		return nil, e.fail(ctx, "create_draft", err)
	}

	e.logger.Info("Draft application created",
		zap.String("application_id", app.ID.String()),
		zap.String("application_number", app.Number()))

	dto := ToApplicationDTO(app)
	return &dto, nil
}

// SubmitInput contains input for submitting an application.
// With ApplicationID set the existing draft is submitted; otherwise a new
// application is created and submitted in one step.
type SubmitInput struct {
	ApplicationID *uuid.UUID
	ApplicantID   uuid.UUID
	LicenseTypeID string
}

// Submit places an application on the first stage of its license type's active workflow
func (e *Engine) Submit(ctx context.Context, input SubmitInput) (*ApplicationDTO, error) {
	if input.ApplicationID == nil {
		app, err := e.submitNew(ctx, input)
		if err != nil {
			return nil, e.fail(ctx, "submit", err)
		}
		dto := ToApplicationDTO(app)
		return &dto, nil
	}

	var app *licensing.Application
	err := e.locked(ctx, *input.ApplicationID, func() error {
		var err error
		app, err = e.apps.FindByID(ctx, *input.ApplicationID)
		if err != nil {
			return err
		}
		if app.ApplicantID() != input.ApplicantID {
			return shared.ErrPermissionDenied.WithMessage("Only the applicant can submit this application")
		}
		wf, err := e.workflows.Active(ctx, app.LicenseTypeID())
		if err != nil {
			return err
		}
		tr, err := app.Submit(wf, shared.Now())
		if err != nil {
			return err
		}
		return e.commit(ctx, app, input.ApplicantID, tr, false)
	})
	if err != nil {
		return nil, e.fail(ctx, "submit", err)
	}

	dto := ToApplicationDTO(app)
	return &dto, nil
}

func (e *Engine) submitNew(ctx context.Context, input SubmitInput) (*licensing.Application, error) {
	wf, err := e.workflows.Active(ctx, input.LicenseTypeID)
	if err != nil {
		return nil, err
	}
	app, err := licensing.NewDraft(input.ApplicantID, input.LicenseTypeID, wf.DepartmentID)
	if err != nil {
		return nil, err
	}
	tr, err := app.Submit(wf, shared.Now())
	if err != nil {
		return nil, err
	}
	if err := e.commit(ctx, app, input.ApplicantID, tr, true); err != nil {
		return nil, err
	}
	return app, nil
}

// ActInput contains input for an approve or reject decision
type ActInput struct {
	ApplicationID uuid.UUID
	Actor         identity.Actor
	Decision      licensing.Decision
	Comment       string
}

// Act approves or rejects the application's current stage
func (e *Engine) Act(ctx context.Context, input ActInput) (*ApplicationDTO, error) {
	var app *licensing.Application
	err := e.locked(ctx, input.ApplicationID, func() error {
		var err error
		app, err = e.apps.FindByID(ctx, input.ApplicationID)
		if err != nil {
			return err
		}
		wf, caps, err := e.resolve(ctx, app, input.Actor)
		if err != nil {
			return err
		}

		stage, err := app.Authorize(wf, input.Actor, caps, input.Decision)
		if err != nil {
			return err
		}
		verified, err := e.documents.Verified(ctx, app.ID, stage.RequiredDocuments)
		if err != nil {
			return err
		}

		tr, err := app.Act(wf, licensing.ActInput{
			Actor:        input.Actor,
			Capabilities: caps,
			Decision:     input.Decision,
			Comment:      input.Comment,
			Verified:     verified,
			At:           shared.Now(),
		})
		if err != nil {
			return err
		}
		return e.commit(ctx, app, input.Actor.UserID, tr, false)
	})
	if err != nil {
		return nil, e.fail(ctx, string(input.Decision), err)
	}

	dto := ToApplicationDTO(app)
	return &dto, nil
}

// ReassignInput contains input for a manual stage override
type ReassignInput struct {
	ApplicationID uuid.UUID
	Actor         identity.Actor
	StageOrder    int
	Reason        string
}

// ReassignStage moves a non-terminal application to another stage without document checks
func (e *Engine) ReassignStage(ctx context.Context, input ReassignInput) (*ApplicationDTO, error) {
	var app *licensing.Application
	err := e.locked(ctx, input.ApplicationID, func() error {
		var err error
		app, err = e.apps.FindByID(ctx, input.ApplicationID)
		if err != nil {
			return err
		}
		if app.Status().IsTerminal() {
			return shared.ErrTerminalState.WithMessage("Application is already " + string(app.Status()))
		}
		wf, caps, err := e.resolve(ctx, app, input.Actor)
		if err != nil {
			return err
		}
		tr, err := app.ReassignStage(wf, input.Actor, caps, input.StageOrder, input.Reason, shared.Now())
		if err != nil {
			return err
		}
		return e.commit(ctx, app, input.Actor.UserID, tr, false)
	})
	if err != nil {
		return nil, e.fail(ctx, string(ledger.ActionReassign), err)
	}

	dto := ToApplicationDTO(app)
	return &dto, nil
}

// ProgressOf returns the applicant-facing progress view. It takes no lock.
func (e *Engine) ProgressOf(ctx context.Context, applicationID uuid.UUID) (*ProgressDTO, error) {
	app, err := e.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, e.classify("progress", err)
	}
	var wf *workflow.Workflow
	if app.Status() != licensing.StatusDraft {
		if wf, err = e.workflows.Version(ctx, app.WorkflowID()); err != nil {
			return nil, e.classify("progress", err)
		}
	}
	p, err := licensing.ProgressOf(app, wf)
	if err != nil {
		return nil, e.classify("progress", err)
	}
	dto := ToProgressDTO(app, p)
	return &dto, nil
}

// Get returns an application with its decision history
func (e *Engine) Get(ctx context.Context, applicationID uuid.UUID) (*ApplicationDTO, error) {
	app, err := e.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, e.classify("get", err)
	}
	dto := ToApplicationDTO(app)
	return &dto, nil
}

// List returns a page of applications
func (e *Engine) List(ctx context.Context, query licensing.Query) (shared.Paginated[ApplicationDTO], error) {
	query.Filter = query.Filter.Normalize()
	apps, total, err := e.apps.FindAll(ctx, query)
	if err != nil {
		return shared.Paginated[ApplicationDTO]{}, e.classify("list", err)
	}
	items := make([]ApplicationDTO, len(apps))
	for i, a := range apps {
		items[i] = ToApplicationDTO(a)
	}
	return shared.NewPaginated(items, total, query.Page, query.PageSize), nil
}

// CanView reports whether actor may read the application: its applicant, or
// anyone holding can_read in the application's department.
func (e *Engine) CanView(ctx context.Context, actor identity.Actor, applicationID uuid.UUID) error {
	app, err := e.apps.FindByID(ctx, applicationID)
	if err != nil {
		return e.classify("view", err)
	}
	if app.ApplicantID() == actor.UserID {
		return nil
	}
	caps, err := e.permissions.CapabilitiesOf(ctx, actor, app.DepartmentID)
	if err != nil {
		return e.classify("view", err)
	}
	if !identity.Authorize(caps, identity.CanRead) {
		return shared.ErrPermissionDenied.WithMessage("Actor cannot read applications of this department")
	}
	return nil
}

func (e *Engine) resolve(ctx context.Context, app *licensing.Application, actor identity.Actor) (*workflow.Workflow, identity.CapabilitySet, error) {
	if app.Status() == licensing.StatusDraft {
		return nil, identity.EmptySet, shared.ErrInvalidState.WithMessage("Application has not been submitted")
	}
	wf, err := e.workflows.Version(ctx, app.WorkflowID())
	if err != nil {
		return nil, identity.EmptySet, err
	}
	caps, err := e.permissions.CapabilitiesOf(ctx, actor, app.DepartmentID)
	if err != nil {
		return nil, identity.EmptySet, err
	}
	return wf, caps, nil
}

// locked runs fn while holding the application's lock
func (e *Engine) locked(ctx context.Context, applicationID uuid.UUID, fn func() error) error {
	start := time.Now()
	lockCtx := ctx
	if e.cfg.LockWait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, e.cfg.LockWait)
		defer cancel()
	}
	unlock, err := e.locker.Lock(lockCtx, applicationID)
	if err != nil {
		return err
	}
	defer unlock()
	e.observer.LockWaited(ctx, time.Since(start).Seconds())
	return fn()
}

// commit persists a transition and its ledger side effects atomically
func (e *Engine) commit(ctx context.Context, app *licensing.Application, actorID uuid.UUID, tr licensing.Transition, isNew bool) error {
	rec, err := activityFor(app, actorID, tr)
	if err != nil {
		return err
	}
	increments := e.incrementsFor(app.DepartmentID, tr)
	now := shared.Now()
	for _, inc := range increments {
		if err := inc.Validate(now); err != nil {
			return err
		}
	}
	events := app.GetDomainEvents()

	err = e.withRetry(ctx, func() error {
		return e.scope.Execute(ctx, func(repos transaction.Repositories) error {
			if isNew {
				if err := repos.Applications().Create(ctx, app); err != nil {
					return err
				}
			} else if err := repos.Applications().Update(ctx, app); err != nil {
				return err
			}
			if err := repos.Activities().Append(ctx, rec); err != nil {
				return err
			}
			if err := repos.Metrics().Increment(ctx, increments...); err != nil {
				return err
			}
			return repos.Events().Save(ctx, events...)
		})
	})
	if err != nil {
		return err
	}
	app.ClearDomainEvents()

	stage, _ := app.CurrentStage()
	e.logger.Info("Application transitioned",
		zap.String("application_id", app.ID.String()),
		zap.String("department_id", app.DepartmentID.String()),
		zap.String("action", string(tr.Action)),
		zap.Int("stage_order", stage),
		zap.String("status", string(app.Status())))
	e.observer.TransitionCompleted(ctx, string(tr.Action), app.DepartmentID)
	return nil
}

func (e *Engine) incrementsFor(departmentID uuid.UUID, tr licensing.Transition) []ledger.MetricIncrement {
	one := decimal.NewFromInt(1)
	var out []ledger.MetricIncrement
	add := func(t ledger.MetricType, delta decimal.Decimal) {
		out = append(out, ledger.IncrementsFor(departmentID, t, tr.At, delta, e.cfg.Periods...)...)
	}

	switch tr.Action {
	case ledger.ActionSubmit:
		add(ledger.MetricSubmissions, one)
	case ledger.ActionAdvance:
		add(ledger.MetricAdvancements, one)
	case ledger.ActionApprove:
		add(ledger.MetricCompletions, one)
		add(ledger.MetricReviewHours, hours(tr.ReviewDuration))
	case ledger.ActionReject:
		add(ledger.MetricRejections, one)
		add(ledger.MetricReviewHours, hours(tr.ReviewDuration))
	case ledger.ActionReassign:
		add(ledger.MetricReassignments, one)
	}
	return out
}

func hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromFloat(d.Hours()).Round(4)
}

func activityFor(app *licensing.Application, actorID uuid.UUID, tr licensing.Transition) (*ledger.ActivityRecord, error) {
	rec, err := ledger.NewActivityRecord(app.DepartmentID, actorID, tr.Action, ledger.ResourceApplication, app.ID, tr.At)
	if err != nil {
		return nil, err
	}
	rec.WithDetail("application_number", app.Number()).
		WithDetail("status", string(app.Status())).
		WithDetail("workflow_version", app.WorkflowVersion())
	if tr.FromStage != nil {
		rec.WithDetail("from_stage", *tr.FromStage)
	}
	if tr.ToStage != nil {
		rec.WithDetail("to_stage", *tr.ToStage)
	}
	if tr.Comment != "" {
		rec.WithDetail("comment", tr.Comment)
	}
	if tr.Override {
		rec.MarkOverride()
	}
	return rec, nil
}

// withRetry retries fn on StorageUnavailable with exponential backoff.
// Validation errors and concurrency conflicts are returned immediately.
func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	delay := e.cfg.RetryBaseDelay
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, shared.ErrStorageUnavailable) || attempt >= e.cfg.TransientRetries {
			return err
		}
		e.logger.Warn("Transient storage failure, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return shared.ErrStorageUnavailable.Wrap(ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (e *Engine) fail(ctx context.Context, operation string, err error) error {
	err = e.classify(operation, err)
	e.observer.TransitionFailed(ctx, operation, shared.ErrorCode(err))
	return err
}

// classify wraps errors that carry no domain code as StorageUnavailable
func (e *Engine) classify(operation string, err error) error {
	if shared.ErrorCode(err) != "" {
		return err
	}
	e.logger.Error("Unclassified engine error", zap.String("operation", operation), zap.Error(err))
	return shared.ErrStorageUnavailable.Wrap(err)
}
