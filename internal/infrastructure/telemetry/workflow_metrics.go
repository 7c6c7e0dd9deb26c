package telemetry

import (
	"context"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
)

// MeterName names the meter of the licensing workflow instruments
const MeterName = "nbc-licensing/workflow"

// WorkflowMetrics records transition outcomes, lock contention, outbox
// delivery and published domain events. It satisfies the engine's observer,
// the outbox processor's delivery observer and the event bus handler interfaces.
type WorkflowMetrics struct {
	transitions      *Counter
	transitionErrors *Counter
	lockWait         *Histogram
	eventsPublished  *Counter
	outboxDelivered  *Counter
	outboxFailed     *Counter
}

// NewWorkflowMetrics creates the instruments on meter
func NewWorkflowMetrics(meter metric.Meter) (*WorkflowMetrics, error) {
	transitions, err := NewCounter(meter, "nbc_transitions_total", "Committed application transitions by action", "{transition}")
	if err != nil {
		return nil, err
	}
	transitionErrors, err := NewCounter(meter, "nbc_transition_failures_total", "Rejected or failed transitions by operation and error code", "{transition}")
	if err != nil {
		return nil, err
	}
	lockWait, err := NewHistogram(meter, HistogramOpts{
		Name:        "nbc_application_lock_wait_seconds",
		Description: "Time spent waiting for the per-application lock",
		Unit:        "s",
		Boundaries:  LockWaitBuckets,
	})
	if err != nil {
		return nil, err
	}
	eventsPublished, err := NewCounter(meter, "nbc_domain_events_total", "Domain events delivered to the event bus", "{event}")
	if err != nil {
		return nil, err
	}
	outboxDelivered, err := NewCounter(meter, "nbc_outbox_delivered_total", "Outbox entries delivered", "{entry}")
	if err != nil {
		return nil, err
	}
	outboxFailed, err := NewCounter(meter, "nbc_outbox_failed_total", "Outbox delivery attempts that failed", "{entry}")
	if err != nil {
		return nil, err
	}

	return &WorkflowMetrics{
		transitions:      transitions,
		transitionErrors: transitionErrors,
		lockWait:         lockWait,
		eventsPublished:  eventsPublished,
		outboxDelivered:  outboxDelivered,
		outboxFailed:     outboxFailed,
	}, nil
}

// TransitionCompleted counts a committed transition
func (m *WorkflowMetrics) TransitionCompleted(ctx context.Context, action string, departmentID uuid.UUID) {
	m.transitions.Inc(ctx, AttrAction.String(action), AttrDepartmentID.String(departmentID.String()))
}

// TransitionFailed counts a failed operation; code is the domain error code or "" for unexpected errors
func (m *WorkflowMetrics) TransitionFailed(ctx context.Context, operation string, code string) {
	if code == "" {
		code = "INTERNAL"
	}
	m.transitionErrors.Inc(ctx, AttrOperation.String(operation), AttrErrorCode.String(code))
}

// LockWaited records how long a transition waited for its application lock
func (m *WorkflowMetrics) LockWaited(ctx context.Context, seconds float64) {
	m.lockWait.Record(ctx, seconds)
}

// Delivered counts an outbox entry handed to the bus
func (m *WorkflowMetrics) Delivered(ctx context.Context, eventType string) {
	m.outboxDelivered.Inc(ctx, AttrEventType.String(eventType))
}

// DeliveryFailed counts a failed delivery attempt
func (m *WorkflowMetrics) DeliveryFailed(ctx context.Context, eventType string, dead bool) {
	m.outboxFailed.Inc(ctx, AttrEventType.String(eventType), AttrDead.Bool(dead))
}

// Handle counts an event received from the bus
func (m *WorkflowMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	m.eventsPublished.Inc(ctx,
		AttrEventType.String(event.EventType()),
		AttrDepartmentID.String(event.DepartmentID().String()))
	return nil
}

// EventTypes subscribes to every event
func (m *WorkflowMetrics) EventTypes() []string {
	return nil
}

var _ shared.EventHandler = (*WorkflowMetrics)(nil)
