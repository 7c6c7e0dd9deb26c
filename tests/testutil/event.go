// Package testutil holds in-memory stand-ins for the licensing repositories,
// the document store and event subscribers.
package testutil

import (
	"context"
	"sync"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
)

// EventRecorder is an event handler that keeps every event it receives
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	received   []shared.DomainEvent
}

// NewEventRecorder subscribes to eventTypes
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

// EventTypes implements shared.EventHandler
func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

// Handle implements shared.EventHandler
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, event)
	return nil
}

// Received returns a copy of the events handled so far
func (r *EventRecorder) Received() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shared.DomainEvent(nil), r.received...)
}

// Count returns the number of events handled so far
func (r *EventRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}
