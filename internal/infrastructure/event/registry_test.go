package event

import (
	"context"
	"testing"

	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	name string
}

func (h *recordingHandler) Handle(context.Context, shared.DomainEvent) error { return nil }
func (h *recordingHandler) EventTypes() []string                          { return nil }

func TestHandlerRegistry_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := &recordingHandler{name: "decisions"}

	registry.Register(handler, licensing.EventTypeApplicationApproved, licensing.EventTypeApplicationRejected)

	assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers(licensing.EventTypeApplicationApproved))
	assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers(licensing.EventTypeApplicationRejected))
	assert.Empty(t, registry.GetHandlers(licensing.EventTypeApplicationSubmitted))
}

func TestHandlerRegistry_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := &recordingHandler{name: "audit"}

	registry.Register(handler)

	assert.Len(t, registry.GetHandlers(licensing.EventTypeApplicationSubmitted), 1)
	assert.Len(t, registry.GetHandlers("AnythingElse"), 1)
}

func TestHandlerRegistry_PreservesRegistrationOrder(t *testing.T) {
	registry := NewHandlerRegistry()
	first := &recordingHandler{name: "first"}
	wildcard := &recordingHandler{name: "wildcard"}
	last := &recordingHandler{name: "last"}

	registry.Register(first, licensing.EventTypeApplicationAdvanced)
	registry.Register(wildcard)
	registry.Register(last, licensing.EventTypeApplicationAdvanced)

	assert.Equal(t, []shared.EventHandler{first, wildcard, last},
		registry.GetHandlers(licensing.EventTypeApplicationAdvanced))
	assert.Equal(t, []shared.EventHandler{wildcard}, registry.GetHandlers("Other"))
}

func TestHandlerRegistry_RegisterTwiceExtendsTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := &recordingHandler{name: "h"}

	registry.Register(handler, licensing.EventTypeApplicationApproved)
	registry.Register(handler, licensing.EventTypeApplicationRejected)

	assert.Len(t, registry.GetAllHandlers(), 1)
	assert.Len(t, registry.GetHandlers(licensing.EventTypeApplicationApproved), 1)
	assert.Len(t, registry.GetHandlers(licensing.EventTypeApplicationRejected), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	h1 := &recordingHandler{name: "h1"}
	h2 := &recordingHandler{name: "h2"}
	wildcard := &recordingHandler{name: "wildcard"}

	registry.Register(h1, licensing.EventTypeApplicationApproved)
	registry.Register(h2, licensing.EventTypeApplicationApproved)
	registry.Register(wildcard)

	registry.Unregister(h1)
	registry.Unregister(wildcard)

	assert.Equal(t, []shared.EventHandler{h2}, registry.GetHandlers(licensing.EventTypeApplicationApproved))
	assert.Len(t, registry.GetAllHandlers(), 1)
}
