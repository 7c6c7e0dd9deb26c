package handler

import (
	"context"

	eventapp "github.com/afrinict/nbcportal-sub001/internal/application/event"
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxAdmin inspects and replays undeliverable lifecycle events
type OutboxAdmin interface {
	DeadLetters(ctx context.Context, actor identity.Actor, filter shared.Filter) (shared.Paginated[eventapp.OutboxEntryDTO], error)
	Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*eventapp.OutboxEntryDTO, error)
	Retry(ctx context.Context, actor identity.Actor, id uuid.UUID) (*eventapp.OutboxEntryDTO, error)
	RetryAll(ctx context.Context, actor identity.Actor) (int64, error)
	Stats(ctx context.Context, actor identity.Actor) (*eventapp.OutboxStatsDTO, error)
}

// OutboxHandler serves /admin/outbox
type OutboxHandler struct {
	BaseHandler
	service OutboxAdmin
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(service OutboxAdmin) *OutboxHandler {
	return &OutboxHandler{service: service}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/admin/outbox")
	g.GET("/stats", h.Stats)
	g.GET("/dead-letters", h.DeadLetters)
	g.POST("/dead-letters/retry", h.RetryAll)
	g.GET("/entries/:id", h.Get)
	g.POST("/entries/:id/retry", h.Retry)
}

// Stats counts outbox entries per status
func (h *OutboxHandler) Stats(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// DeadLetters lists entries that exhausted their retries
func (h *OutboxHandler) DeadLetters(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.service.DeadLetters(c.Request.Context(), actor, req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get returns one outbox entry
func (h *OutboxHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Retry queues one dead letter for redelivery
func (h *OutboxHandler) Retry(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.service.Retry(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAll queues every dead letter for redelivery
func (h *OutboxHandler) RetryAll(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	count, err := h.service.RetryAll(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"retried": count})
}
