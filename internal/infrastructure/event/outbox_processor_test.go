package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryOutbox is an in-memory OutboxRepository
type memoryOutbox struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*shared.OutboxEntry
	deleted int64
}

func newMemoryOutbox() *memoryOutbox {
	return &memoryOutbox{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *memoryOutbox) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *memoryOutbox) byStatus(status shared.OutboxStatus, limit int, keep func(*shared.OutboxEntry) bool) []*shared.OutboxEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == status && (keep == nil || keep(e)) {
			result = append(result, e)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result
}

func (r *memoryOutbox) FindPending(_ context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return r.byStatus(shared.OutboxStatusPending, limit, nil), nil
}

func (r *memoryOutbox) FindRetryable(_ context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return r.byStatus(shared.OutboxStatusFailed, limit, func(e *shared.OutboxEntry) bool {
		return e.NextRetryAt != nil && !e.NextRetryAt.After(before)
	}), nil
}

func (r *memoryOutbox) FindDead(_ context.Context, _, _ int) ([]*shared.OutboxEntry, int64, error) {
	dead := r.byStatus(shared.OutboxStatusDead, 0, nil)
	return dead, int64(len(dead)), nil
}

func (r *memoryOutbox) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryOutbox) MarkProcessing(_ context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var claimed []*shared.OutboxEntry
	for _, id := range ids {
		if e, ok := r.entries[id]; ok && e.MarkProcessing() == nil {
			claimed = append(claimed, e)
		}
	}
	return claimed, nil
}

func (r *memoryOutbox) Update(_ context.Context, entry *shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry
	return nil
}

func (r *memoryOutbox) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return r.deleted, nil
}

func (r *memoryOutbox) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (r *memoryOutbox) status(id uuid.UUID) shared.OutboxStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id].Status
}

type countingObserver struct {
	mu        sync.Mutex
	delivered int
	failed    int
	dead      int
}

func (o *countingObserver) Delivered(context.Context, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delivered++
}

func (o *countingObserver) DeliveryFailed(_ context.Context, _ string, dead bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
	if dead {
		o.dead++
	}
}

func enqueue(t *testing.T, repo *memoryOutbox, serializer *EventSerializer, event shared.DomainEvent) *shared.OutboxEntry {
	t.Helper()
	payload, err := serializer.Serialize(event)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(event, payload)
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

func newProcessorFixture(opts ...OutboxProcessorOption) (*OutboxProcessor, *memoryOutbox, *InMemoryEventBus, *EventSerializer) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)
	repo := newMemoryOutbox()
	bus := NewInMemoryEventBus(zap.NewNop())
	config := DefaultOutboxProcessorConfig()
	config.PollInterval = 20 * time.Millisecond
	config.CleanupEnabled = false
	return NewOutboxProcessor(repo, bus, serializer, config, zap.NewNop(), opts...), repo, bus, serializer
}

func TestOutboxProcessor_ProcessOnce_DeliversPending(t *testing.T) {
	observer := &countingObserver{}
	processor, repo, bus, serializer := newProcessorFixture(WithDeliveryObserver(observer))
	handler := newTestHandler(licensing.EventTypeApplicationSubmitted)
	bus.Subscribe(handler)

	entry := enqueue(t, repo, serializer, newSubmittedEvent(uuid.New()))

	delivered, err := processor.ProcessOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	require.Len(t, handler.getHandled(), 1)
	assert.IsType(t, &licensing.ApplicationSubmittedEvent{}, handler.getHandled()[0])
	assert.Equal(t, shared.OutboxStatusSent, repo.status(entry.ID))
	assert.Equal(t, 1, observer.delivered)
}

func TestOutboxProcessor_HandlerFailureSchedulesRetry(t *testing.T) {
	observer := &countingObserver{}
	processor, repo, bus, serializer := newProcessorFixture(WithDeliveryObserver(observer))
	handler := newTestHandler()
	handler.err = errors.New("mail relay unavailable")
	bus.Subscribe(handler)

	entry := enqueue(t, repo, serializer, newRejectedEvent(uuid.New()))

	delivered, err := processor.ProcessOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, delivered)
	stored, _ := repo.FindByID(context.Background(), entry.ID)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Contains(t, stored.LastError, "mail relay unavailable")
	require.NotNil(t, stored.NextRetryAt)
	assert.Equal(t, 1, observer.failed)
}

func TestOutboxProcessor_UnknownTypeFails(t *testing.T) {
	processor, repo, _, _ := newProcessorFixture()

	entry := shared.NewOutboxEntry(newSubmittedEvent(uuid.New()), []byte(`{}`))
	entry.EventType = "LicenseRenewed"
	require.NoError(t, repo.Save(context.Background(), entry))

	_, err := processor.ProcessOnce(context.Background())

	require.NoError(t, err)
	stored, _ := repo.FindByID(context.Background(), entry.ID)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "unknown event type")
}

func TestOutboxProcessor_ExhaustedRetriesGoDeadAndReplay(t *testing.T) {
	observer := &countingObserver{}
	processor, repo, bus, serializer := newProcessorFixture(WithDeliveryObserver(observer))
	handler := newTestHandler()
	handler.err = errors.New("permanent")
	bus.Subscribe(handler)

	entry := enqueue(t, repo, serializer, newApprovedEvent())
	entry.RetryCount = entry.MaxRetries - 1

	_, err := processor.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusDead, repo.status(entry.ID))
	assert.Equal(t, 1, observer.dead)

	require.NoError(t, processor.Replay(context.Background(), entry.ID))
	assert.Equal(t, shared.OutboxStatusPending, repo.status(entry.ID))

	handler.mu.Lock()
	handler.err = nil
	handler.mu.Unlock()

	delivered, err := processor.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, shared.OutboxStatusSent, repo.status(entry.ID))
}

func TestOutboxProcessor_ReplayRejectsLiveEntry(t *testing.T) {
	processor, repo, _, serializer := newProcessorFixture()
	entry := enqueue(t, repo, serializer, newSubmittedEvent(uuid.New()))

	err := processor.Replay(context.Background(), entry.ID)

	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestOutboxProcessor_StartDeliversInBackground(t *testing.T) {
	processor, repo, bus, serializer := newProcessorFixture()
	handler := newTestHandler()
	bus.Subscribe(handler)
	entry := enqueue(t, repo, serializer, newSubmittedEvent(uuid.New()))

	require.NoError(t, processor.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return repo.status(entry.ID) == shared.OutboxStatusSent
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, processor.Stop(ctx))
	assert.Len(t, handler.getHandled(), 1)
}

func TestDefaultOutboxProcessorConfig(t *testing.T) {
	config := DefaultOutboxProcessorConfig()

	assert.Equal(t, 100, config.BatchSize)
	assert.Equal(t, 5*time.Second, config.PollInterval)
	assert.True(t, config.CleanupEnabled)
	assert.Equal(t, 7*24*time.Hour, config.CleanupRetention)
	assert.Equal(t, time.Hour, config.CleanupInterval)
}
