package event

import (
	"context"
	"testing"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockOutboxRepoForService keeps outbox entries in a map
type mockOutboxRepoForService struct {
	entries map[uuid.UUID]*shared.OutboxEntry
}

func newMockOutboxRepoForService() *mockOutboxRepoForService {
	return &mockOutboxRepoForService{
		entries: make(map[uuid.UUID]*shared.OutboxEntry),
	}
}

func (r *mockOutboxRepoForService) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *mockOutboxRepoForService) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	var result []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusPending {
			result = append(result, e)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (r *mockOutboxRepoForService) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *mockOutboxRepoForService) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var result []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			result = append(result, e)
		}
	}
	total := int64(len(result))

	// Apply pagination
	start := (page - 1) * pageSize
	if start >= len(result) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *mockOutboxRepoForService) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (r *mockOutboxRepoForService) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *mockOutboxRepoForService) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *mockOutboxRepoForService) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *mockOutboxRepoForService) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func adminActor() identity.Actor {
	return identity.Actor{UserID: uuid.New(), DepartmentAdmin: true}
}

func deadEntry(eventType string) *shared.OutboxEntry {
	return &shared.OutboxEntry{
		ID:            uuid.New(),
		DepartmentID:  uuid.New(),
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateID:   uuid.New(),
		AggregateType: "Application",
		Status:        shared.OutboxStatusDead,
		RetryCount:    5,
		MaxRetries:    5,
		LastError:     "notifier unreachable",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestOutboxService_DeadLetters(t *testing.T) {
	repo := newMockOutboxRepoForService()
	service := NewOutboxService(repo, zap.NewNop())

	for i := 0; i < 5; i++ {
		e := deadEntry("ApplicationApproved")
		repo.entries[e.ID] = e
	}
	pending := &shared.OutboxEntry{ID: uuid.New(), Status: shared.OutboxStatusPending}
	repo.entries[pending.ID] = pending

	page, err := service.DeadLetters(context.Background(), adminActor(), shared.Filter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 2)
	for _, entry := range page.Items {
		assert.Equal(t, "DEAD", entry.Status)
		assert.NotEqual(t, uuid.Nil, entry.DepartmentID)
	}
}

func TestOutboxService_RequiresDepartmentAdmin(t *testing.T) {
	repo := newMockOutboxRepoForService()
	service := NewOutboxService(repo, zap.NewNop())
	ctx := context.Background()
	reviewer := identity.Actor{UserID: uuid.New(), DepartmentID: uuid.New(), Tier: identity.TierAdmin}

	_, err := service.DeadLetters(ctx, reviewer, shared.DefaultFilter())
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	_, err = service.Retry(ctx, reviewer, uuid.New())
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	_, err = service.RetryAll(ctx, reviewer)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	_, err = service.Stats(ctx, identity.Actor{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestOutboxService_Retry(t *testing.T) {
	repo := newMockOutboxRepoForService()
	service := NewOutboxService(repo, zap.NewNop())
	dead := deadEntry("ApplicationRejected")
	repo.entries[dead.ID] = dead

	result, err := service.Retry(context.Background(), adminActor(), dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", result.Status)
	assert.Equal(t, 0, result.RetryCount)
	assert.Empty(t, result.LastError)
	assert.Equal(t, shared.OutboxStatusPending, repo.entries[dead.ID].Status)
}

func TestOutboxService_Retry_NotFound(t *testing.T) {
	service := NewOutboxService(newMockOutboxRepoForService(), zap.NewNop())

	_, err := service.Retry(context.Background(), adminActor(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOutboxService_Retry_NotDead(t *testing.T) {
	repo := newMockOutboxRepoForService()
	service := NewOutboxService(repo, zap.NewNop())
	entry := &shared.OutboxEntry{ID: uuid.New(), Status: shared.OutboxStatusPending}
	repo.entries[entry.ID] = entry

	_, err := service.Retry(context.Background(), adminActor(), entry.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestOutboxService_Stats(t *testing.T) {
	repo := newMockOutboxRepoForService()
	service := NewOutboxService(repo, zap.NewNop())

	statuses := []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	}
	for _, status := range statuses {
		entry := &shared.OutboxEntry{ID: uuid.New(), Status: status}
		repo.entries[entry.ID] = entry
	}

	stats, err := service.Stats(context.Background(), adminActor())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(3), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(8), stats.Total)
}

func TestOutboxService_RetryAll(t *testing.T) {
	repo := newMockOutboxRepoForService()
	service := NewOutboxService(repo, zap.NewNop())

	for i := 0; i < 3; i++ {
		e := deadEntry("ApplicationAdvanced")
		repo.entries[e.ID] = e
	}
	pending := &shared.OutboxEntry{ID: uuid.New(), Status: shared.OutboxStatusPending}
	repo.entries[pending.ID] = pending

	count, err := service.RetryAll(context.Background(), adminActor())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	for _, entry := range repo.entries {
		assert.Equal(t, shared.OutboxStatusPending, entry.Status)
		assert.Equal(t, 0, entry.RetryCount)
	}
}
