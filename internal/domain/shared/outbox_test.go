package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := Now
	Now = func() time.Time { return at }
	t.Cleanup(func() { Now = orig })
}

type stubEvent struct {
	BaseDomainEvent
}

func TestNewOutboxEntry_CopiesEventScope(t *testing.T) {
	deptID := uuid.New()
	aggID := uuid.New()
	evt := &stubEvent{BaseDomainEvent: NewBaseDomainEvent("ApplicationSubmitted", "Application", aggID, deptID)}

	entry := NewOutboxEntry(evt, []byte(`{}`))

	assert.Equal(t, deptID, entry.DepartmentID)
	assert.Equal(t, aggID, entry.AggregateID)
	assert.Equal(t, "ApplicationSubmitted", entry.EventType)
	assert.Equal(t, evt.EventID(), entry.EventID)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
}

func TestOutboxEntry_MarkProcessing(t *testing.T) {
	entry := &OutboxEntry{Status: OutboxStatusPending}
	require.NoError(t, entry.MarkProcessing())
	assert.Equal(t, OutboxStatusProcessing, entry.Status)

	sent := &OutboxEntry{Status: OutboxStatusSent}
	assert.Error(t, sent.MarkProcessing())
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	t.Run("resets dead letter entry for retry", func(t *testing.T) {
		entry := &OutboxEntry{
			ID:         uuid.New(),
			EventType:  "ApplicationApproved",
			Status:     OutboxStatusDead,
			RetryCount: 5,
			MaxRetries: 5,
			LastError:  "some error",
		}

		err := entry.ResetForRetry()
		assert.NoError(t, err)
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Equal(t, 0, entry.RetryCount)
		assert.Empty(t, entry.LastError)
		assert.Nil(t, entry.NextRetryAt)
	})

	t.Run("fails for non-dead entry", func(t *testing.T) {
		for _, status := range []OutboxStatus{
			OutboxStatusPending,
			OutboxStatusProcessing,
			OutboxStatusSent,
			OutboxStatusFailed,
		} {
			entry := &OutboxEntry{Status: status}
			err := entry.ResetForRetry()
			assert.Error(t, err)
			assert.False(t, entry.IsDead())
		}
	})
}

func TestOutboxEntry_MarkFailed_MovesToDeadAfterMaxRetries(t *testing.T) {
	entry := &OutboxEntry{
		Status:     OutboxStatusProcessing,
		RetryCount: 4,
		MaxRetries: 5,
	}

	entry.MarkFailed("final error")

	assert.Equal(t, OutboxStatusDead, entry.Status)
	assert.Equal(t, 5, entry.RetryCount)
	assert.Equal(t, "final error", entry.LastError)
	assert.True(t, entry.IsDead())
	assert.False(t, entry.CanRetry())
}

func TestOutboxEntry_MarkFailed_ExponentialBackoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	freezeClock(t, now)

	entry := &OutboxEntry{Status: OutboxStatusProcessing, MaxRetries: 20}

	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, want := range expected {
		entry.MarkFailed("error")
		require.NotNil(t, entry.NextRetryAt)
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, i+1, entry.RetryCount)
		assert.Equal(t, want, entry.NextRetryAt.Sub(now))
		assert.True(t, entry.CanRetry())
	}
}

func TestOutboxEntry_MarkFailed_BackoffIsCapped(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	freezeClock(t, now)

	entry := &OutboxEntry{Status: OutboxStatusProcessing, RetryCount: 15, MaxRetries: 20}
	entry.MarkFailed("error")

	require.NotNil(t, entry.NextRetryAt)
	assert.Equal(t, MaxBackoff, entry.NextRetryAt.Sub(now))
}
