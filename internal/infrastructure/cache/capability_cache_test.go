package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
)

func TestCapabilityCache_GetSet(t *testing.T) {
	c := NewCapabilityCache()
	defer c.Close()
	ctx := context.Background()
	dept := uuid.New()

	_, ok := c.Get(ctx, dept, identity.TierWrite)
	assert.False(t, ok)

	set := identity.CapabilitiesFor(identity.TierWrite)
	c.Set(ctx, dept, identity.TierWrite, set)

	got, ok := c.Get(ctx, dept, identity.TierWrite)
	require.True(t, ok)
	assert.Equal(t, set, got)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCapabilityCache_Expiry(t *testing.T) {
	c := NewCapabilityCache(WithCapabilityTTL(10 * time.Millisecond))
	defer c.Close()
	ctx := context.Background()
	dept := uuid.New()

	c.Set(ctx, dept, identity.TierAdmin, identity.CapabilitiesFor(identity.TierAdmin))
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(ctx, dept, identity.TierAdmin)
	assert.False(t, ok)
}

func TestCapabilityCache_InvalidateDepartment(t *testing.T) {
	c := NewCapabilityCache()
	defer c.Close()
	ctx := context.Background()
	deptA, deptB := uuid.New(), uuid.New()

	for _, tier := range identity.AllTiers() {
		c.Set(ctx, deptA, tier, identity.CapabilitiesFor(tier))
		c.Set(ctx, deptB, tier, identity.CapabilitiesFor(tier))
	}

	require.NoError(t, c.InvalidateDepartment(ctx, deptA))

	for _, tier := range identity.AllTiers() {
		_, ok := c.Get(ctx, deptA, tier)
		assert.False(t, ok)
		_, ok = c.Get(ctx, deptB, tier)
		assert.True(t, ok)
	}
}

func TestCapabilityCache_InvalidationAcrossInstances(t *testing.T) {
	_, client := newMiniredisClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	invA := NewRedisCapabilityInvalidator(client, nil)
	invB := NewRedisCapabilityInvalidator(client, nil)
	a := NewCapabilityCache(WithInvalidator(invA))
	b := NewCapabilityCache(WithInvalidator(invB))
	defer a.Close()
	defer b.Close()

	go func() { _ = b.StartInvalidationSubscription(ctx) }()

	dept := uuid.New()
	b.Set(ctx, dept, identity.TierWrite, identity.CapabilitiesFor(identity.TierWrite))

	// Publish until the subscriber is attached and has dropped the entry
	require.Eventually(t, func() bool {
		_ = a.InvalidateDepartment(ctx, dept)
		_, ok := b.Get(ctx, dept, identity.TierWrite)
		return !ok
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, invB.Close())
}
