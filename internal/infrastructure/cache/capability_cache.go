package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultCapabilityTTL   = time.Minute
	defaultCleanupInterval = 30 * time.Second
)

// CapabilityCache is an in-process cache of resolved (department, tier)
// capability sets. It is kept consistent across instances by an optional
// Invalidator that broadcasts department invalidations.
type CapabilityCache struct {
	entries     sync.Map // map[capabilityKey]cacheEntry
	ttl         time.Duration
	invalidator Invalidator
	logger      *zap.Logger
	stopCh      chan struct{}
	stopOnce    sync.Once

	hits   int64
	misses int64
}

// Invalidator broadcasts department invalidations to other instances
type Invalidator interface {
	Publish(ctx context.Context, departmentID uuid.UUID) error
	Subscribe(ctx context.Context, callback func(departmentID uuid.UUID)) error
}

type capabilityKey struct {
	departmentID uuid.UUID
	tier         identity.RoleTier
}

type cacheEntry struct {
	set       identity.CapabilitySet
	expiresAt time.Time
}

func (e cacheEntry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// CapabilityCacheOption is a functional option for configuring the cache
type CapabilityCacheOption func(*CapabilityCache)

// WithCapabilityTTL sets how long a resolved set is trusted
func WithCapabilityTTL(ttl time.Duration) CapabilityCacheOption {
	return func(c *CapabilityCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithInvalidator enables cross-instance invalidation
func WithInvalidator(inv Invalidator) CapabilityCacheOption {
	return func(c *CapabilityCache) {
		c.invalidator = inv
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) CapabilityCacheOption {
	return func(c *CapabilityCache) {
		c.logger = logger
	}
}

// NewCapabilityCache creates a cache and starts its expiry sweeper
func NewCapabilityCache(opts ...CapabilityCacheOption) *CapabilityCache {
	c := &CapabilityCache{
		ttl:    defaultCapabilityTTL,
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired()

	return c
}

// Get returns the cached set for (departmentID, tier)
func (c *CapabilityCache) Get(_ context.Context, departmentID uuid.UUID, tier identity.RoleTier) (identity.CapabilitySet, bool) {
	key := capabilityKey{departmentID, tier}
	if v, ok := c.entries.Load(key); ok {
		entry := v.(cacheEntry)
		if !entry.isExpired(time.Now()) {
			atomic.AddInt64(&c.hits, 1)
			return entry.set, true
		}
		c.entries.Delete(key)
	}
	atomic.AddInt64(&c.misses, 1)
	return identity.EmptySet, false
}

// Set stores a resolved set
func (c *CapabilityCache) Set(_ context.Context, departmentID uuid.UUID, tier identity.RoleTier, set identity.CapabilitySet) {
	c.entries.Store(capabilityKey{departmentID, tier}, cacheEntry{set: set, expiresAt: time.Now().Add(c.ttl)})
}

// InvalidateDepartment drops local entries of departmentID and notifies other instances
func (c *CapabilityCache) InvalidateDepartment(ctx context.Context, departmentID uuid.UUID) error {
	c.dropDepartment(departmentID)
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Publish(ctx, departmentID)
}

func (c *CapabilityCache) dropDepartment(departmentID uuid.UUID) {
	for _, tier := range identity.AllTiers() {
		c.entries.Delete(capabilityKey{departmentID, tier})
	}
	c.logger.Debug("Invalidated cached capabilities", zap.String("department_id", departmentID.String()))
}

// StartInvalidationSubscription listens for invalidations published by
// other instances until ctx is done. It blocks; run it in a goroutine.
func (c *CapabilityCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, c.dropDepartment)
}

// Stats returns hit and miss counters
func (c *CapabilityCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Close stops the expiry sweeper. Safe to call multiple times.
func (c *CapabilityCache) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *CapabilityCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.entries.Range(func(k, v any) bool {
				if v.(cacheEntry).isExpired(now) {
					c.entries.Delete(k)
				}
				return true
			})
		}
	}
}
