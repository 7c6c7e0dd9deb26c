package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker serializes work on one application
type Locker interface {
	Lock(ctx context.Context, applicationID uuid.UUID) (unlock func(), err error)
}

// Backend names accepted by the factory
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Factory builds the Redis-backed coordination components (application lock,
// idempotency store, capability cache invalidation) and falls back to
// in-process implementations when Redis is not configured or unreachable.
type Factory struct {
	redisConfig           RedisConfig
	backend               string
	lockTTL               time.Duration
	allowInMemoryFallback bool
	logger                *zap.Logger

	client *redis.Client
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-process components when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// WithBackend selects "redis" or "memory"
func WithBackend(backend string) FactoryOption {
	return func(f *Factory) {
		f.backend = backend
	}
}

// WithFactoryLockTTL sets the TTL of Redis application locks
func WithFactoryLockTTL(ttl time.Duration) FactoryOption {
	return func(f *Factory) {
		f.lockTTL = ttl
	}
}

// NewFactory creates a factory. Call Connect before building components.
func NewFactory(cfg RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		backend:               BackendRedis,
		lockTTL:               defaultLockTTL,
		allowInMemoryFallback: true,
		logger:                zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFactoryWithClient creates a factory around an existing client
func NewFactoryWithClient(client *redis.Client, opts ...FactoryOption) *Factory {
	f := NewFactory(RedisConfig{}, opts...)
	f.client = client
	f.backend = BackendRedis
	return f
}

// Connect opens the Redis connection when the redis backend is selected
func (f *Factory) Connect() error {
	if f.backend == BackendMemory || f.client != nil {
		return nil
	}

	client, err := NewRedisClient(f.redisConfig)
	if err == nil {
		f.client = client
		f.logger.Info("Using Redis for application locks and idempotency",
			zap.String("addr", f.redisConfig.Addr()))
		return nil
	}

	if !f.allowInMemoryFallback {
		return fmt.Errorf("Redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-process locks and idempotency. "+
		"Application locks will not be shared across instances.",
		zap.Error(err))
	return nil
}

// Distributed reports whether components are backed by Redis
func (f *Factory) Distributed() bool {
	return f.client != nil
}

// Client returns the Redis client, nil when running in-process
func (f *Factory) Client() *redis.Client {
	return f.client
}

// Locker returns the application locker
func (f *Factory) Locker() Locker {
	if f.client == nil {
		return NewKeyedLocker()
	}
	return NewRedisLocker(f.client, WithLockTTL(f.lockTTL), WithLockLogger(f.logger))
}

// IdempotencyStore returns the outbox idempotency store
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	if f.client == nil {
		return NewInMemoryIdempotencyStore()
	}
	return NewRedisIdempotencyStore(f.client, "")
}

// CapabilityCache returns a capability cache, invalidated across instances when Redis is available
func (f *Factory) CapabilityCache(ttl time.Duration) *CapabilityCache {
	opts := []CapabilityCacheOption{WithCapabilityTTL(ttl), WithCacheLogger(f.logger)}
	if f.client != nil {
		opts = append(opts, WithInvalidator(NewRedisCapabilityInvalidator(f.client, f.logger)))
	}
	return NewCapabilityCache(opts...)
}

// Close closes the Redis connection
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
