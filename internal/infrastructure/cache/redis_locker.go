package cache

import (
	"context"
	"errors"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockTTL        = 30 * time.Second
	defaultLockRetryDelay = 25 * time.Millisecond
	maxLockRetryDelay     = 500 * time.Millisecond
	defaultLockPrefix     = "nbc:lock:application:"
)

// releaseScript deletes the lock only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes transitions of an application across instances
// using SET NX PX with a random token. The TTL bounds how long a crashed
// holder can block the application.
type RedisLocker struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
}

// RedisLockerOption is a functional option for configuring the locker
type RedisLockerOption func(*RedisLocker)

// WithLockTTL sets the lock expiry
func WithLockTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLockRetryDelay sets the initial polling delay while the lock is held elsewhere
func WithLockRetryDelay(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.retryDelay = d
		}
	}
}

// WithLockLogger sets the logger
func WithLockLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// NewRedisLocker creates a locker on an existing client.
// The caller retains ownership of the client.
func NewRedisLocker(client *redis.Client, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:     client,
		keyPrefix:  defaultLockPrefix,
		ttl:        defaultLockTTL,
		retryDelay: defaultLockRetryDelay,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock blocks until the lock for id is acquired or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	key := l.keyPrefix + id.String()
	token := uuid.NewString()
	delay := l.retryDelay

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, shared.ErrStorageUnavailable.WithMessage("Timed out waiting for application lock").Wrap(ctx.Err())
			}
			return nil, shared.ErrStorageUnavailable.WithMessage("Lock service unavailable").Wrap(err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, shared.ErrStorageUnavailable.WithMessage("Timed out waiting for application lock").Wrap(ctx.Err())
		case <-timer.C:
		}
		delay *= 2
		if delay > maxLockRetryDelay {
			delay = maxLockRetryDelay
		}
	}

	return func() {
		// Release with a fresh context so a cancelled request still frees the lock
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("Failed to release application lock",
				zap.String("application_id", id.String()),
				zap.Error(err))
		}
	}, nil
}
