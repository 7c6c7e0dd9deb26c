package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
)

func lockers(t *testing.T) map[string]Locker {
	_, client := newMiniredisClient(t)
	return map[string]Locker{
		"keyed": NewKeyedLocker(),
		"redis": NewRedisLocker(client, WithLockRetryDelay(time.Millisecond)),
	}
}

func TestLocker_MutualExclusion(t *testing.T) {
	for name, locker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			id := uuid.New()
			var (
				inside  int32
				maxSeen int32
				wg      sync.WaitGroup
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock, err := locker.Lock(context.Background(), id)
					if !assert.NoError(t, err) {
						return
					}
					n := atomic.AddInt32(&inside, 1)
					for {
						m := atomic.LoadInt32(&maxSeen)
						if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
							break
						}
					}
					time.Sleep(time.Millisecond)
					atomic.AddInt32(&inside, -1)
					unlock()
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), maxSeen)
		})
	}
}

func TestLocker_DifferentKeysDoNotContend(t *testing.T) {
	for name, locker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			unlockA, err := locker.Lock(context.Background(), uuid.New())
			require.NoError(t, err)
			defer unlockA()

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			unlockB, err := locker.Lock(ctx, uuid.New())
			require.NoError(t, err)
			unlockB()
		})
	}
}

func TestLocker_TimeoutIsStorageUnavailable(t *testing.T) {
	for name, locker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			id := uuid.New()
			unlock, err := locker.Lock(context.Background(), id)
			require.NoError(t, err)
			defer unlock()

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			_, err = locker.Lock(ctx, id)
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
		})
	}
}

func TestKeyedLocker_ReleasesEntries(t *testing.T) {
	locker := NewKeyedLocker()
	unlock, err := locker.Lock(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, locker.Size())

	unlock()
	unlock()
	assert.Equal(t, 0, locker.Size())
}

func TestRedisLocker_ExpiredLockCanBeTaken(t *testing.T) {
	mr, client := newMiniredisClient(t)
	locker := NewRedisLocker(client, WithLockTTL(time.Second), WithLockRetryDelay(time.Millisecond))
	id := uuid.New()

	_, err := locker.Lock(context.Background(), id)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	unlock, err := locker.Lock(ctx, id)
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_UnlockKeepsForeignToken(t *testing.T) {
	mr, client := newMiniredisClient(t)
	locker := NewRedisLocker(client, WithLockTTL(time.Second))
	id := uuid.New()
	key := defaultLockPrefix + id.String()

	unlock, err := locker.Lock(context.Background(), id)
	require.NoError(t, err)

	// Lock expired and was taken by another holder
	require.NoError(t, mr.Set(key, "other-holder"))
	unlock()

	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "other-holder", got)
}

func TestRedisLocker_RedisDown(t *testing.T) {
	mr, client := newMiniredisClient(t)
	locker := NewRedisLocker(client)
	mr.Close()

	_, err := locker.Lock(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
}

func TestFactory_MemoryBackend(t *testing.T) {
	f := NewFactory(RedisConfig{}, WithBackend(BackendMemory))
	require.NoError(t, f.Connect())
	defer f.Close()

	assert.False(t, f.Distributed())
	assert.IsType(t, &KeyedLocker{}, f.Locker())
	store := f.IdempotencyStore()
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestFactory_FallbackWhenRedisUnreachable(t *testing.T) {
	f := NewFactory(RedisConfig{Host: "127.0.0.1", Port: 1})
	require.NoError(t, f.Connect())
	assert.False(t, f.Distributed())

	strict := NewFactory(RedisConfig{Host: "127.0.0.1", Port: 1}, WithInMemoryFallback(false))
	assert.Error(t, strict.Connect())
}

func TestFactory_WithClient(t *testing.T) {
	_, client := newMiniredisClient(t)
	f := NewFactoryWithClient(client)
	require.NoError(t, f.Connect())

	assert.True(t, f.Distributed())
	assert.IsType(t, &RedisLocker{}, f.Locker())
	assert.IsType(t, &RedisIdempotencyStore{}, f.IdempotencyStore())
}
