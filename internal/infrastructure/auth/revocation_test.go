package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimsIssuedAt(at time.Time) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(at),
			ExpiresAt: jwt.NewNumericDate(at.Add(time.Hour)),
		},
		UserID: uuid.NewString(),
	}
}

func revocationLists(t *testing.T) map[string]RevocationList {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]RevocationList{
		"redis":  NewRedisRevocationList(client),
		"memory": NewInMemoryRevocationList(),
	}
}

func TestRevocationList_Token(t *testing.T) {
	for name, list := range revocationLists(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			revoked := claimsIssuedAt(time.Now())
			other := claimsIssuedAt(time.Now())

			require.NoError(t, list.Revoke(ctx, revoked))

			got, err := list.IsRevoked(ctx, revoked)
			require.NoError(t, err)
			assert.True(t, got)

			got, err = list.IsRevoked(ctx, other)
			require.NoError(t, err)
			assert.False(t, got)
		})
	}
}

func TestRevocationList_RevokeRequiresID(t *testing.T) {
	for name, list := range revocationLists(t) {
		t.Run(name, func(t *testing.T) {
			c := claimsIssuedAt(time.Now())
			c.ID = ""
			assert.ErrorIs(t, list.Revoke(context.Background(), c), ErrInvalidClaims)
		})
	}
}

func TestRevocationList_ExpiredTokenIsNotStored(t *testing.T) {
	for name, list := range revocationLists(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := claimsIssuedAt(time.Now().Add(-2 * time.Hour))

			require.NoError(t, list.Revoke(ctx, c))
			got, err := list.IsRevoked(ctx, c)
			require.NoError(t, err)
			assert.False(t, got)
		})
	}
}

func TestRevocationList_User(t *testing.T) {
	for name, list := range revocationLists(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			old := claimsIssuedAt(time.Now().Add(-time.Minute))

			require.NoError(t, list.RevokeUser(ctx, old.UserID, time.Hour))

			got, err := list.IsRevoked(ctx, old)
			require.NoError(t, err)
			assert.True(t, got)

			fresh := claimsIssuedAt(time.Now().Add(time.Minute))
			fresh.UserID = old.UserID
			got, err = list.IsRevoked(ctx, fresh)
			require.NoError(t, err)
			assert.False(t, got)
		})
	}
}

func TestRedisRevocationList_UsesTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	list := NewRedisRevocationList(client)

	c := claimsIssuedAt(time.Now())
	require.NoError(t, list.Revoke(context.Background(), c))

	key := "nbc:revoked:jti:" + c.ID
	require.True(t, mr.Exists(key))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(key).Seconds(), 5)

	mr.FastForward(2 * time.Hour)
	got, err := list.IsRevoked(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestRedisRevocationList_StoreFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	list := NewRedisRevocationList(client)
	mr.Close()

	_, err := list.IsRevoked(context.Background(), claimsIssuedAt(time.Now()))
	assert.Error(t, err)
}
