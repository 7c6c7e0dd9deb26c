package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList rejects access tokens before they expire: single tokens by
// their JWT ID, or every token a user received before a cut-off.
type RevocationList interface {
	Revoke(ctx context.Context, claims *Claims) error
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, claims *Claims) (bool, error)
}

// RedisRevocationList stores revocations in Redis so that every instance sees them
type RedisRevocationList struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRevocationList creates a revocation list on an existing client
func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{
		client:    client,
		keyPrefix: "nbc:revoked:",
	}
}

func (r *RedisRevocationList) tokenKey(jti string) string {
	return r.keyPrefix + "jti:" + jti
}

func (r *RedisRevocationList) userKey(userID string) string {
	return r.keyPrefix + "user:" + userID
}

// Revoke marks a token revoked until it would have expired anyway
func (r *RedisRevocationList) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ID == "" {
		return ErrInvalidClaims
	}
	ttl := claims.RemainingTTL()
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.tokenKey(claims.ID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeUser rejects tokens issued to userID up to now. ttl should cover the
// longest token lifetime.
func (r *RedisRevocationList) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.userKey(userID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

// IsRevoked checks both the token and the user cut-off
func (r *RedisRevocationList) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	if claims.ID != "" {
		n, err := r.client.Exists(ctx, r.tokenKey(claims.ID)).Result()
		if err != nil {
			return false, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}

	raw, err := r.client.Get(ctx, r.userKey(claims.UserID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user revocation: %w", err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse revocation timestamp: %w", err)
	}
	return issuedAt(claims).Unix() <= cutoff, nil
}

var _ RevocationList = (*RedisRevocationList)(nil)

// InMemoryRevocationList is a process-local revocation list for single
// instance deployments and tests
type InMemoryRevocationList struct {
	mu     sync.Mutex
	tokens map[string]time.Time // jti -> expiry
	users  map[string]time.Time // user id -> cut-off
	now    func() time.Time
}

// NewInMemoryRevocationList creates an empty revocation list
func NewInMemoryRevocationList() *InMemoryRevocationList {
	return &InMemoryRevocationList{
		tokens: make(map[string]time.Time),
		users:  make(map[string]time.Time),
		now:    time.Now,
	}
}

// Revoke marks a token revoked until its expiry
func (r *InMemoryRevocationList) Revoke(_ context.Context, claims *Claims) error {
	if claims.ID == "" {
		return ErrInvalidClaims
	}
	ttl := claims.RemainingTTL()
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[claims.ID] = r.now().Add(ttl)
	return nil
}

// RevokeUser rejects tokens issued to userID up to now
func (r *InMemoryRevocationList) RevokeUser(_ context.Context, userID string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = r.now()
	return nil
}

// IsRevoked checks both the token and the user cut-off
func (r *InMemoryRevocationList) IsRevoked(_ context.Context, claims *Claims) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if expiry, ok := r.tokens[claims.ID]; ok {
		if r.now().Before(expiry) {
			return true, nil
		}
		delete(r.tokens, claims.ID)
	}
	cutoff, ok := r.users[claims.UserID]
	if !ok {
		return false, nil
	}
	return !issuedAt(claims).After(cutoff), nil
}

var _ RevocationList = (*InMemoryRevocationList)(nil)

func issuedAt(claims *Claims) time.Time {
	if claims.IssuedAt == nil {
		return time.Time{}
	}
	return claims.IssuedAt.Time
}
