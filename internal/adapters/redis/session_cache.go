package redis

// Package redis provides Redis-based adapters for the perch backend.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/perch-hq/perch-ui-api/internal/domain/auth"
	"github.com/perch-hq/perch-ui-api/internal/ports"
)

// SessionCache caches validated sessions keyed by a digest of the access
// token, so the hot middleware path can skip a provider round-trip. Cookies
// remain the source of truth; a cache loss only costs an extra provider call.
type SessionCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewSessionCache creates a session cache with the given per-entry TTL cap.
func NewSessionCache(client redis.UniversalClient, ttl time.Duration) *SessionCache {
	return &SessionCache{
		client: client,
		prefix: "session:",
		ttl:    ttl,
	}
}

// NewSessionCacheWithPrefix creates a session cache with a custom key prefix.
func NewSessionCacheWithPrefix(client redis.UniversalClient, ttl time.Duration, prefix string) *SessionCache {
	return &SessionCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

var _ ports.SessionCache = (*SessionCache)(nil)

// ErrCacheMiss is returned when no entry exists for the access token.
type cacheMissError struct{}

func (cacheMissError) Error() string { return "session cache miss" }

var ErrCacheMiss error = cacheMissError{}

// key derives the cache key. Raw tokens never appear in Redis keyspace
// listings or logs.
func (c *SessionCache) key(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Put stores a validated session. The entry TTL is the smaller of the cache
// TTL and the session's remaining lifetime, so an entry never outlives its
// session. Already-expired sessions are not stored.
func (c *SessionCache) Put(ctx context.Context, sess *domainauth.SessionData) error {
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("cache session: %w", err)
	}

	remaining := time.Until(sess.ExpiryTime())
	if remaining <= 0 {
		return errors.New("session is expired")
	}
	ttl := c.ttl
	if remaining < ttl {
		ttl = remaining
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return c.client.Set(ctx, c.key(sess.Tokens.AccessToken), data, ttl).Err()
}

// Get returns the cached session for an access token, or ErrCacheMiss.
func (c *SessionCache) Get(ctx context.Context, accessToken string) (*domainauth.SessionData, error) {
	if accessToken == "" {
		return nil, ErrCacheMiss
	}

	data, err := c.client.Get(ctx, c.key(accessToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.SessionData
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}

	// Double-check expiry (Redis TTL should handle this, but be defensive)
	if sess.Expired(time.Now()) {
		if deleteErr := c.Invalidate(ctx, accessToken); deleteErr != nil {
			return nil, fmt.Errorf("cleanup expired session: %w", deleteErr)
		}
		return nil, ErrCacheMiss
	}

	return &sess, nil
}

// Invalidate removes the entry for an access token.
func (c *SessionCache) Invalidate(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return c.client.Del(ctx, c.key(accessToken)).Err()
}
