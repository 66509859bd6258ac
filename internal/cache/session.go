package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maildeck/maildeck/internal/model"
)

const (
	// sessionPrefix is the Redis key prefix for session records.
	sessionPrefix = "session:"
)

// Sessions are keyed by the SHA-256 digest of the cookie token, never the
// token itself, so a Redis dump does not yield usable credentials.

// SetSession stores a session record under the hashed token with the
// session lifetime as TTL.
func (c *Cache) SetSession(ctx context.Context, tokenHash string, auth *model.AuthContext, ttl time.Duration) error {
	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return c.client.Set(ctx, sessionPrefix+tokenHash, data, ttl).Err()
}

// GetSession retrieves a session record by hashed token.
// Returns nil on a miss; expiry and logout both present as misses.
func (c *Cache) GetSession(ctx context.Context, tokenHash string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, sessionPrefix+tokenHash).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var auth model.AuthContext
	if err := json.Unmarshal(data, &auth); err != nil {
		// Corrupted entry - treat as miss
		return nil, nil //nolint:nilerr
	}
	return &auth, nil
}

// DeleteSession invalidates a session (logout).
func (c *Cache) DeleteSession(ctx context.Context, tokenHash string) error {
	return c.client.Del(ctx, sessionPrefix+tokenHash).Err()
}
