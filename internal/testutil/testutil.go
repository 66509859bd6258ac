// Package testutil provides helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/maildeck/maildeck/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// ResetUsers drops the users collection so each test starts clean.
// Indexes are recreated on the next repository construction.
func ResetUsers(ctx context.Context, db *mongo.Database) error {
	if err := db.Collection("users").Drop(ctx); err != nil {
		return fmt.Errorf("drop users collection: %w", err)
	}
	return nil
}

// FlushSessions removes session and rate-limit keys from the test Redis.
// Scoped deletes rather than FLUSHDB so a mis-pointed REDIS_URL cannot
// wipe unrelated data.
func FlushSessions(ctx context.Context, client *redis.Client) error {
	for _, pattern := range []string{"session:*", "ratelimit:*"} {
		iter := client.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := client.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("delete %s: %w", iter.Val(), err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
	}
	return nil
}

// NewTestUser builds a user with sensible defaults for integration tests.
func NewTestUser(suffix string) *model.User {
	return &model.User{
		GoogleID:     "google-" + suffix,
		Email:        suffix + "@gmail.com",
		DisplayName:  "Test " + suffix,
		AccessToken:  "access-" + suffix,
		RefreshToken: "refresh-" + suffix,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
		Workspaces:   []model.Workspace{},
	}
}
