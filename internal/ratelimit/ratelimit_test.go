package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		DB:   0,
	})
	t.Cleanup(func() { redisClient.Close() })

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		t.Fatalf("Failed to connect to test Redis: %v", err)
	}
	return redisClient
}

func TestTokenBucket_Allow(t *testing.T) {
	bucket := NewTokenBucket(setupTestRedis(t), 5, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, remaining, err := bucket.Allow(ctx, "tenant-a", "initiate")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
		if remaining != int64(4-i) {
			t.Fatalf("Expected %d remaining, got %d", 4-i, remaining)
		}
	}

	allowed, _, err := bucket.Allow(ctx, "tenant-a", "initiate")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("Expected request to be denied after limit reached")
	}

	// other tenants have their own bucket
	allowed, _, err = bucket.Allow(ctx, "tenant-b", "initiate")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !allowed {
		t.Fatal("Expected a different tenant to be allowed")
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	bucket := NewTokenBucket(setupTestRedis(t), 2, 2)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bucket.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if allowed, _, _ := bucket.Allow(ctx, "tenant-a", "initiate"); !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}
	if allowed, _, _ := bucket.Allow(ctx, "tenant-a", "initiate"); allowed {
		t.Fatal("Expected bucket to be empty")
	}

	now = now.Add(30 * time.Second)
	remaining, err := bucket.GetRemaining(ctx, "tenant-a", "initiate")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("Expected 1 token after half a window, got %d", remaining)
	}

	if allowed, _, _ := bucket.Allow(ctx, "tenant-a", "initiate"); !allowed {
		t.Fatal("Expected refilled token to be usable")
	}
}

func TestTokenBucket_GetRemaining(t *testing.T) {
	bucket := NewTokenBucket(setupTestRedis(t), 10, 10)
	ctx := context.Background()

	remaining, err := bucket.GetRemaining(ctx, "tenant-a", "initiate")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 10 {
		t.Fatalf("Expected 10 remaining tokens, got %d", remaining)
	}

	for i := 0; i < 3; i++ {
		bucket.Allow(ctx, "tenant-a", "initiate")
	}

	remaining, err = bucket.GetRemaining(ctx, "tenant-a", "initiate")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 7 {
		t.Fatalf("Expected 7 remaining tokens, got %d", remaining)
	}
}

func TestTokenBucket_Reset(t *testing.T) {
	bucket := NewTokenBucket(setupTestRedis(t), 5, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		bucket.Allow(ctx, "tenant-a", "initiate")
	}

	if err := bucket.Reset(ctx, "tenant-a", "initiate"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	remaining, err := bucket.GetRemaining(ctx, "tenant-a", "initiate")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("Expected 5 remaining tokens after reset, got %d", remaining)
	}
}
