package store

import (
	"context"
	"testing"
	"time"
)

func redisForTest(t *testing.T) *RedisStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	s, err := NewRedisStore(ctx, "localhost:6379")
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Clear(context.Background())
		_ = s.Close()
	})
	return s
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := redisForTest(t)

	if err := s.Set(ctx, "versions:newtonsoft.json", []byte(`["13.0.1"]`), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	got, hit, err := s.Get(ctx, "versions:newtonsoft.json")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !hit {
		t.Fatal("Get should hit")
	}
	if string(got) != `["13.0.1"]` {
		t.Errorf("Get = %q", got)
	}
}

func TestRedisExpiredEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	s := redisForTest(t)

	if err := s.Set(ctx, "stale", []byte("old"), -time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	_, hit, err := s.Get(ctx, "stale")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("Get should miss on expired entry")
	}
}

func TestRedisRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	s := redisForTest(t)

	if err := s.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := s.Remove(ctx, "key"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if err := s.Remove(ctx, "key"); err != nil {
		t.Errorf("Remove absent key error: %v", err)
	}
}

func TestRedisSweepIsNoop(t *testing.T) {
	ctx := context.Background()
	s := redisForTest(t)

	removed, err := s.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired error: %v", err)
	}
	if removed != 0 {
		t.Errorf("SweepExpired = %d, want 0", removed)
	}
}
