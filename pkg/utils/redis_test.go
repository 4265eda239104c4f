package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestConcurrencyScriptsCompile(t *testing.T) {
	// Compile-time smoke test: scripts should be initialized.
	if concurrencyAcquireScript == nil || concurrencyReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestAcquireConcurrencyCapHonorsLimit(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	key := "cap:ws_1"

	for i := 0; i < 2; i++ {
		ok, err := AcquireConcurrencyCap(ctx, rdb, key, 2, time.Minute)
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("acquire %d: expected slot under the limit", i)
		}
	}

	ok, err := AcquireConcurrencyCap(ctx, rdb, key, 2, time.Minute)
	if err != nil {
		t.Fatalf("acquire over limit: %v", err)
	}
	if ok {
		t.Fatalf("expected acquire beyond the limit to be rejected")
	}

	if err := ReleaseConcurrencyCap(ctx, rdb, key); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = AcquireConcurrencyCap(ctx, rdb, key, 2, time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected released slot to be reusable, ok=%v err=%v", ok, err)
	}
}

func TestReleaseConcurrencyCapDeletesDrainedKey(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	key := "cap:ws_2"

	if ok, err := AcquireConcurrencyCap(ctx, rdb, key, 1, time.Minute); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	if err := ReleaseConcurrencyCap(ctx, rdb, key); err != nil {
		t.Fatalf("release: %v", err)
	}

	n, err := rdb.Exists(ctx, key).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected drained counter key to be deleted")
	}
}

func TestAcquireConcurrencyCapValidatesInput(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	if _, err := AcquireConcurrencyCap(ctx, rdb, "", 1, time.Minute); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := AcquireConcurrencyCap(ctx, rdb, "k", 0, time.Minute); err == nil {
		t.Fatalf("expected error for non-positive limit")
	}
	if _, err := AcquireConcurrencyCap(ctx, rdb, "k", 1, 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}
