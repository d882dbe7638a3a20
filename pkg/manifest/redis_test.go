package manifest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis and skips when none is running.
// The integration build tag runs the same checks against a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil, DefaultRedisConfig())
}

func TestNewRedisStore_Defaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	store := NewRedisStore(client, RedisConfig{})
	if store.config.Prefix != "rise" {
		t.Errorf("Prefix = %q, want rise", store.config.Prefix)
	}
	if store.config.MaxEntries != 1000 {
		t.Errorf("MaxEntries = %d, want 1000", store.config.MaxEntries)
	}
	if store.indexKey() != "rise:manifests" {
		t.Errorf("indexKey() = %q", store.indexKey())
	}
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	runRedisStoreSaveAndGet(t, setupTestRedis(t))
}

func TestRedisStore_LatestTrimmed(t *testing.T) {
	runRedisStoreLatestTrimmed(t, setupTestRedis(t))
}

func runRedisStoreSaveAndGet(t *testing.T, client *redis.Client) {
	ctx := context.Background()
	store := NewRedisStore(client, DefaultRedisConfig())

	m := New("contract", "0xabc", "20240101_000000")
	m.AddFile("abi", "out/contract_0xabc/20240101_000000_abi.json")
	if err := store.Save(ctx, m); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := store.Get(ctx, "contract", "20240101_000000")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Subject != "0xabc" || got.Files["abi"] != m.Files["abi"] {
		t.Errorf("Unexpected manifest: %+v", got)
	}

	ttl := client.TTL(ctx, Key("rise", "contract", "20240101_000000")).Val()
	if ttl <= 0 || ttl > 30*24*time.Hour {
		t.Errorf("Unexpected TTL %v", ttl)
	}

	if _, err := store.Get(ctx, "contract", "19990101_000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func runRedisStoreLatestTrimmed(t *testing.T, client *redis.Client) {
	ctx := context.Background()
	store := NewRedisStore(client, RedisConfig{Prefix: "test", MaxEntries: 3})

	stamps := []string{"20240101_000001", "20240101_000002", "20240101_000003", "20240101_000004"}
	for _, ts := range stamps {
		if err := store.Save(ctx, New("stats", "", ts)); err != nil {
			t.Fatalf("Save(%s) failed: %v", ts, err)
		}
	}

	if n := client.LLen(ctx, "test:manifests").Val(); n != 3 {
		t.Errorf("index length = %d, want 3", n)
	}

	latest, err := store.Latest(ctx, 2)
	if err != nil {
		t.Fatalf("Latest() failed: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("Expected 2 manifests, got %d", len(latest))
	}
	if latest[0].Timestamp != "20240101_000004" || latest[1].Timestamp != "20240101_000003" {
		t.Errorf("Expected newest first, got %s, %s", latest[0].Timestamp, latest[1].Timestamp)
	}

	// expired entries are skipped
	client.Del(ctx, Key("test", "stats", "20240101_000004"))
	latest, err = store.Latest(ctx, 3)
	if err != nil {
		t.Fatalf("Latest() failed: %v", err)
	}
	if len(latest) != 2 {
		t.Errorf("Expected 2 live manifests, got %d", len(latest))
	}
}
