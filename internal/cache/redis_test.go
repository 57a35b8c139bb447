package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/steppeindustrial/corpsite/internal/cache"
)

func newRedisStore(t *testing.T) (*cache.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisStore(client, "test:"), server
}

func TestRedisStoreGenerations(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisStore(t)

	generation, err := store.Generation(ctx, "news")
	if err != nil || generation != 0 {
		t.Fatalf("expected generation 0, got %d %v", generation, err)
	}
	for want := uint64(1); want <= 2; want++ {
		got, err := store.Bump(ctx, "news")
		if err != nil || got != want {
			t.Fatalf("bump: expected %d, got %d %v", want, got, err)
		}
	}
	if generation, _ := store.Generation(ctx, "news"); generation != 2 {
		t.Fatalf("expected generation 2, got %d", generation)
	}
	if generation, _ := store.Generation(ctx, "projects"); generation != 0 {
		t.Fatalf("expected other namespaces untouched, got %d", generation)
	}
	if value, err := server.Get("test:gen:news"); err != nil || value != "2" {
		t.Fatalf("expected generation key under prefix, got %q %v", value, err)
	}
}

func TestRedisStoreGetSetWithTTL(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisStore(t)

	if _, ok, err := store.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected clean miss, got %v %v", ok, err)
	}
	if err := store.Set(ctx, "list:en", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if value, ok, err := store.Get(ctx, "list:en"); err != nil || !ok || string(value) != "payload" {
		t.Fatalf("expected hit, got %q %v %v", value, ok, err)
	}

	server.FastForward(2 * time.Minute)
	if _, ok, _ := store.Get(ctx, "list:en"); ok {
		t.Fatalf("expected the entry to expire with its ttl")
	}
}

func TestRedisStoreDeleteByPrefixSpansBatches(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisStore(t)

	const total = 450
	for i := 0; i < total; i++ {
		if err := store.Set(ctx, fmt.Sprintf("news:%d", i), []byte("x"), time.Hour); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if err := store.Set(ctx, "projects:1", []byte("keep"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := store.DeleteByPrefix(ctx, "news:"); err != nil {
		t.Fatalf("delete by prefix: %v", err)
	}
	if keys := server.Keys(); len(keys) != 1 || keys[0] != "test:projects:1" {
		t.Fatalf("expected only the other namespace to survive, got %d keys", len(keys))
	}
	if _, ok, _ := store.Get(ctx, "projects:1"); !ok {
		t.Fatalf("expected unrelated entry to remain")
	}
}
