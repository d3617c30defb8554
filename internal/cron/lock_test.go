package cron

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryLockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestRedisLockExclusiveAndOwnerChecked(t *testing.T) {
	store := &memoryLockStore{data: map[string]string{}}
	a, err := NewRedisLock(store, "dd:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	b, _ := NewRedisLock(store, "dd:lock:cron", time.Minute)
	ctx := context.Background()

	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatalf("first acquire should succeed")
	}
	if ok, _ := b.Acquire(ctx); ok {
		t.Fatalf("second acquire should fail")
	}
	if err := b.Release(ctx); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, err := store.Get(ctx, "dd:lock:cron"); err != nil {
		t.Fatalf("non-owner release must not delete the lock")
	}

	// Simulate expiry and takeover by b; a must not release b's lock.
	_ = store.Del(ctx, "dd:lock:cron")
	if ok, _ := b.Acquire(ctx); !ok {
		t.Fatalf("b should take the expired lock")
	}
	if err := a.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if _, err := store.Get(ctx, "dd:lock:cron"); err != nil {
		t.Fatalf("stale owner deleted the new lock")
	}
	if err := b.Release(ctx); err != nil {
		t.Fatalf("owner release: %v", err)
	}
	if _, err := store.Get(ctx, "dd:lock:cron"); err != redis.Nil {
		t.Fatalf("expected lock removed, got %v", err)
	}
}
