package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	l := NewRedisLocker(rdb, 10*time.Second)
	l.RetryInterval = 5 * time.Millisecond
	l.MaxWait = 50 * time.Millisecond
	return l, mr
}

func TestRedisLocker_Exclusive(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()
	key := attemptLockKey(1, "quiz")

	unlock, err := l.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if ttl := mr.TTL(key); ttl != 10*time.Second {
		t.Errorf("lock ttl = %v, want 10s", ttl)
	}

	if _, err := l.Lock(ctx, key); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("second Lock: got %v, want ErrLockTimeout", err)
	}
	other, err := l.Lock(ctx, attemptLockKey(2, "quiz"))
	if err != nil {
		t.Fatalf("Lock of another user: %v", err)
	}
	other()

	unlock()
	if mr.Exists(key) {
		t.Fatal("key still present after unlock")
	}
	again, err := l.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock after unlock: %v", err)
	}
	again()
}

func TestRedisLocker_ExpiredHolderKeepsNewLock(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()
	key := attemptLockKey(1, "quiz")

	stale, err := l.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	mr.FastForward(11 * time.Second)

	fresh, err := l.Lock(ctx, key)
	if err != nil {
		t.Fatalf("Lock after expiry: %v", err)
	}
	holder, _ := mr.Get(key)

	stale()
	if got, _ := mr.Get(key); got != holder {
		t.Fatalf("stale release removed the new holder's lock (value %q, want %q)", got, holder)
	}
	fresh()
	if mr.Exists(key) {
		t.Error("key still present after the holder unlocked")
	}
}

func TestRedisLocker_ReleaseAfterServerLoss(t *testing.T) {
	l, mr := newRedisLocker(t)
	unlock, err := l.Lock(context.Background(), attemptLockKey(1, "quiz"))
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	mr.Close()
	// the failure is logged; unlock must not panic or block
	unlock()
}

func TestRedisLocker_ContextCanceled(t *testing.T) {
	l, _ := newRedisLocker(t)
	l.MaxWait = time.Second
	key := attemptLockKey(1, "quiz")

	unlock, err := l.Lock(context.Background(), key)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = l.Lock(ctx, key)
	if err == nil || errors.Is(err, ErrLockTimeout) {
		t.Errorf("got %v, want the context error", err)
	}
	if waited := time.Since(start); waited > 500*time.Millisecond {
		t.Errorf("Lock waited %v after the context ended", waited)
	}
}
