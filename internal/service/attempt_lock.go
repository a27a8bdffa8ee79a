package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"course_quiz_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrLockTimeout = errors.New("timed out waiting for attempt lock")

// AttemptLocker serializes attempt creation for one user and quiz.
type AttemptLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func attemptLockKey(userID uint, quizID string) string {
	return fmt.Sprintf("quiz:attempt-lock:%d:%s", userID, quizID)
}

// RedisLocker holds the lock as a SET NX key with a TTL so a crashed holder
// cannot block the user for longer than TTL.
type RedisLocker struct {
	Redis         *redis.Client
	TTL           time.Duration
	RetryInterval time.Duration
	MaxWait       time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		Redis:         rdb,
		TTL:           ttl,
		RetryInterval: 25 * time.Millisecond,
		MaxWait:       ttl,
	}
}

// only the holder's token may delete the key
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	deadline := time.Now().Add(l.MaxWait)
	for {
		ok, err := l.Redis.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.RetryInterval):
		}
	}
}

// release runs on a background context so it still happens when the request
// context is already done.
func (l *RedisLocker) release(key, token string) {
	deleted, err := releaseScript.Run(context.Background(), l.Redis, []string{key}, token).Int()
	switch {
	case err != nil:
		logger.Log.Warn("release attempt lock failed, key expires with its ttl",
			zap.String("key", key), zap.Duration("ttl", l.TTL), zap.Error(err))
	case deleted == 0:
		logger.Log.Warn("attempt lock expired before release", zap.String("key", key))
	}
}

// LocalLocker is an in-process keyed mutex for single instance deployments.
// Entries are dropped as soon as nobody holds or waits for them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ll, ok := l.locks[key]
	if !ok {
		ll = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = ll
	}
	ll.refs++
	l.mu.Unlock()

	select {
	case ll.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, ll)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ll.ch
			l.release(key, ll)
		})
	}, nil
}

func (l *LocalLocker) release(key string, ll *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ll.refs--
	if ll.refs == 0 {
		delete(l.locks, key)
	}
}
