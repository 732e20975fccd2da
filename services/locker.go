package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("timed out waiting for user lock")

// UserLocker serialises progression writes for a single user. Different
// users never contend.
type UserLocker interface {
	Lock(ctx context.Context, userID uint) (unlock func(), err error)
}

// memoryLocker holds one mutex per user in this process.
type memoryLocker struct {
	mu    sync.Mutex
	locks map[uint]*userMutex
}

type userMutex struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker returns a single-instance UserLocker.
func NewMemoryLocker() UserLocker {
	return &memoryLocker{locks: map[uint]*userMutex{}}
}

func (l *memoryLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &userMutex{ch: make(chan struct{}, 1)}
		l.locks[userID] = m
	}
	m.refs++
	l.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, m, false)
		return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(userID, m, true) }) }, nil
}

func (l *memoryLocker) release(userID uint, m *userMutex, held bool) {
	if held {
		<-m.ch
	}
	l.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(l.locks, userID)
	}
	l.mu.Unlock()
}

// releaseScript deletes the lock only if it is still owned by the caller.
var releaseScript = redis.NewScript(`if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`)

// redisLocker is a best-effort distributed lock using SET NX PX with an
// owner token, for deployments running several instances.
type redisLocker struct {
	rc       *redis.Client
	ttl      time.Duration
	retry    time.Duration
	fallback UserLocker
}

// NewRedisLocker returns a UserLocker backed by Redis. Redis errors fall back
// to an in-process lock.
func NewRedisLocker(rc *redis.Client, ttl time.Duration) UserLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &redisLocker{rc: rc, ttl: ttl, retry: 25 * time.Millisecond, fallback: NewMemoryLocker()}
}

func (l *redisLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	key := fmt.Sprintf("lock:progress:user:%d", userID)
	token := uuid.NewString()

	for {
		ok, err := l.rc.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
			}
			return l.fallback.Lock(ctx, userID)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(ctx, l.rc, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}
