package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock optionally serializes runs of the same workflow. Runs are
// independent by default; deployments that want at-most-one concurrent
// run per workflow inject a lock.
type RunLock interface {
	// Acquire takes the lock for a workflow and returns a release
	// function, or ErrRunInProgress when the lock is held.
	Acquire(ctx context.Context, workflowID string) (func(), error)
}

// MemoryLock serializes runs within a single process.
type MemoryLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemoryLock() *MemoryLock {
	return &MemoryLock{held: make(map[string]bool)}
}

func (l *MemoryLock) Acquire(_ context.Context, workflowID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[workflowID] {
		return nil, ErrRunInProgress
	}

	l.held[workflowID] = true

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		delete(l.held, workflowID)
	}, nil
}

const redisLockTTL = 5 * time.Minute

// RedisLock serializes runs across instances with a SETNX lease. The
// lease expires so a crashed holder cannot wedge the workflow.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client, ttl: redisLockTTL}
}

func (l *RedisLock) Acquire(ctx context.Context, workflowID string) (func(), error) {
	key := "hookline:runlock:" + workflowID

	acquired, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}

	if !acquired {
		return nil, ErrRunInProgress
	}

	return func() {
		l.client.Del(context.WithoutCancel(ctx), key)
	}, nil
}
