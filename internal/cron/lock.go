package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Locker hands out a lease per job so only one cron-worker replica runs it per interval.
type Locker interface {
	Acquire(ctx context.Context, job string, ttl time.Duration) (Lease, bool, error)
}

// Lease is held for its TTL unless released early.
type Lease interface {
	Release(ctx context.Context) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
}

// RedisLocker leases jobs with SET NX plus an owner token.
type RedisLocker struct {
	client redisStore
	keyFor func(job string) string
}

func NewRedisLocker(client redisStore, keyFor func(job string) string) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if keyFor == nil {
		return nil, errors.New("lock key builder is required")
	}
	return &RedisLocker{client: client, keyFor: keyFor}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, job string, ttl time.Duration) (Lease, bool, error) {
	if ttl <= 0 {
		return nil, false, fmt.Errorf("lease ttl must be positive for %s", job)
	}
	key := l.keyFor(job)
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, owner, ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{client: l.client, key: key, owner: owner}, true, nil
}

type redisLease struct {
	client redisStore
	key    string
	owner  string
}

func (l *redisLease) Release(ctx context.Context) error {
	if _, err := l.client.ReleaseIfOwner(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
