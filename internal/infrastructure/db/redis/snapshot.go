package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kathulis/tabkeeper/internal/core/domain"
)

const (
	snapshotKey        = "customers:snapshot"
	versionKey         = "customers:snapshot:ver"
	defaultSnapshotTTL = 5 * time.Minute
)

// setIfVersion stores ARGV[2] under KEYS[2] only while KEYS[1] still holds
// ARGV[1]. A missing version counts as 0.
var setIfVersion = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if (v or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// SnapshotCache keeps the full customer list as one JSON value.
// Keys: customers:snapshot (list), customers:snapshot:ver (write counter)
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache wraps client. A non-positive ttl uses five minutes.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

// Get returns the cached list. ok is false on a miss.
func (s *SnapshotCache) Get(ctx context.Context) ([]*domain.Customer, bool, error) {
	raw, err := s.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("snapshot get: %w", err)
	}

	var customers []*domain.Customer
	if err := json.Unmarshal(raw, &customers); err != nil {
		return nil, false, fmt.Errorf("snapshot decode: %w", err)
	}
	return customers, true, nil
}

// Version returns the current write counter; 0 when no write happened yet.
func (s *SnapshotCache) Version(ctx context.Context) (int64, error) {
	v, err := s.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("snapshot version: %w", err)
	}
	return v, nil
}

// Set stores customers, read while the counter was version, until the TTL
// passes or Invalidate is called. It reports false without writing when the
// counter has moved on.
func (s *SnapshotCache) Set(ctx context.Context, version int64, customers []*domain.Customer) (bool, error) {
	raw, err := json.Marshal(customers)
	if err != nil {
		return false, fmt.Errorf("snapshot encode: %w", err)
	}
	n, err := setIfVersion.Run(ctx, s.client,
		[]string{versionKey, snapshotKey},
		strconv.FormatInt(version, 10), raw, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("snapshot set: %w", err)
	}
	return n == 1, nil
}

// Invalidate bumps the write counter and drops the cached list.
func (s *SnapshotCache) Invalidate(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Del(ctx, snapshotKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("snapshot invalidate: %w", err)
	}
	return nil
}
