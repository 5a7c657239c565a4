package business

import (
	"context"
	"encoding/json"
	"hash/maphash"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const storeShardCount = 32 // power of 2 for cheap modulo

// KeyedStore is a lock-guarded key/value store. The hub keeps its shared
// mutable state (presence records, rate-limit counters) behind this interface
// so a process-local map can be swapped for a distributed cache without
// touching handler logic.
type KeyedStore[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// ForEach visits every live entry whose key starts with prefix. Returning
	// false from fn stops the walk.
	ForEach(ctx context.Context, prefix string, fn func(key string, value V) bool) error
}

type memoryEntry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiry
}

type storeShard[V any] struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry[V]
}

// memoryStore is a sharded in-process KeyedStore. Sharding keeps unrelated
// keys from contending on one lock.
type memoryStore[V any] struct {
	shards   [storeShardCount]*storeShard[V]
	hashSeed maphash.Seed
}

// NewMemoryStore creates a process-local KeyedStore.
func NewMemoryStore[V any]() KeyedStore[V] {
	store := &memoryStore[V]{hashSeed: maphash.MakeSeed()}
	for i := range storeShardCount {
		store.shards[i] = &storeShard[V]{entries: make(map[string]memoryEntry[V])}
	}
	return store
}

func (ms *memoryStore[V]) getShard(key string) *storeShard[V] {
	h := maphash.String(ms.hashSeed, key)
	return ms.shards[h&(storeShardCount-1)]
}

func (ms *memoryStore[V]) Get(_ context.Context, key string) (V, bool, error) {
	shard := ms.getShard(key)

	shard.mu.RLock()
	entry, ok := shard.entries[key]
	shard.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		var zero V
		return zero, false, nil
	}
	return entry.value, true, nil
}

func (ms *memoryStore[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	entry := memoryEntry[V]{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	shard := ms.getShard(key)
	shard.mu.Lock()
	shard.entries[key] = entry
	shard.mu.Unlock()
	return nil
}

func (ms *memoryStore[V]) Delete(_ context.Context, key string) error {
	shard := ms.getShard(key)
	shard.mu.Lock()
	delete(shard.entries, key)
	shard.mu.Unlock()
	return nil
}

func (ms *memoryStore[V]) ForEach(_ context.Context, prefix string, fn func(key string, value V) bool) error {
	now := time.Now()

	// Per-shard snapshots so fn never runs under a shard lock.
	for i := range storeShardCount {
		shard := ms.shards[i]

		shard.mu.RLock()
		snapshot := make(map[string]memoryEntry[V], len(shard.entries))
		for k, e := range shard.entries {
			if strings.HasPrefix(k, prefix) {
				snapshot[k] = e
			}
		}
		shard.mu.RUnlock()

		for k, e := range snapshot {
			if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
				continue
			}
			if !fn(k, e.value) {
				return nil
			}
		}
	}
	return nil
}

// redisStore is a Redis-backed KeyedStore for multi-process deployments.
// Values are stored as JSON.
type redisStore[V any] struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore creates a KeyedStore backed by Redis. keyPrefix namespaces
// the hub's keys within a shared instance.
func NewRedisStore[V any](client redis.UniversalClient, keyPrefix string) KeyedStore[V] {
	return &redisStore[V]{client: client, keyPrefix: keyPrefix}
}

func (rs *redisStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	raw, err := rs.client.Get(ctx, rs.keyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return zero, false, nil
		}
		return zero, false, err
	}

	var value V
	if err = json.Unmarshal(raw, &value); err != nil {
		return zero, false, err
	}
	return value, true, nil
}

func (rs *redisStore[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rs.client.Set(ctx, rs.keyPrefix+key, raw, ttl).Err()
}

func (rs *redisStore[V]) Delete(ctx context.Context, key string) error {
	return rs.client.Del(ctx, rs.keyPrefix+key).Err()
}

func (rs *redisStore[V]) ForEach(ctx context.Context, prefix string, fn func(key string, value V) bool) error {
	match := rs.keyPrefix + prefix + "*"

	var cursor uint64
	for {
		keys, next, err := rs.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return err
		}

		for _, fullKey := range keys {
			raw, getErr := rs.client.Get(ctx, fullKey).Bytes()
			if getErr != nil {
				if getErr == redis.Nil {
					continue
				}
				return getErr
			}
			var value V
			if err = json.Unmarshal(raw, &value); err != nil {
				continue
			}
			if !fn(strings.TrimPrefix(fullKey, rs.keyPrefix), value) {
				return nil
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
