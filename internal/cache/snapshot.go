// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// snapshot.go caches serialized corpus analysis snapshots in Valkey so the
// preview endpoint does not rescan the corpus on every request. Generation
// invalidates the cache after it ingests new history.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix = "snapshot:"

	// DefaultSnapshotTTL is how long an analysis snapshot stays cached.
	DefaultSnapshotTTL = 10 * time.Minute
)

// SnapshotCache stores opaque serialized snapshots under short keys.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache creates a snapshot cache backed by the given Valkey client.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl == 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

// Get returns the cached bytes for key. Errors count as a miss.
func (sc *SnapshotCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := sc.client.Get(ctx, snapshotKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("snapshot cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("snapshot cache hit", "key", key)
	return val, true
}

// Set stores data under key with the configured TTL.
func (sc *SnapshotCache) Set(ctx context.Context, key string, data []byte) {
	if err := sc.client.Set(ctx, snapshotKeyPrefix+key, data, sc.ttl).Err(); err != nil {
		slog.Warn("snapshot cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes every snapshot by scanning for the prefix.
func (sc *SnapshotCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := sc.client.Scan(ctx, cursor, snapshotKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("snapshot cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := sc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("snapshot cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("snapshot cache cleared", "deleted", deleted)
	}
}
