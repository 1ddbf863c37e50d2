// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/claim-engine/pkg/types"
)

const defaultKeyPrefix = "claim-engine:verify:"

// Redis is a Cache shared between processes. Keys expire server-side after
// TTL; RecordedAt is still checked against the caller's clock so both
// backends honor the same contract.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis connects to the redis:// URL. The connection is lazy, so an
// unreachable server surfaces as Lookup/Store errors rather than here.
func NewRedis(url, prefix string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewRedisWithClient(redis.NewClient(opt), prefix), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Lookup fetches the entry for claim. A missing key is a miss, not an error.
func (r *Redis) Lookup(ctx context.Context, claim string, now time.Time) (types.CacheEntry, bool, error) {
	data, err := r.rdb.Get(ctx, r.key(claim)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.CacheEntry{}, false, nil
	}
	if err != nil {
		return types.CacheEntry{}, false, fmt.Errorf("redis get: %w", err)
	}

	var e types.CacheEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return types.CacheEntry{}, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	if e.Claim != claim || !fresh(e.RecordedAt, now) {
		return types.CacheEntry{}, false, nil
	}
	return e, true, nil
}

// Store writes the entry with a TTL expiry, replacing any existing value.
func (r *Redis) Store(ctx context.Context, claim string, result types.VerificationResult, now time.Time) error {
	data, err := json.Marshal(types.CacheEntry{Claim: claim, Result: result, RecordedAt: now})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(claim), data, TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// key hashes the claim so arbitrary sentence text yields a bounded key.
func (r *Redis) key(claim string) string {
	sum := sha256.Sum256([]byte(claim))
	return r.prefix + hex.EncodeToString(sum[:])
}
