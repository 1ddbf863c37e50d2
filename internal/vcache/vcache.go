// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vcache stores recent cross-source verification outcomes keyed by
// claim text. Entries live for TTL; a fresh check replaces an entry, it is
// never merged.
package vcache

import (
	"context"
	"sync"
	"time"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// TTL is the lifetime of a cache entry.
const TTL = 60 * time.Second

// Cache is the contract CrossSourceVerifier consumes. Implementations must be
// safe for concurrent use. A Lookup error is treated by callers as a miss.
type Cache interface {
	Lookup(ctx context.Context, claim string, now time.Time) (types.CacheEntry, bool, error)
	Store(ctx context.Context, claim string, result types.VerificationResult, now time.Time) error
}

// fresh reports whether an entry recorded at recordedAt is still valid at now.
func fresh(recordedAt, now time.Time) bool {
	return now.Sub(recordedAt) < TTL
}

// Memory is an in-process Cache guarded by a RWMutex. Concurrent misses on
// the same claim both write; the last write wins. Store sweeps expired
// entries at most once per TTL, so claims that are never looked up again do
// not accumulate.
type Memory struct {
	mu        sync.RWMutex
	entries   map[string]types.CacheEntry
	lastSweep time.Time
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]types.CacheEntry)}
}

// Lookup returns the entry for claim if it is younger than TTL at now.
// Expired entries are evicted.
func (m *Memory) Lookup(_ context.Context, claim string, now time.Time) (types.CacheEntry, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[claim]
	m.mu.RUnlock()
	if !ok {
		return types.CacheEntry{}, false, nil
	}
	if fresh(e.RecordedAt, now) {
		return e, true, nil
	}

	m.mu.Lock()
	// Re-check: another evaluator may have stored a fresh entry meanwhile.
	if cur, ok := m.entries[claim]; ok && !fresh(cur.RecordedAt, now) {
		delete(m.entries, claim)
	}
	m.mu.Unlock()
	return types.CacheEntry{}, false, nil
}

// Store records result for claim at now, replacing any previous entry.
func (m *Memory) Store(_ context.Context, claim string, result types.VerificationResult, now time.Time) error {
	m.mu.Lock()
	if now.Sub(m.lastSweep) >= TTL {
		m.sweepLocked(now)
	}
	m.entries[claim] = types.CacheEntry{Claim: claim, Result: result, RecordedAt: now}
	m.mu.Unlock()
	return nil
}

// Sweep evicts every entry expired at now and returns how many were removed.
func (m *Memory) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(now)
}

func (m *Memory) sweepLocked(now time.Time) int {
	m.lastSweep = now
	removed := 0
	for k, e := range m.entries {
		if !fresh(e.RecordedAt, now) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
