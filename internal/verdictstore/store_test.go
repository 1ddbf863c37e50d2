// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verdictstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/claim-engine/pkg/types"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{
		Path: filepath.Join(t.TempDir(), "nested", "verdicts.db"),
		TTL:  time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func verdict(fp string, score float64) *types.ArticleVerdict {
	return &types.ArticleVerdict{
		EvaluationID: "eval-" + fp,
		Fingerprint:  fp,
		Seed:         42,
		FinalScore:   score,
		Uncertainty:  0.2,
		Claims:       []types.ClaimResult{{Claim: "The sky is green.", FinalScore: score, Uncertainty: 0.2}},
		Explanation:  "Claim 'The sky is green.': score: 0.70, uncertainty: 0.20.",
		EvaluatedAt:  t0,
	}
}

func TestStore_GetWithinTTL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Put(ctx, verdict("aa", 0.7), t0))

	tests := []struct {
		name    string
		at      time.Duration
		wantHit bool
	}{
		{"immediately", 0, true},
		{"half TTL", 30 * time.Minute, true},
		{"at TTL", time.Hour, false},
		{"after TTL", 2 * time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok, err := s.Get(ctx, "aa", t0.Add(tt.at))
			require.NoError(t, err)
			assert.Equal(t, tt.wantHit, ok)
			if ok {
				assert.Equal(t, "eval-aa", v.EvaluationID)
				assert.Equal(t, uint64(42), v.Seed)
				assert.Equal(t, 0.7, v.FinalScore)
				require.Len(t, v.Claims, 1)
				assert.True(t, t0.Equal(v.EvaluatedAt))
			}
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	v, ok, err := s.Get(context.Background(), "nope", t0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestStore_PutReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Put(ctx, verdict("aa", 0.7), t0))
	require.NoError(t, s.Put(ctx, verdict("aa", 0.2), t0.Add(50*time.Minute)))

	v, ok, err := s.Get(ctx, "aa", t0.Add(90*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.2, v.FinalScore)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_PutRequiresFingerprint(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Put(context.Background(), &types.ArticleVerdict{}, t0))
}

func TestStore_ListAndPurge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Put(ctx, verdict("old", 0.5), t0))
	require.NoError(t, s.Put(ctx, verdict("new", 0.9), t0.Add(45*time.Minute)))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new", entries[0].Fingerprint)
	assert.Equal(t, "old", entries[1].Fingerprint)
	assert.Equal(t, 0.9, entries[0].FinalScore)

	n, err := s.Purge(ctx, t0.Add(70*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Fingerprint)
}

func TestNewStore_Defaults(t *testing.T) {
	_, err := NewStore(types.StoreConfig{})
	assert.Error(t, err)

	s, err := NewStore(types.StoreConfig{Path: filepath.Join(t.TempDir(), "v.db")})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, defaultTTL, s.TTL())
}
