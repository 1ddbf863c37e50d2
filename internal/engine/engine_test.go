// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/claim-engine/internal/explain"
	"github.com/pdiddy/claim-engine/internal/layers"
	"github.com/pdiddy/claim-engine/pkg/types"
)

const twoClaims = "The sky is green. The president resigned yesterday."

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return t0 }

func newEngine(c Components) *Engine {
	if c.Clock == nil {
		c.Clock = fixedClock
	}
	return New(types.DefaultEngineConfig(), c)
}

func assertVerdictInRange(t *testing.T, v *types.ArticleVerdict) {
	t.Helper()
	inRange := func(name string, f float64) {
		assert.GreaterOrEqual(t, f, 0.0, name)
		assert.LessOrEqual(t, f, 1.0, name)
	}
	inRange("final_score", v.FinalScore)
	inRange("uncertainty", v.Uncertainty)
	for _, c := range v.Claims {
		inRange(c.Claim, c.FinalScore)
		inRange(c.Claim, c.Uncertainty)
		for _, l := range c.Layers {
			inRange(l.Name, l.Score)
			inRange(l.Name, l.Uncertainty)
		}
	}
}

func TestEvaluate_EndToEnd(t *testing.T) {
	e := newEngine(Components{})
	v, err := e.Evaluate(context.Background(), types.ContentSnapshot{Text: twoClaims, Source: "example.com"})
	require.NoError(t, err)

	require.Len(t, v.Claims, 2)
	assert.Equal(t, "The sky is green.", v.Claims[0].Claim)
	assert.Equal(t, "The president resigned yesterday.", v.Claims[1].Claim)
	for _, c := range v.Claims {
		names := make([]string, len(c.Layers))
		for i, l := range c.Layers {
			names[i] = l.Name
		}
		assert.Equal(t, types.LayerOrder, names)
	}

	assert.NotEmpty(t, v.EvaluationID)
	assert.Len(t, v.Fingerprint, 64)
	assert.Equal(t, t0, v.EvaluatedAt)
	assert.Len(t, v.LayerBreakdown, len(types.LayerOrder))
	assert.NotEmpty(t, v.TopSignals)
	assert.Equal(t, 2, len(v.SourceAgreement.Agreed)+len(v.SourceAgreement.Disagreed)+len(v.SourceAgreement.Uncertain))
	assert.Contains(t, v.Explanation, "Claim 'The sky is green.'")
	assertVerdictInRange(t, v)
}

func TestEvaluate_Deterministic(t *testing.T) {
	snap := types.ContentSnapshot{
		Text:      twoClaims + " Markets closed sharply lower on Friday.",
		Source:    "https://www.example.com/news/1",
		Timestamp: t0,
		Media:     []types.MediaItem{{Timestamp: types.Float(1000), EventTime: types.Float(900)}},
	}

	// Fresh engines have cold caches, so every cross-source outcome is drawn
	// from the seed.
	a, err := newEngine(Components{}).Evaluate(context.Background(), snap)
	require.NoError(t, err)
	b, err := newEngine(Components{}).Evaluate(context.Background(), snap)
	require.NoError(t, err)

	ignore := cmpopts.IgnoreFields(types.ArticleVerdict{}, "EvaluationID")
	if diff := cmp.Diff(a, b, ignore); diff != "" {
		t.Errorf("verdicts differ across runs (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, a.EvaluationID, b.EvaluationID)

	// A warm cache replays the same outcomes.
	e := newEngine(Components{})
	first, err := e.Evaluate(context.Background(), snap)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), snap)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second, ignore); diff != "" {
		t.Errorf("warm cache changed verdict (-cold +warm):\n%s", diff)
	}

	// Run metadata is the only thing a different clock may change.
	later := newEngine(Components{Clock: func() time.Time { return t0.Add(time.Hour) }})
	c, err := later.Evaluate(context.Background(), snap)
	require.NoError(t, err)
	assert.NotEqual(t, a.EvaluatedAt, c.EvaluatedAt)
	runMeta := cmpopts.IgnoreFields(types.ArticleVerdict{}, "EvaluationID", "EvaluatedAt")
	if diff := cmp.Diff(a, c, runMeta); diff != "" {
		t.Errorf("clock changed verdict content (-first +later):\n%s", diff)
	}
}

func TestEvaluate_DuplicateClaimsAgree(t *testing.T) {
	claim := "The bridge collapsed this morning."
	text := strings.Repeat(claim+" ", 12)
	v, err := newEngine(Components{}).Evaluate(context.Background(), types.ContentSnapshot{Text: text})
	require.NoError(t, err)
	require.Len(t, v.Claims, 12)
	for _, c := range v.Claims[1:] {
		assert.Equal(t, v.Claims[0], c)
	}
}

func TestEvaluate_NoClaims(t *testing.T) {
	tests := []string{"", "Hi.", "Too short. Also short!"}
	for _, text := range tests {
		t.Run(fmt.Sprintf("%q", text), func(t *testing.T) {
			v, err := newEngine(Components{}).Evaluate(context.Background(), types.ContentSnapshot{Text: text})
			require.NoError(t, err)
			assert.Equal(t, 0.0, v.FinalScore)
			assert.Equal(t, 1.0, v.Uncertainty)
			assert.Empty(t, v.Claims)
			assert.Equal(t, explain.NoClaims, v.Explanation)
		})
	}
}

func TestEvaluate_ContextMismatch(t *testing.T) {
	snap := types.ContentSnapshot{
		Text:  twoClaims,
		Media: []types.MediaItem{{Timestamp: types.Float(200000), EventTime: types.Float(0)}},
	}
	v, err := newEngine(Components{}).Evaluate(context.Background(), snap)
	require.NoError(t, err)
	for _, c := range v.Claims {
		l, ok := c.Layer(types.LayerMedia)
		require.True(t, ok)
		assert.Equal(t, 0.3, l.Score)
		assert.Equal(t, true, l.Signals["context_mismatch"])
	}
}

func TestEvaluate_InvalidSnapshot(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.MaxTextBytes = 16
	e := New(cfg, Components{})

	tests := []struct {
		name  string
		snap  types.ContentSnapshot
		field string
	}{
		{"invalid utf-8", types.ContentSnapshot{Text: "bad \xff"}, "text"},
		{"too long", types.ContentSnapshot{Text: strings.Repeat("a", 17)}, "text"},
		{"bad source", types.ContentSnapshot{Text: "ok", Source: "\xfe"}, "source"},
		{"nan media", types.ContentSnapshot{Media: []types.MediaItem{{EventTime: types.Float(nanValue())}}}, "media[0].event_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.Evaluate(context.Background(), tt.snap)
			assert.Nil(t, v)
			require.ErrorIs(t, err, types.ErrInvalidSnapshot)
			var ve *types.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}

// blockingSegmenter never answers before its context ends.
type blockingSegmenter struct{}

func (blockingSegmenter) Segment(ctx context.Context, _ string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// blockingProvider waits for its context and counts calls in flight.
type blockingProvider struct {
	started  chan struct{}
	once     sync.Once
	inFlight atomic.Int32
	peak     atomic.Int32
	hold     time.Duration
}

func (p *blockingProvider) Assess(ctx context.Context, _ layers.Input) (layers.Assessment, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	if p.started != nil {
		p.once.Do(func() { close(p.started) })
	}

	var wait <-chan time.Time
	if p.hold > 0 {
		wait = time.After(p.hold)
	}
	select {
	case <-ctx.Done():
		return layers.Assessment{}, ctx.Err()
	case <-wait:
		return layers.Assessment{Score: 0.6}, nil
	}
}

func TestEvaluate_CancellationReturnsNoVerdict(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := types.DefaultEngineConfig()
	cfg.LayerTimeout = 10 * time.Second
	p := &blockingProvider{started: make(chan struct{})}
	e := New(cfg, Components{Linguistic: p, Clock: fixedClock})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-p.started
		cancel()
	}()

	v, err := e.Evaluate(ctx, types.ContentSnapshot{Text: twoClaims})
	assert.Nil(t, v)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluate_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, err := newEngine(Components{}).Evaluate(ctx, types.ContentSnapshot{Text: twoClaims})
	assert.Nil(t, v)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluate_ProviderTimeoutDegrades(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.LayerTimeout = 20 * time.Millisecond
	e := New(cfg, Components{Source: &blockingProvider{}, Clock: fixedClock})

	v, err := e.Evaluate(context.Background(), types.ContentSnapshot{Text: twoClaims})
	require.NoError(t, err)
	for _, c := range v.Claims {
		l, ok := c.Layer(types.LayerSource)
		require.True(t, ok)
		assert.Equal(t, 0.5, l.Score)
		assert.Equal(t, 0.3, l.Uncertainty)
		assert.Equal(t, "timeout", l.Signals["degraded"])
	}
}

func TestEvaluate_LayerStreamsIndependent(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.LayerTimeout = 20 * time.Millisecond
	snap := types.ContentSnapshot{Text: twoClaims, Source: "example.com"}

	base, err := New(cfg, Components{Clock: fixedClock}).Evaluate(context.Background(), snap)
	require.NoError(t, err)

	tests := []struct {
		name     string
		provider layers.Provider
	}{
		{"greedy provider", layers.ProviderFunc(func(_ context.Context, in layers.Input) (layers.Assessment, error) {
			for range 100 {
				in.Rand.Uint64()
			}
			return layers.Assessment{Score: 0.5}, nil
		})},
		{"provider drawing after its deadline", layers.ProviderFunc(func(ctx context.Context, in layers.Input) (layers.Assessment, error) {
			<-ctx.Done()
			for range 1000 {
				in.Rand.Uint64()
			}
			return layers.Assessment{}, ctx.Err()
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(cfg, Components{Linguistic: tt.provider, Clock: fixedClock}).Evaluate(context.Background(), snap)
			require.NoError(t, err)
			require.Len(t, v.Claims, len(base.Claims))
			for i, c := range v.Claims {
				want, ok := base.Claims[i].Layer(types.LayerCrossSource)
				require.True(t, ok)
				got, ok := c.Layer(types.LayerCrossSource)
				require.True(t, ok)
				assert.Equal(t, want, got, c.Claim)
			}
		})
	}
}

func TestEvaluate_SegmenterDeadlineFallsBack(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.LayerTimeout = 20 * time.Millisecond
	e := New(cfg, Components{Segmenter: blockingSegmenter{}, Clock: fixedClock})

	v, err := e.Evaluate(context.Background(), types.ContentSnapshot{Text: twoClaims})
	require.NoError(t, err)
	require.Len(t, v.Claims, 2)
	assert.Equal(t, "The sky is green.", v.Claims[0].Claim)
	assert.Equal(t, "The president resigned yesterday.", v.Claims[1].Claim)
}

func TestEvaluate_BoundsConcurrency(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.MaxConcurrentClaims = 2
	p := &blockingProvider{hold: 10 * time.Millisecond}
	e := New(cfg, Components{Temporal: p, Clock: fixedClock})

	var sentences []string
	for i := range 6 {
		sentences = append(sentences, fmt.Sprintf("Claim number %d is right here.", i))
	}
	v, err := e.Evaluate(context.Background(), types.ContentSnapshot{Text: strings.Join(sentences, " ")})
	require.NoError(t, err)

	require.Len(t, v.Claims, 6)
	for i, c := range v.Claims {
		assert.Equal(t, sentences[i], c.Claim)
	}
	assert.LessOrEqual(t, p.peak.Load(), int32(2))
	assert.GreaterOrEqual(t, p.peak.Load(), int32(1))
}

func TestEvaluate_RangeInvariant(t *testing.T) {
	words := []string{"the", "minister", "shocking", "breaking", "announced", "report", "urgent", "city", "flood", "today"}
	r := rand.New(rand.NewPCG(7, 11))
	cfg := types.DefaultEngineConfig()
	cfg.Reputation.Enabled = true
	cfg.Heuristics.Keywords = true
	cfg.Heuristics.Timeline = true
	e, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	defer e.Close()

	for range 25 {
		var b strings.Builder
		for range 1 + r.IntN(5) {
			for range 1 + r.IntN(8) {
				b.WriteString(words[r.IntN(len(words))])
				b.WriteByte(' ')
			}
			b.WriteString(". ")
		}
		var media []types.MediaItem
		for range r.IntN(3) {
			media = append(media, types.MediaItem{
				Timestamp: types.Float(r.Float64() * 1e10),
				EventTime: types.Float(r.Float64() * 1e10),
			})
		}
		v, err := e.Evaluate(context.Background(), types.ContentSnapshot{
			Text:      b.String(),
			Media:     media,
			Source:    []string{"", "bbc.com", "kantipur.com", "blog.example"}[r.IntN(4)],
			Timestamp: time.Unix(r.Int64N(2e9), 0),
		})
		require.NoError(t, err)
		assertVerdictInRange(t, v)
	}
}

func TestFromConfig(t *testing.T) {
	t.Run("builtin providers", func(t *testing.T) {
		cfg := types.DefaultEngineConfig()
		cfg.Reputation.Enabled = true
		cfg.Heuristics.Keywords = true
		e, err := FromConfig(cfg, nil)
		require.NoError(t, err)
		defer e.Close()

		v, err := e.Evaluate(context.Background(), types.ContentSnapshot{
			Text:   "Shocking news the minister resigned.",
			Source: "https://www.bbc.com/news",
		})
		require.NoError(t, err)
		require.Len(t, v.Claims, 1)
		src, _ := v.Claims[0].Layer(types.LayerSource)
		assert.Equal(t, 0.8, src.Score)
		ling, _ := v.Claims[0].Layer(types.LayerLinguistic)
		assert.Less(t, ling.Score, 0.5)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := types.DefaultEngineConfig()
		cfg.Cache.Backend = "memcached"
		_, err := FromConfig(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("bad redis url", func(t *testing.T) {
		cfg := types.DefaultEngineConfig()
		cfg.Cache.Backend = types.CacheRedis
		cfg.Cache.RedisURL = "::not a url"
		_, err := FromConfig(cfg, nil)
		assert.Error(t, err)
	})
}

// memStore is a VerdictStore backed by a map.
type memStore struct {
	mu   sync.Mutex
	m    map[string]*types.ArticleVerdict
	puts int
	fail error
}

func (s *memStore) Get(_ context.Context, fp string, _ time.Time) (*types.ArticleVerdict, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, false, s.fail
	}
	v, ok := s.m[fp]
	return v, ok, nil
}

func (s *memStore) Put(_ context.Context, v *types.ArticleVerdict, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.puts++
	s.m[v.Fingerprint] = v
	return nil
}

func TestEvaluateStored(t *testing.T) {
	e := newEngine(Components{})
	store := &memStore{m: map[string]*types.ArticleVerdict{}}
	snap := types.ContentSnapshot{Text: twoClaims, Source: "example.com"}

	first, hit, err := e.EvaluateStored(context.Background(), store, snap)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, store.puts)

	second, hit, err := e.EvaluateStored(context.Background(), store, snap)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.EvaluationID, second.EvaluationID)
	assert.Equal(t, 1, store.puts)
}

func TestEvaluateStored_StoreFailureStillEvaluates(t *testing.T) {
	e := newEngine(Components{})
	store := &memStore{m: map[string]*types.ArticleVerdict{}, fail: errors.New("disk full")}

	v, hit, err := e.EvaluateStored(context.Background(), store, types.ContentSnapshot{Text: twoClaims})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, v.Claims, 2)
}
