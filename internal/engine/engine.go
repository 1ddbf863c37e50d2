// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine orchestrates one evaluation: it validates and seeds the
// snapshot, extracts claims, runs every claim through the layers
// concurrently, and folds the results into an ArticleVerdict.
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/claim-engine/internal/claims"
	"github.com/pdiddy/claim-engine/internal/explain"
	"github.com/pdiddy/claim-engine/internal/factcheck"
	"github.com/pdiddy/claim-engine/internal/layers"
	"github.com/pdiddy/claim-engine/internal/nlp"
	"github.com/pdiddy/claim-engine/internal/scoring"
	"github.com/pdiddy/claim-engine/internal/seed"
	"github.com/pdiddy/claim-engine/internal/vcache"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// Components are the pluggable capabilities behind an Engine. Every field is
// optional: nil providers report neutral defaults, a nil Checker simulates
// external checks from the evaluation seed, and a nil Cache gets an
// in-memory VerificationCache owned by the Engine.
type Components struct {
	Segmenter  claims.Segmenter
	Linguistic layers.Provider
	Source     layers.Provider
	Temporal   layers.Provider
	Checker    layers.Checker
	Cache      vcache.Cache
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Engine evaluates content snapshots. It is safe for concurrent use; the
// VerificationCache is the only state shared between evaluations.
type Engine struct {
	cfg       types.EngineConfig
	extractor *claims.Extractor
	layers    []layers.Layer
	clock     func() time.Time
	logger    *zap.Logger
	closers   []io.Closer
}

// New wires an Engine from cfg and c.
func New(cfg types.EngineConfig, c Components) *Engine {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Cache == nil {
		c.Cache = vcache.NewMemory()
	}
	opts := layers.Options{Timeout: cfg.LayerTimeout, Logger: c.Logger}

	return &Engine{
		cfg:       cfg,
		extractor: claims.NewExtractor(c.Segmenter, cfg.LayerTimeout, c.Logger),
		layers: []layers.Layer{
			layers.NewMediaAnalyzer(),
			layers.NewLinguistic(c.Linguistic, opts),
			layers.NewSourceCredibility(c.Source, opts),
			layers.NewCrossSourceVerifier(c.Cache, c.Checker, c.Clock, opts),
			layers.NewTemporal(c.Temporal, opts),
		},
		clock:  c.Clock,
		logger: c.Logger,
	}
}

// FromConfig builds the Components cfg describes and returns the Engine.
// Callers must Close the Engine to release a Redis connection.
func FromConfig(cfg types.EngineConfig, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := Components{Logger: logger}
	var closers []io.Closer

	switch cfg.Cache.Backend {
	case "", types.CacheMemory:
		c.Cache = vcache.NewMemory()
	case types.CacheRedis:
		r, err := vcache.NewRedis(cfg.Cache.RedisURL, cfg.Cache.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("creating verification cache: %w", err)
		}
		c.Cache = r
		closers = append(closers, r)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}

	if cfg.Verification.Endpoint != "" {
		c.Checker = factcheck.New(cfg.Verification, logger)
	}

	switch {
	case cfg.NLP.Endpoint != "":
		client := nlp.New(cfg.NLP, logger)
		c.Segmenter = client
		c.Linguistic = client
	case cfg.Heuristics.Keywords:
		c.Linguistic = layers.KeywordLinguistics{}
	}

	if cfg.Reputation.Enabled {
		c.Source = layers.DomainReputation{High: cfg.Reputation.High, Medium: cfg.Reputation.Medium}
	}
	if cfg.Heuristics.Timeline {
		c.Temporal = layers.MediaTimeline{}
	}

	e := New(cfg, c)
	e.closers = closers
	return e, nil
}

// Close releases connections the Engine opened in FromConfig.
func (e *Engine) Close() error {
	var first error
	for _, c := range e.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Evaluate scores snap. It returns a *types.ValidationError for malformed
// input and ctx.Err() when ctx is cancelled before the verdict is complete;
// no partial verdict is ever returned. Every other failure degrades inside
// the affected layer.
func (e *Engine) Evaluate(ctx context.Context, snap types.ContentSnapshot) (*types.ArticleVerdict, error) {
	if err := snap.Validate(e.cfg.MaxTextBytes); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	s := seed.Derive(snap)
	fp := seed.Fingerprint(snap)
	log := e.logger.With(zap.String("fingerprint", fp))

	texts := e.extractor.Extract(ctx, snap.Text)
	log.Debug("claims extracted", zap.Int("count", len(texts)))

	results, err := e.evaluateClaims(ctx, s, snap, texts)
	if err != nil {
		log.Info("evaluation cancelled", zap.Error(err))
		return nil, err
	}

	score, unc, folded := scoring.Aggregate(results)
	v := &types.ArticleVerdict{
		EvaluationID:   uuid.NewString(),
		Fingerprint:    fp,
		Seed:           s,
		FinalScore:     score,
		Uncertainty:    unc,
		Claims:         folded,
		LayerBreakdown: scoring.Breakdown(folded),
		EvaluatedAt:    e.clock().UTC(),
	}
	explain.Compose(v)

	log.Info("evaluation complete",
		zap.String("evaluation_id", v.EvaluationID),
		zap.Int("claims", len(folded)),
		zap.Float64("final_score", score),
		zap.Float64("uncertainty", unc),
		zap.Duration("elapsed", time.Since(start)))
	return v, nil
}

// evaluateClaims fans claims out across at most MaxConcurrentClaims
// goroutines. Results land in index slots so claim order is preserved.
func (e *Engine) evaluateClaims(ctx context.Context, s uint64, snap types.ContentSnapshot, texts []string) ([]types.ClaimResult, error) {
	results := make([]types.ClaimResult, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	if limit := e.cfg.MaxConcurrentClaims; limit > 0 {
		g.SetLimit(limit)
	}
	for i, text := range texts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.evaluateClaim(gctx, s, snap, text)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancellation that races the last claim still voids the verdict.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// evaluateClaim runs the layers in order and appends the ensemble. Each
// layer draws from its own stream; a timed-out provider goroutine may still
// be running when the next layer starts.
func (e *Engine) evaluateClaim(ctx context.Context, s uint64, snap types.ContentSnapshot, claim string) types.ClaimResult {
	out := make([]types.LayerResult, 0, len(e.layers)+1)
	for _, l := range e.layers {
		in := layers.Input{
			Claim:     claim,
			Media:     snap.Media,
			Source:    snap.Source,
			Timestamp: snap.Timestamp,
			Rand:      seed.LayerRand(s, l.Name(), claim),
		}
		out = append(out, l.Evaluate(ctx, in))
	}
	return scoring.NewClaimResult(claim, out)
}
