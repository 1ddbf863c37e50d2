// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layers

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/pdiddy/claim-engine/pkg/types"
)

var errInvalidScore = errors.New("provider returned a non-finite score")

// ProviderLayer is a layer whose score comes from an optional Provider. With
// no provider it reports the neutral default.
type ProviderLayer struct {
	name        string
	uncertainty float64
	neutral     string
	provider    Provider
	opts        Options
}

// NewLinguistic returns the linguistic and semantic layer. p may be nil.
func NewLinguistic(p Provider, opts Options) *ProviderLayer {
	return &ProviderLayer{
		name:        types.LayerLinguistic,
		uncertainty: 0.15,
		neutral:     "No linguistic model configured; neutral score applied.",
		provider:    p,
		opts:        opts.withDefaults(),
	}
}

// NewSourceCredibility returns the source credibility layer. p may be nil.
func NewSourceCredibility(p Provider, opts Options) *ProviderLayer {
	return &ProviderLayer{
		name:        types.LayerSource,
		uncertainty: 0.1,
		neutral:     "No source reputation data configured; neutral score applied.",
		provider:    p,
		opts:        opts.withDefaults(),
	}
}

// NewTemporal returns the temporal consistency layer. p may be nil.
func NewTemporal(p Provider, opts Options) *ProviderLayer {
	return &ProviderLayer{
		name:        types.LayerTemporal,
		uncertainty: 0.1,
		neutral:     "No event timeline configured; neutral score applied.",
		provider:    p,
		opts:        opts.withDefaults(),
	}
}

// Name returns the layer name.
func (l *ProviderLayer) Name() string { return l.name }

// Evaluate asks the provider for an assessment under the layer timeout.
func (l *ProviderLayer) Evaluate(ctx context.Context, in Input) types.LayerResult {
	if l.provider == nil {
		return types.LayerResult{
			Name:        l.name,
			Score:       neutralScore,
			Signals:     map[string]any{},
			Explanation: l.neutral,
			Uncertainty: l.uncertainty,
		}
	}

	a, err := callWithTimeout(ctx, l.opts.Timeout, func(ctx context.Context) (Assessment, error) {
		return l.provider.Assess(ctx, in)
	})
	if err == nil && (math.IsNaN(a.Score) || math.IsInf(a.Score, 0)) {
		err = errInvalidScore
	}
	if err != nil {
		return degraded(l.name, err, l.opts.Logger, nil)
	}

	signals := a.Signals
	if signals == nil {
		signals = map[string]any{}
	}
	l.opts.Logger.Debug("layer assessed",
		zap.String("layer", l.name),
		zap.Float64("score", a.Score))
	return types.LayerResult{
		Name:        l.name,
		Score:       types.Clamp01(a.Score),
		Signals:     signals,
		Explanation: a.Explanation,
		Uncertainty: l.uncertainty,
	}
}
