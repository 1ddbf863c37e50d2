// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package layers implements the five analytical layers that score a claim.
// Each layer returns a LayerResult and never an error: provider failures,
// panics and timeouts degrade to a neutral result so one missing signal can
// not abort an evaluation.
package layers

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/claim-engine/pkg/types"
)

const (
	// neutralScore is reported whenever a layer has no usable signal.
	neutralScore = 0.5

	// degradedUncertainty is the uncertainty of a result produced after a
	// provider failure.
	degradedUncertainty = 0.3

	// defaultTimeout bounds provider calls when Options.Timeout is unset.
	defaultTimeout = 2 * time.Second
)

// Input is the context every layer receives for one claim.
type Input struct {
	Claim     string
	Media     []types.MediaItem
	Source    string
	Timestamp time.Time

	// Rand is private to this layer, this claim and this evaluation.
	// Simulated providers draw from it. A provider must not retain it past
	// its own call.
	Rand *rand.Rand
}

// Layer scores one claim.
type Layer interface {
	Name() string
	Evaluate(ctx context.Context, in Input) types.LayerResult
}

// Assessment is what a signal provider reports for one claim.
type Assessment struct {
	Score       float64
	Signals     map[string]any
	Explanation string
}

// Provider is the capability behind the linguistic, source-credibility and
// temporal layers. Implementations may block on I/O and must honor ctx.
type Provider interface {
	Assess(ctx context.Context, in Input) (Assessment, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, in Input) (Assessment, error)

// Assess calls f.
func (f ProviderFunc) Assess(ctx context.Context, in Input) (Assessment, error) {
	return f(ctx, in)
}

// Options carries settings shared by all layers.
type Options struct {
	// Timeout bounds each provider or checker call.
	Timeout time.Duration

	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// errPanic marks a recovered provider panic.
var errPanic = errors.New("provider panicked")

// callWithTimeout runs fn under a derived deadline. fn runs on its own
// goroutine so a provider that ignores ctx cannot hold the claim past the
// deadline; the buffered channel lets that goroutine finish and exit.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("%w: %v", errPanic, r)}
			}
		}()
		v, err := fn(ctx)
		ch <- outcome{val: v, err: err}
	}()

	select {
	case o := <-ch:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// degradeReason classifies err for the degraded signal.
func degradeReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, errPanic):
		return "panic"
	case errors.Is(err, errInvalidScore):
		return "invalid_score"
	default:
		return "error"
	}
}

// degraded builds the neutral result reported after a failure and logs it.
func degraded(name string, err error, logger *zap.Logger, extra map[string]any) types.LayerResult {
	reason := degradeReason(err)
	logger.Warn("layer degraded to neutral",
		zap.String("layer", name),
		zap.String("reason", reason),
		zap.Error(err))

	signals := map[string]any{"degraded": reason}
	for k, v := range extra {
		signals[k] = v
	}
	return types.LayerResult{
		Name:        name,
		Score:       neutralScore,
		Signals:     signals,
		Explanation: fmt.Sprintf("%s unavailable (%s); neutral score applied.", name, reason),
		Uncertainty: degradedUncertainty,
	}
}
