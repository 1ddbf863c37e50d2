// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/claim-engine/internal/vcache"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// Checker classifies a claim against external fact-check or search sources.
type Checker interface {
	Check(ctx context.Context, in Input) (types.Agreement, error)
}

// RandomChecker simulates an external check by drawing uniformly from the
// three outcomes with the claim's private random source. Results are
// reproducible for a given evaluation seed.
type RandomChecker struct{}

var errNoRand = errors.New("simulated checker needs a random source")

// Check draws an outcome from in.Rand.
func (RandomChecker) Check(_ context.Context, in Input) (types.Agreement, error) {
	if in.Rand == nil {
		return "", errNoRand
	}
	return types.Agreements[in.Rand.IntN(len(types.Agreements))], nil
}

// CrossSourceVerifier scores a claim by external agreement, reusing
// outcomes recorded in the shared VerificationCache for up to vcache.TTL.
type CrossSourceVerifier struct {
	cache   vcache.Cache
	checker Checker
	clock   func() time.Time
	opts    Options
}

// NewCrossSourceVerifier wires the verifier. A nil cache disables caching, a
// nil checker selects RandomChecker and a nil clock selects time.Now.
func NewCrossSourceVerifier(cache vcache.Cache, checker Checker, clock func() time.Time, opts Options) *CrossSourceVerifier {
	if checker == nil {
		checker = RandomChecker{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &CrossSourceVerifier{cache: cache, checker: checker, clock: clock, opts: opts.withDefaults()}
}

// Name returns the layer name.
func (*CrossSourceVerifier) Name() string { return types.LayerCrossSource }

// Evaluate looks the claim up in the cache and falls back to a fresh check on
// a miss, an expired entry, or a cache error.
func (v *CrossSourceVerifier) Evaluate(ctx context.Context, in Input) types.LayerResult {
	now := v.clock()
	log := v.opts.Logger.With(zap.String("layer", v.Name()))

	if v.cache != nil {
		e, ok, err := v.cache.Lookup(ctx, in.Claim, now)
		switch {
		case err != nil:
			log.Warn("verification cache unavailable, treating as miss", zap.Error(err))
		case ok && e.Result.ExternalAgreement.Valid():
			log.Debug("verification cache hit", zap.String("agreement", string(e.Result.ExternalAgreement)))
			return agreementResult(e.Result.ExternalAgreement)
		}
	}

	agreement, err := callWithTimeout(ctx, v.opts.Timeout, func(ctx context.Context) (types.Agreement, error) {
		return v.checker.Check(ctx, in)
	})
	if err == nil && !agreement.Valid() {
		err = fmt.Errorf("checker returned unknown outcome %q", agreement)
	}
	if err != nil {
		return degraded(v.Name(), err, v.opts.Logger, map[string]any{
			types.SignalExternalAgreement: string(types.AgreementNoMatch),
		})
	}

	if v.cache != nil {
		if err := v.cache.Store(ctx, in.Claim, types.VerificationResult{ExternalAgreement: agreement}, now); err != nil {
			log.Warn("storing verification result", zap.Error(err))
		}
	}
	return agreementResult(agreement)
}

func agreementResult(a types.Agreement) types.LayerResult {
	r := types.LayerResult{
		Name:    types.LayerCrossSource,
		Signals: map[string]any{types.SignalExternalAgreement: string(a)},
	}
	switch a {
	case types.AgreementConfirmed:
		r.Score, r.Uncertainty = 0.9, 0.1
		r.Explanation = "External sources confirm this claim."
	case types.AgreementDisputed:
		r.Score, r.Uncertainty = 0.1, 0.1
		r.Explanation = "External sources dispute this claim."
	default:
		r.Score, r.Uncertainty = 0.5, 0.2
		r.Explanation = "No matching external coverage found."
	}
	return r
}
