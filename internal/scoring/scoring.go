// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scoring folds layer results into a claim score and claim results
// into an article score. Uncertainty propagates by maximum, never by mean:
// one unreliable signal caps the confidence of everything built on it.
package scoring

import (
	"github.com/pdiddy/claim-engine/pkg/types"
)

const (
	// ambiguousLow and ambiguousHigh bound the open interval of scores that
	// carry no directional signal.
	ambiguousLow  = 0.4
	ambiguousHigh = 0.6

	// uncertainCutoff is the uncertainty above which a claim is unreliable.
	uncertainCutoff = 0.7
)

const ensembleExplanation = "Aggregated layer scores by mean; uncertainty is the maximum across layers."

// Ensemble combines one claim's layer results into the ensemble layer result
// and the claim's final score and uncertainty: the arithmetic mean of the
// scores and the maximum of the uncertainties.
func Ensemble(layers []types.LayerResult) (types.LayerResult, float64, float64) {
	score, uncertainty := 0.5, 1.0
	if len(layers) > 0 {
		var sum, peak float64
		for _, l := range layers {
			sum += l.Score
			if l.Uncertainty > peak {
				peak = l.Uncertainty
			}
		}
		score = types.Clamp01(sum / float64(len(layers)))
		uncertainty = types.Clamp01(peak)
	}

	return types.LayerResult{
		Name:        types.LayerEnsemble,
		Score:       score,
		Signals:     map[string]any{},
		Explanation: ensembleExplanation,
		Uncertainty: uncertainty,
	}, score, uncertainty
}

// NewClaimResult runs Ensemble over layers and returns the ClaimResult with
// the ensemble result appended after the analytical layers.
func NewClaimResult(claim string, layers []types.LayerResult) types.ClaimResult {
	ens, score, uncertainty := Ensemble(layers)
	all := make([]types.LayerResult, 0, len(layers)+1)
	all = append(all, layers...)
	all = append(all, ens)
	return types.ClaimResult{
		Claim:       claim,
		Layers:      all,
		FinalScore:  score,
		Uncertainty: uncertainty,
	}
}

// Aggregate folds claim results into the article score and uncertainty.
//
// No claims yields (0.0, 1.0). When every claim is unreliable (uncertainty
// above 0.7) or every claim is ambiguous (score strictly inside (0.4, 0.6))
// the verdict is insufficient evidence, (0.5, 1.0). Otherwise the score is
// the mean of claim scores and the uncertainty their maximum.
func Aggregate(claims []types.ClaimResult) (float64, float64, []types.ClaimResult) {
	if len(claims) == 0 {
		return 0.0, 1.0, []types.ClaimResult{}
	}

	allUncertain, allAmbiguous := true, true
	var sum, peak float64
	for _, c := range claims {
		if c.Uncertainty <= uncertainCutoff {
			allUncertain = false
		}
		if !Ambiguous(c.FinalScore) {
			allAmbiguous = false
		}
		sum += c.FinalScore
		if c.Uncertainty > peak {
			peak = c.Uncertainty
		}
	}

	if allUncertain || allAmbiguous {
		return 0.5, 1.0, claims
	}
	return types.Clamp01(sum / float64(len(claims))), types.Clamp01(peak), claims
}

// Ambiguous reports whether score lies strictly inside (0.4, 0.6).
func Ambiguous(score float64) bool {
	return score > ambiguousLow && score < ambiguousHigh
}

// Insufficient reports whether a single claim carries no usable signal:
// uncertainty above 0.7 or an ambiguous score.
func Insufficient(c types.ClaimResult) bool {
	return c.Uncertainty > uncertainCutoff || Ambiguous(c.FinalScore)
}

// Breakdown summarizes each layer across claims, in pipeline order. Layers
// absent from every claim are omitted.
func Breakdown(claims []types.ClaimResult) []types.LayerSummary {
	out := []types.LayerSummary{}
	if len(claims) == 0 {
		return out
	}
	for _, name := range types.LayerOrder {
		var sum, peak float64
		n := 0
		for _, c := range claims {
			l, ok := c.Layer(name)
			if !ok {
				continue
			}
			n++
			sum += l.Score
			if l.Uncertainty > peak {
				peak = l.Uncertainty
			}
		}
		if n == 0 {
			continue
		}
		out = append(out, types.LayerSummary{
			Layer:          name,
			MeanScore:      sum / float64(n),
			MaxUncertainty: peak,
		})
	}
	return out
}
