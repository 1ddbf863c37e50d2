// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"math"
	"time"
)

// Layer names in pipeline order. ClaimResult.Layers always follows this order.
const (
	LayerMedia       = "Input & Media Analysis"
	LayerLinguistic  = "Linguistic & Semantic Analysis"
	LayerSource      = "Source Credibility"
	LayerCrossSource = "Cross-Source Verification"
	LayerTemporal    = "Temporal Consistency"
	LayerEnsemble    = "Ensemble & Conflict Resolution"
)

// LayerOrder lists every layer name, ensemble last.
var LayerOrder = []string{
	LayerMedia,
	LayerLinguistic,
	LayerSource,
	LayerCrossSource,
	LayerTemporal,
	LayerEnsemble,
}

// SignalExternalAgreement is the cross-source signal key the explainability
// step partitions claims on.
const SignalExternalAgreement = "external_agreement"

// Agreement is the outcome of checking a claim against external sources.
type Agreement string

const (
	AgreementConfirmed Agreement = "confirmed"
	AgreementDisputed  Agreement = "disputed"
	AgreementNoMatch   Agreement = "no_match"
)

// Agreements lists every outcome in a fixed order. The simulated checker
// draws from this slice, so reordering it changes seeded results.
var Agreements = []Agreement{AgreementConfirmed, AgreementDisputed, AgreementNoMatch}

// Valid reports whether a is one of the three known outcomes.
func (a Agreement) Valid() bool {
	switch a {
	case AgreementConfirmed, AgreementDisputed, AgreementNoMatch:
		return true
	}
	return false
}

// LayerResult is one layer's assessment of one claim. It is built once and
// never mutated.
type LayerResult struct {
	Name        string         `json:"name" yaml:"name"`
	Score       float64        `json:"score" yaml:"score"`
	Signals     map[string]any `json:"signals" yaml:"signals"`
	Explanation string         `json:"explanation" yaml:"explanation"`
	Uncertainty float64        `json:"uncertainty" yaml:"uncertainty"`
}

// ClaimResult carries the six layer results for a claim (five analytical
// layers plus the ensemble) and the folded score.
type ClaimResult struct {
	Claim       string        `json:"claim" yaml:"claim"`
	Layers      []LayerResult `json:"layers" yaml:"layers"`
	FinalScore  float64       `json:"final_score" yaml:"final_score"`
	Uncertainty float64       `json:"uncertainty" yaml:"uncertainty"`
}

// Layer returns the result named name, or false when absent.
func (c ClaimResult) Layer(name string) (LayerResult, bool) {
	for _, l := range c.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return LayerResult{}, false
}

// TopSignal is one flattened signal from the explainability trail.
type TopSignal struct {
	Claim  string `json:"claim" yaml:"claim"`
	Layer  string `json:"layer" yaml:"layer"`
	Signal string `json:"signal" yaml:"signal"`
	Value  any    `json:"value" yaml:"value"`
}

// SourceAgreement partitions claims by the cross-source outcome.
type SourceAgreement struct {
	Agreed    []string `json:"agreed" yaml:"agreed"`
	Disagreed []string `json:"disagreed" yaml:"disagreed"`
	Uncertain []string `json:"uncertain" yaml:"uncertain"`
}

// LayerSummary aggregates one layer across all claims of an article.
type LayerSummary struct {
	Layer          string  `json:"layer" yaml:"layer"`
	MeanScore      float64 `json:"mean_score" yaml:"mean_score"`
	MaxUncertainty float64 `json:"max_uncertainty" yaml:"max_uncertainty"`
}

// ArticleVerdict is the stable contract returned by Evaluate. Two evaluations
// of equal snapshots under the same configuration agree on every field except
// EvaluationID and EvaluatedAt, which describe the run rather than the
// content.
type ArticleVerdict struct {
	// EvaluationID uniquely identifies this evaluation run. It is fresh on
	// every call and never derived from the snapshot.
	EvaluationID string `json:"evaluation_id" yaml:"evaluation_id"`

	// Fingerprint is the hex SHA-256 of the snapshot's canonical form.
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`

	// Seed scoped all simulated randomness in this evaluation.
	Seed uint64 `json:"seed" yaml:"seed"`

	FinalScore      float64         `json:"final_score" yaml:"final_score"`
	Uncertainty     float64         `json:"uncertainty" yaml:"uncertainty"`
	Claims          []ClaimResult   `json:"claims" yaml:"claims"`
	LayerBreakdown  []LayerSummary  `json:"layer_breakdown" yaml:"layer_breakdown"`
	TopSignals      []TopSignal     `json:"top_signals" yaml:"top_signals"`
	SourceAgreement SourceAgreement `json:"source_agreement" yaml:"source_agreement"`
	Explanation     string          `json:"explanation" yaml:"explanation"`

	// EvaluatedAt is the engine clock reading when the verdict was built. Like
	// EvaluationID it is run metadata; callers comparing verdicts ignore it.
	EvaluatedAt time.Time `json:"evaluated_at" yaml:"evaluated_at"`
}

// VerificationResult is the cached outcome of an external check.
type VerificationResult struct {
	ExternalAgreement Agreement `json:"external_agreement"`
}

// CacheEntry is a VerificationCache record keyed by claim text.
type CacheEntry struct {
	Claim      string             `json:"claim"`
	Result     VerificationResult `json:"result"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// Clamp01 pins v to [0,1]. NaN maps to 0.5, the neutral score.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	return math.Max(0, math.Min(1, v))
}
