// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package explain derives the human-readable trail attached to a verdict:
// the flattened signal list, the source-agreement partition and the summary
// explanation.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/claim-engine/internal/scoring"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// NoClaims is the explanation for an article with no extractable claims.
const NoClaims = "No claims detected. Insufficient evidence."

// Compose fills the explainability fields of v from v.Claims.
func Compose(v *types.ArticleVerdict) {
	v.TopSignals = TopSignals(v.Claims)
	v.SourceAgreement = SourceAgreement(v.Claims)
	v.Explanation = Explanation(v.Claims)
}

// TopSignals flattens every signal of every layer of every claim, in claim
// order, then layer order, then signal name order.
func TopSignals(claims []types.ClaimResult) []types.TopSignal {
	out := []types.TopSignal{}
	for _, c := range claims {
		for _, l := range c.Layers {
			for _, k := range sortedKeys(l.Signals) {
				out = append(out, types.TopSignal{
					Claim:  c.Claim,
					Layer:  l.Name,
					Signal: k,
					Value:  l.Signals[k],
				})
			}
		}
	}
	return out
}

// SourceAgreement partitions claims on the cross-source layer's
// external_agreement signal: confirmed is agreed, disputed is disagreed, and
// anything else, including a missing layer, is uncertain.
func SourceAgreement(claims []types.ClaimResult) types.SourceAgreement {
	sa := types.SourceAgreement{Agreed: []string{}, Disagreed: []string{}, Uncertain: []string{}}
	for _, c := range claims {
		var agreement string
		if l, ok := c.Layer(types.LayerCrossSource); ok {
			agreement = fmt.Sprint(l.Signals[types.SignalExternalAgreement])
		}
		switch types.Agreement(agreement) {
		case types.AgreementConfirmed:
			sa.Agreed = append(sa.Agreed, c.Claim)
		case types.AgreementDisputed:
			sa.Disagreed = append(sa.Disagreed, c.Claim)
		default:
			sa.Uncertain = append(sa.Uncertain, c.Claim)
		}
	}
	return sa
}

// Explanation joins one note per claim. A claim with uncertainty above 0.7
// or a score inside (0.4, 0.6) gets an insufficient-evidence note, the rest
// report their score and uncertainty to two decimals.
func Explanation(claims []types.ClaimResult) string {
	if len(claims) == 0 {
		return NoClaims
	}
	notes := make([]string, 0, len(claims))
	for _, c := range claims {
		if scoring.Insufficient(c) {
			notes = append(notes, fmt.Sprintf("Claim '%s': Insufficient evidence (score: %.2f, uncertainty: %.2f).",
				c.Claim, c.FinalScore, c.Uncertainty))
			continue
		}
		notes = append(notes, fmt.Sprintf("Claim '%s': score: %.2f, uncertainty: %.2f.",
			c.Claim, c.FinalScore, c.Uncertainty))
	}
	return strings.Join(notes, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
