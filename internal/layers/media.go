// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layers

import (
	"context"
	"math"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// mismatchWindow is the largest allowed gap between a media item's capture
// time and the event it depicts, in seconds.
const mismatchWindow = 86400

// MediaAnalyzer flags media reused out of context: an item whose capture
// timestamp and event time are more than a day apart.
type MediaAnalyzer struct{}

// NewMediaAnalyzer returns the input and media layer.
func NewMediaAnalyzer() *MediaAnalyzer { return &MediaAnalyzer{} }

// Name returns the layer name.
func (*MediaAnalyzer) Name() string { return types.LayerMedia }

// Evaluate scores 0.7 when no item mismatches and 0.3 otherwise.
func (m *MediaAnalyzer) Evaluate(_ context.Context, in Input) types.LayerResult {
	mismatches := 0
	for _, item := range in.Media {
		if contextMismatch(item) {
			mismatches++
		}
	}

	r := types.LayerResult{
		Name:        m.Name(),
		Score:       0.7,
		Uncertainty: 0.3,
		Signals: map[string]any{
			"context_mismatch": mismatches > 0,
			"media_count":      len(in.Media),
		},
		Explanation: "No media context mismatch detected.",
	}
	if len(in.Media) > 0 {
		r.Uncertainty = 0.15
	} else {
		r.Explanation = "No media attached; context check not applicable."
	}
	if mismatches > 0 {
		r.Score = 0.3
		r.Signals["mismatched_items"] = mismatches
		r.Explanation = "Media capture time differs from the reported event by more than a day; possible reuse out of context."
	}
	return r
}

func contextMismatch(item types.MediaItem) bool {
	if item.Timestamp == nil || item.EventTime == nil {
		return false
	}
	return math.Abs(*item.Timestamp-*item.EventTime) > mismatchWindow
}
