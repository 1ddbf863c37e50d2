// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package claims splits submitted text into the ordered claims the engine
// scores. Sentence segmentation is a pluggable capability; punctuation
// splitting is always available as the fallback.
package claims

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// minTokens is the exclusive lower bound on whitespace tokens per claim.
const minTokens = 3

// boundary matches sentence-ending punctuation followed by whitespace.
var boundary = regexp.MustCompile(`[.!?]\s+`)

// Segmenter splits text into sentences. An NLP sidecar implements it; tests
// supply stubs.
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]string, error)
}

// Extractor turns raw text into claims. A nil Segmenter selects the
// punctuation strategy directly.
type Extractor struct {
	segmenter Segmenter
	timeout   time.Duration
	logger    *zap.Logger
}

// DefaultSegmentTimeout bounds a segmenter call when NewExtractor is given a
// non-positive timeout.
const DefaultSegmentTimeout = 2 * time.Second

// NewExtractor returns an Extractor. seg and logger may be nil. A segmenter
// that does not answer within timeout is abandoned in favor of the
// punctuation split.
func NewExtractor(seg Segmenter, timeout time.Duration, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultSegmentTimeout
	}
	return &Extractor{segmenter: seg, timeout: timeout, logger: logger}
}

// Extract returns the claims in text in order of appearance. It never fails:
// any segmenter error, panic or deadline falls back to punctuation splitting. An empty
// result is legal and means no claim survived filtering.
func (e *Extractor) Extract(ctx context.Context, text string) []string {
	if e.segmenter != nil {
		sentences, err := e.segment(ctx, text)
		if err == nil {
			return filter(sentences)
		}
		e.logger.Debug("segmenter unavailable, using punctuation split", zap.Error(err))
	}
	return filter(SplitSentences(text))
}

type segmentOutcome struct {
	sentences []string
	err       error
}

// segment runs the segmenter on its own goroutine so a sidecar that ignores
// ctx cannot hold the caller past the deadline. The channel is buffered so
// an abandoned call still exits.
func (e *Extractor) segment(ctx context.Context, text string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan segmentOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- segmentOutcome{err: fmt.Errorf("segmenter panic: %v", r)}
			}
		}()
		sentences, err := e.segmenter.Segment(ctx, text)
		done <- segmentOutcome{sentences: sentences, err: err}
	}()

	select {
	case out := <-done:
		return out.sentences, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("segmenter: %w", ctx.Err())
	}
}

// SplitSentences splits on '.', '!' or '?' followed by whitespace. The
// punctuation stays with the sentence it ends.
func SplitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range boundary.FindAllStringIndex(text, -1) {
		out = append(out, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// filter trims candidates and keeps those with more than minTokens tokens.
func filter(candidates []string) []string {
	claims := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if len(strings.Fields(c)) > minTokens {
			claims = append(claims, c)
		}
	}
	return claims
}
