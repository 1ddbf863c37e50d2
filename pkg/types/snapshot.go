// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the claim-engine pipeline:
// the content snapshot that enters an evaluation, the per-layer and per-claim
// results it produces, the article verdict returned to callers, and the
// configuration that shapes an Engine.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrInvalidSnapshot is the sentinel wrapped by every ValidationError.
var ErrInvalidSnapshot = errors.New("invalid content snapshot")

// ValidationError reports a malformed ContentSnapshot. It is the only error
// Evaluate returns besides context cancellation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidSnapshot, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSnapshot }

// MediaItem describes one piece of media attached to a submission. Times are
// seconds on any shared epoch; only their difference matters.
type MediaItem struct {
	// Timestamp is when the media was captured or first published.
	Timestamp *float64 `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`

	// EventTime is when the event the media claims to depict took place.
	EventTime *float64 `json:"event_time,omitempty" yaml:"event_time,omitempty"`

	// ReverseSearchHint is an optional pointer from a reverse image search.
	ReverseSearchHint string `json:"reverse_search_hint,omitempty" yaml:"reverse_search_hint,omitempty"`
}

// ContentSnapshot is the immutable input to one evaluation.
type ContentSnapshot struct {
	// Text is the submitted article or post body.
	Text string `json:"text" yaml:"text"`

	// Media lists attached media in submission order.
	Media []MediaItem `json:"media" yaml:"media"`

	// Source is the declared origin, usually a URL or bare domain.
	Source string `json:"source" yaml:"source"`

	// Timestamp is when the content was submitted or published.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Validate checks the preconditions Evaluate relies on. maxTextBytes <= 0
// disables the length check.
func (s ContentSnapshot) Validate(maxTextBytes int) error {
	if !utf8.ValidString(s.Text) {
		return &ValidationError{Field: "text", Reason: "not valid UTF-8"}
	}
	if maxTextBytes > 0 && len(s.Text) > maxTextBytes {
		return &ValidationError{Field: "text", Reason: fmt.Sprintf("%d bytes exceeds limit of %d", len(s.Text), maxTextBytes)}
	}
	if !utf8.ValidString(s.Source) {
		return &ValidationError{Field: "source", Reason: "not valid UTF-8"}
	}
	for i, m := range s.Media {
		if m.Timestamp != nil && !isFinite(*m.Timestamp) {
			return &ValidationError{Field: fmt.Sprintf("media[%d].timestamp", i), Reason: "not a finite number"}
		}
		if m.EventTime != nil && !isFinite(*m.EventTime) {
			return &ValidationError{Field: fmt.Sprintf("media[%d].event_time", i), Reason: "not a finite number"}
		}
	}
	return nil
}

// CanonicalForm renders the snapshot as the byte string that identifies it:
// text, the JSON rendering of media, source, and the UTC timestamp in
// RFC 3339 form (empty when unset), concatenated in that order.
func (s ContentSnapshot) CanonicalForm() string {
	var b strings.Builder
	b.WriteString(s.Text)
	media := s.Media
	if media == nil {
		media = []MediaItem{}
	}
	// MediaItem holds only pointers to finite floats and strings, so
	// marshaling cannot fail for a validated snapshot.
	data, _ := json.Marshal(media)
	b.Write(data)
	b.WriteString(s.Source)
	if !s.Timestamp.IsZero() {
		b.WriteString(s.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	return b.String()
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Float returns a pointer to f, for building MediaItem literals.
func Float(f float64) *float64 { return &f }
