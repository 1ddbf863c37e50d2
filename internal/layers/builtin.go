// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// sensationalTerms and urgencyTerms are phrases common in misleading posts.
var (
	sensationalTerms = []string{
		"immediate action", "limited time", "exclusive", "unbelievable",
		"banned", "shocking", "hidden", "fake", "hoax", "conspiracy",
	}
	urgencyTerms = []string{
		"urgent", "breaking", "must read", "don't share", "do not share",
		"share before", "secret",
	}
)

// KeywordLinguistics is a dependency-free linguistic provider that lowers the
// score for each sensational or urgency phrase in the claim.
type KeywordLinguistics struct{}

// Assess counts phrase hits. Each hit costs 0.1, floored at 0.1.
func (KeywordLinguistics) Assess(_ context.Context, in Input) (Assessment, error) {
	text := strings.ToLower(in.Claim)
	sensational := countTerms(text, sensationalTerms)
	urgency := countTerms(text, urgencyTerms)
	hits := sensational + urgency

	score := 0.5 - 0.1*float64(hits)
	if score < 0.1 {
		score = 0.1
	}
	explanation := "No sensational or urgency language detected."
	if hits > 0 {
		explanation = fmt.Sprintf("Claim uses %d sensational or urgency phrase(s).", hits)
	}
	return Assessment{
		Score: score,
		Signals: map[string]any{
			"sensational_terms": sensational,
			"urgency_terms":     urgency,
		},
		Explanation: explanation,
	}, nil
}

func countTerms(text string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			n++
		}
	}
	return n
}

// DomainReputation scores the declared source by credibility tier.
type DomainReputation struct {
	High   []string
	Medium []string
}

// Assess maps the source domain to 0.8 (high), 0.6 (medium) or 0.4 (unknown).
// An undeclared source is neutral.
func (d DomainReputation) Assess(_ context.Context, in Input) (Assessment, error) {
	domain := SourceDomain(in.Source)
	if domain == "" {
		return Assessment{
			Score:       0.5,
			Signals:     map[string]any{"tier": "none"},
			Explanation: "No source declared.",
		}, nil
	}

	tier, score := "unknown", 0.4
	switch {
	case matchDomain(domain, d.High):
		tier, score = "high", 0.8
	case matchDomain(domain, d.Medium):
		tier, score = "medium", 0.6
	}
	return Assessment{
		Score:       score,
		Signals:     map[string]any{"domain": domain, "tier": tier},
		Explanation: fmt.Sprintf("Source %s has %s credibility.", domain, tier),
	}, nil
}

// SourceDomain extracts the lower-cased host from a URL or bare domain,
// without a leading "www.".
func SourceDomain(source string) string {
	s := strings.TrimSpace(strings.ToLower(source))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil {
			s = u.Hostname()
		}
	} else if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, ":"); i >= 0 && !strings.Contains(s, "]") {
		s = s[:i]
	}
	return strings.TrimPrefix(s, "www.")
}

func matchDomain(domain string, list []string) bool {
	for _, d := range list {
		d = strings.ToLower(d)
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// MediaTimeline checks attached media against the submission time: media
// captured, or depicting an event, after the content was published is
// inconsistent.
type MediaTimeline struct{}

// Assess scores 0.2 when any media time is after the snapshot timestamp, 0.6
// when every comparable time precedes it and 0.5 when nothing is comparable.
func (MediaTimeline) Assess(_ context.Context, in Input) (Assessment, error) {
	if in.Timestamp.IsZero() {
		return Assessment{
			Score:       0.5,
			Signals:     map[string]any{"checked_times": 0},
			Explanation: "Submission time unknown; timeline not checked.",
		}, nil
	}
	published := float64(in.Timestamp.Unix())

	checked, future := 0, 0
	for _, m := range in.Media {
		for _, ts := range []*float64{m.Timestamp, m.EventTime} {
			if ts == nil {
				continue
			}
			checked++
			if *ts > published {
				future++
			}
		}
	}

	a := Assessment{
		Signals: map[string]any{"checked_times": checked, "future_times": future},
	}
	switch {
	case checked == 0:
		a.Score, a.Explanation = 0.5, "No media times to compare against the submission."
	case future > 0:
		a.Score, a.Explanation = 0.2, "Media postdates the submission it supposedly illustrates."
	default:
		a.Score, a.Explanation = 0.6, "Media times precede the submission."
	}
	return a, nil
}
