// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package factcheck queries a claim-review search API and classifies the
// first matching review as confirmed, disputed or no match. The request and
// response shapes follow the Google Fact Check Tools claims:search endpoint.
package factcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/claim-engine/internal/httputil"
	"github.com/pdiddy/claim-engine/internal/layers"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// DefaultEndpoint is the public claims:search endpoint.
const DefaultEndpoint = "https://factchecktools.googleapis.com/v1alpha1/claims:search"

var errNoEndpoint = errors.New("fact-check endpoint not configured")

// Ratings that dispute or confirm a claim. Matching is on the lower-cased
// textual rating; disputed terms are checked first so "mostly false" is not
// read as confirmation.
var (
	disputedTerms  = []string{"false", "fake", "misleading", "incorrect", "inaccurate", "untrue", "pants on fire", "hoax"}
	confirmedTerms = []string{"true", "correct", "accurate"}
)

// Client checks claims against a fact-check API. It implements
// layers.Checker.
type Client struct {
	HTTP    *http.Client
	Limiter *rate.Limiter
	Logger  *zap.Logger
	cfg     types.VerificationConfig
}

var _ layers.Checker = (*Client)(nil)

// New returns a Client for cfg. An empty cfg.Endpoint selects
// DefaultEndpoint. The limiter allows cfg.RequestsPerSecond with cfg.Burst;
// a non-positive rate disables limiting.
func New(cfg types.VerificationConfig, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		HTTP:    &http.Client{Timeout: cfg.Timeout},
		Limiter: rate.NewLimiter(limit, burst),
		Logger:  logger,
		cfg:     cfg,
	}
}

// Check searches for reviews of in.Claim and classifies the first one.
func (c *Client) Check(ctx context.Context, in layers.Input) (types.Agreement, error) {
	if c.cfg.Endpoint == "" {
		return "", errNoEndpoint
	}
	if err := c.Limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	params := url.Values{"query": {in.Claim}, "pageSize": {"1"}}
	if c.cfg.APIKey != "" {
		params.Set("key", c.cfg.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.cfg.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("fact-check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fact-check API returned HTTP %d: %s", resp.StatusCode, httputil.ErrorBody(resp))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("parsing fact-check response: %w", err)
	}

	rating := sr.firstRating()
	agreement := Classify(rating)
	c.Logger.Debug("fact-check result",
		zap.String("rating", rating),
		zap.String("agreement", string(agreement)))
	return agreement, nil
}

// Classify maps a textual rating to an agreement outcome.
func Classify(rating string) types.Agreement {
	r := strings.ToLower(strings.TrimSpace(rating))
	if r == "" {
		return types.AgreementNoMatch
	}
	for _, t := range disputedTerms {
		if strings.Contains(r, t) {
			return types.AgreementDisputed
		}
	}
	for _, t := range confirmedTerms {
		if strings.Contains(r, t) {
			return types.AgreementConfirmed
		}
	}
	return types.AgreementNoMatch
}

type searchResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
			} `json:"publisher"`
			URL           string `json:"url"`
			TextualRating string `json:"textualRating"`
		} `json:"claimReview"`
	} `json:"claims"`
}

func (r searchResponse) firstRating() string {
	for _, c := range r.Claims {
		for _, rev := range c.ClaimReview {
			if rev.TextualRating != "" {
				return rev.TextualRating
			}
		}
	}
	return ""
}
