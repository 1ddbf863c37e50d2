// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package nlp is a client for an NLP sidecar that segments text into
// sentences and classifies sentiment. It backs the claim extractor and the
// linguistic layer when an endpoint is configured.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/claim-engine/internal/claims"
	"github.com/pdiddy/claim-engine/internal/httputil"
	"github.com/pdiddy/claim-engine/internal/layers"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// Sentiment scores. Negative framing raises suspicion and lowers
// credibility.
const (
	negativeScore = 0.3
	positiveScore = 0.6
	otherScore    = 0.5
)

// Client talks to the sidecar. It implements claims.Segmenter and
// layers.Provider.
type Client struct {
	HTTP   *http.Client
	Logger *zap.Logger
	cfg    types.NLPConfig
}

var (
	_ claims.Segmenter = (*Client)(nil)
	_ layers.Provider  = (*Client)(nil)
)

// New returns a Client for cfg.Endpoint.
func New(cfg types.NLPConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &Client{
		HTTP:   &http.Client{Timeout: cfg.Timeout},
		Logger: logger,
		cfg:    cfg,
	}
}

type segmentRequest struct {
	Text string `json:"text"`
}

type segmentResponse struct {
	Sentences []string `json:"sentences"`
}

// Segment splits text into sentences.
func (c *Client) Segment(ctx context.Context, text string) ([]string, error) {
	var out segmentResponse
	if err := c.post(ctx, "/segment", segmentRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return out.Sentences, nil
}

type sentimentResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Assess classifies the sentiment of in.Claim and maps the label to a
// credibility score.
func (c *Client) Assess(ctx context.Context, in layers.Input) (layers.Assessment, error) {
	var out sentimentResponse
	if err := c.post(ctx, "/sentiment", segmentRequest{Text: in.Claim}, &out); err != nil {
		return layers.Assessment{}, err
	}

	label := strings.ToUpper(out.Label)
	a := layers.Assessment{
		Signals: map[string]any{
			"sentiment":            label,
			"sentiment_confidence": out.Score,
		},
	}
	switch label {
	case "NEGATIVE":
		a.Score = negativeScore
		a.Explanation = "Negative framing detected; credibility lowered."
	case "POSITIVE":
		a.Score = positiveScore
		a.Explanation = "Positive framing detected."
	default:
		a.Score = otherScore
		a.Explanation = "Neutral framing."
	}
	return a, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if c.cfg.Endpoint == "" {
		return fmt.Errorf("nlp endpoint not configured")
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("nlp %s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nlp %s returned HTTP %d: %s", path, resp.StatusCode, httputil.ErrorBody(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing nlp %s response: %w", path, err)
	}
	c.Logger.Debug("nlp call", zap.String("path", path))
	return nil
}
