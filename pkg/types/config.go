// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by capability clients that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "claim-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retries on HTTP 429/503 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// CacheBackend selects the VerificationCache implementation.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheRedis  CacheBackend = "redis"
)

// CacheConfig holds VerificationCache settings. The entry TTL is fixed at
// 60 seconds and is not configurable.
type CacheConfig struct {
	// Backend selects memory (default) or redis.
	Backend CacheBackend `json:"backend" yaml:"backend"`

	// RedisURL is a redis:// URL, used when Backend is redis.
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`

	// KeyPrefix namespaces Redis keys (default "claim-engine:verify:").
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// VerificationConfig configures the CrossSourceVerifier's checker.
type VerificationConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the fact-check search API. Empty selects the seeded
	// simulated checker.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// APIKey authenticates against Endpoint.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// RequestsPerSecond caps outbound fact-check calls (default 5).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the limiter burst size (default 1).
	Burst int `json:"burst" yaml:"burst"`
}

// NLPConfig configures the optional NLP sidecar used for sentence
// segmentation and sentiment.
type NLPConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the sidecar base URL. Empty disables the sidecar and the
	// extractor falls back to punctuation splitting.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// APIKey is sent as a bearer token when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// ReputationConfig lists source domains by credibility tier.
type ReputationConfig struct {
	// Enabled switches on the built-in domain reputation provider.
	Enabled bool `json:"enabled" yaml:"enabled"`

	High   []string `json:"high" yaml:"high"`
	Medium []string `json:"medium" yaml:"medium"`
}

// HeuristicsConfig toggles the built-in keyword and timeline providers.
type HeuristicsConfig struct {
	// Keywords enables keyword-based linguistic scoring when no NLP sidecar
	// is configured.
	Keywords bool `json:"keywords" yaml:"keywords"`

	// Timeline enables the media-timeline temporal provider.
	Timeline bool `json:"timeline" yaml:"timeline"`
}

// StoreConfig configures the verdict result store.
type StoreConfig struct {
	// Path is the SQLite database file (default "data/verdicts.db").
	Path string `json:"path" yaml:"path"`

	// TTL is how long a stored verdict is served before re-evaluation
	// (default 6h).
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level"`

	// Development switches to zap's console encoder.
	Development bool `json:"development" yaml:"development"`
}

// EngineConfig groups every setting an Engine and its collaborators read.
type EngineConfig struct {
	// LayerTimeout bounds each provider or checker call (default 2s).
	LayerTimeout time.Duration `json:"layer_timeout" yaml:"layer_timeout"`

	// MaxConcurrentClaims bounds claim fan-out per evaluation (default 8).
	MaxConcurrentClaims int `json:"max_concurrent_claims" yaml:"max_concurrent_claims"`

	// MaxTextBytes rejects larger snapshots as invalid (default 1 MiB).
	MaxTextBytes int `json:"max_text_bytes" yaml:"max_text_bytes"`

	Cache        CacheConfig        `json:"cache" yaml:"cache"`
	Verification VerificationConfig `json:"verification" yaml:"verification"`
	NLP          NLPConfig          `json:"nlp" yaml:"nlp"`
	Reputation   ReputationConfig   `json:"reputation" yaml:"reputation"`
	Heuristics   HeuristicsConfig   `json:"heuristics" yaml:"heuristics"`
	Store        StoreConfig        `json:"store" yaml:"store"`
	Logging      LoggingConfig      `json:"logging" yaml:"logging"`
}

// DefaultEngineConfig returns the configuration used when nothing is set.
// Optional providers are off, so every extension layer reports its neutral
// default.
func DefaultEngineConfig() EngineConfig {
	http := HTTPConfig{
		Timeout:    10 * time.Second,
		UserAgent:  "claim-engine/0.1",
		MaxRetries: 3,
	}
	return EngineConfig{
		LayerTimeout:        2 * time.Second,
		MaxConcurrentClaims: 8,
		MaxTextBytes:        1 << 20,
		Cache: CacheConfig{
			Backend:   CacheMemory,
			KeyPrefix: "claim-engine:verify:",
		},
		Verification: VerificationConfig{
			HTTPConfig:        http,
			RequestsPerSecond: 5,
			Burst:             1,
		},
		NLP: NLPConfig{HTTPConfig: http},
		Reputation: ReputationConfig{
			High:   []string{"bbc.com", "reuters.com", "apnews.com", "setopati.com"},
			Medium: []string{"theguardian.com", "aljazeera.com", "kantipur.com"},
		},
		Store: StoreConfig{
			Path: "data/verdicts.db",
			TTL:  6 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
