// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/claim-engine/internal/secrets"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// loadEngineConfig starts from the defaults, overlays the config file viper
// found, then applies flag and environment overrides, and finally fills
// credentials from secret files where none were configured.
func loadEngineConfig(v *viper.Viper, loaded map[string]string) (types.EngineConfig, error) {
	cfg := types.DefaultEngineConfig()

	if path := v.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyOverrides(v, &cfg)

	if path := v.GetString("reputation_file"); path != "" {
		rep, err := loadReputation(path)
		if err != nil {
			return cfg, err
		}
		cfg.Reputation.High = rep.High
		cfg.Reputation.Medium = rep.Medium
		cfg.Reputation.Enabled = true
	}

	cfg.Verification.APIKey = secrets.Resolve(loaded, secrets.FactCheckAPIKey, cfg.Verification.APIKey)
	cfg.NLP.APIKey = secrets.Resolve(loaded, secrets.NLPAPIKey, cfg.NLP.APIKey)
	cfg.Cache.RedisURL = secrets.Resolve(loaded, secrets.RedisURL, cfg.Cache.RedisURL)
	return cfg, nil
}

// applyOverrides copies every key set by a flag or CLAIM_ENGINE_* variable.
// Nested keys use dots, which the env replacer maps to underscores
// (cache.backend is CLAIM_ENGINE_CACHE_BACKEND).
func applyOverrides(v *viper.Viper, cfg *types.EngineConfig) {
	str := func(key string, dst *string) {
		if v.IsSet(key) && v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}
	boolean := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	if v.IsSet("layer_timeout") {
		cfg.LayerTimeout = v.GetDuration("layer_timeout")
	}
	if v.IsSet("max_concurrent_claims") {
		cfg.MaxConcurrentClaims = v.GetInt("max_concurrent_claims")
	}

	var backend string
	str("cache.backend", &backend)
	if backend != "" {
		cfg.Cache.Backend = types.CacheBackend(backend)
	}
	str("cache.redis_url", &cfg.Cache.RedisURL)
	str("verification.endpoint", &cfg.Verification.Endpoint)
	str("verification.api_key", &cfg.Verification.APIKey)
	str("nlp.endpoint", &cfg.NLP.Endpoint)
	str("nlp.api_key", &cfg.NLP.APIKey)
	str("store.path", &cfg.Store.Path)
	str("logging.level", &cfg.Logging.Level)
	boolean("logging.development", &cfg.Logging.Development)
	boolean("reputation.enabled", &cfg.Reputation.Enabled)
	boolean("heuristics.keywords", &cfg.Heuristics.Keywords)
	boolean("heuristics.timeline", &cfg.Heuristics.Timeline)
}

// loadReputation reads a YAML file with high and medium domain lists.
func loadReputation(path string) (types.ReputationConfig, error) {
	var rep types.ReputationConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return rep, fmt.Errorf("reading reputation file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rep); err != nil {
		return rep, fmt.Errorf("parsing reputation file %s: %w", path, err)
	}
	return rep, nil
}
