package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pario-ai/sous/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all sous configuration.
type Config struct {
	DBPath    string          `yaml:"db_path"`
	Log       LogConfig       `yaml:"log"`
	AI        AIConfig        `yaml:"ai"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Budget    BudgetConfig    `yaml:"budget"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// ProviderConfig defines the upstream generative-AI provider.
// Type is "openai" (default) or "anthropic".
type ProviderConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Type   string `yaml:"type"`
}

// AIConfig controls the outbound model call.
type AIConfig struct {
	Provider  ProviderConfig `yaml:"provider"`
	Model     string         `yaml:"model"`
	MaxTokens int            `yaml:"max_tokens"`
	Timeout   time.Duration  `yaml:"timeout"`
}

// RateLimitConfig spaces outbound calls process-wide.
type RateLimitConfig struct {
	MinInterval time.Duration `yaml:"min_interval"`
}

// TTLConfig is the per-feature cache lifetime. Sentiment is never cached.
type TTLConfig struct {
	Description    time.Duration `yaml:"description"`
	Recommendation time.Duration `yaml:"recommendation"`
	InventoryRisk  time.Duration `yaml:"inventory_risk"`
}

// L1Config controls the in-process cache in front of SQLite.
type L1Config struct {
	Enabled      bool          `yaml:"enabled"`
	MaxCostBytes int64         `yaml:"max_cost_bytes"`
	MaxTTL       time.Duration `yaml:"max_ttl"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	TTL            TTLConfig     `yaml:"ttl"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	L1             L1Config      `yaml:"l1"`
	DedupeInflight bool          `yaml:"dedupe_inflight"`
}

// For returns the TTL configured for a feature; zero means do not cache.
func (t TTLConfig) For(f models.Feature) time.Duration {
	switch f {
	case models.FeatureDescription:
		return t.Description
	case models.FeatureRecommendation:
		return t.Recommendation
	case models.FeatureInventoryRisk:
		return t.InventoryRisk
	default:
		return 0
	}
}

// BudgetConfig controls token budget enforcement.
type BudgetConfig struct {
	Enabled  bool                  `yaml:"enabled"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// MetricsConfig controls OpenTelemetry metric export.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DBPath: "sous.db",
		Log: LogConfig{
			Level:   "info",
			Service: "sous",
		},
		AI: AIConfig{
			Provider: ProviderConfig{
				Name: "default",
				Type: "openai",
			},
			MaxTokens: 512,
			Timeout:   30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MinInterval: 15 * time.Second,
		},
		Cache: CacheConfig{
			TTL: TTLConfig{
				Description:    7 * 24 * time.Hour,
				Recommendation: 6 * time.Hour,
				InventoryRisk:  4 * time.Hour,
			},
			SweepInterval: 10 * time.Minute,
			L1: L1Config{
				Enabled:      true,
				MaxCostBytes: 16 << 20,
				MaxTTL:       5 * time.Minute,
			},
			DedupeInflight: true,
		},
		Metrics: MetricsConfig{
			Interval: time.Minute,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would break the rate limiter or cache.
func (c *Config) Validate() error {
	var errs []error
	if c.RateLimit.MinInterval <= 0 {
		errs = append(errs, errors.New("rate_limit.min_interval must be positive"))
	}
	if c.Cache.TTL.Description < 0 || c.Cache.TTL.Recommendation < 0 || c.Cache.TTL.InventoryRisk < 0 {
		errs = append(errs, errors.New("cache.ttl values must not be negative"))
	}
	switch c.AI.Provider.Type {
	case "", "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("ai.provider.type %q is not supported", c.AI.Provider.Type))
	}
	for i, p := range c.Budget.Policies {
		if p.Feature != "*" {
			if _, err := models.ParseFeature(p.Feature); err != nil {
				errs = append(errs, fmt.Errorf("budget.policies[%d]: %w", i, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
