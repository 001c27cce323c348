// Package config holds runtime settings for nsguard. Everything can be set
// programmatically, through NSGUARD_* environment variables, or from a YAML
// file; precedence is file < environment < flags enforced by the callers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/paultendo/namespace-guard-sub000/pkg/confusables"
	"github.com/paultendo/namespace-guard-sub000/pkg/distance"
	"github.com/paultendo/namespace-guard-sub000/pkg/risk"
)

// Config holds global settings for the nsguard CLI and server.
type Config struct {
	// === Scoring Policy ===
	WarnThreshold   float64  `yaml:"warn_threshold"`   // Score at or above this = WARN (default: 25)
	BlockThreshold  float64  `yaml:"block_threshold"`  // Score at or above this = BLOCK (default: 60)
	MaxMatches      int      `yaml:"max_matches"`      // Cap on presented matches (default: 5)
	Variant         string   `yaml:"variant"`          // Mapping variant: "filtered" or "full"
	IncludeReserved bool     `yaml:"include_reserved"` // Defend the built-in reserved names (default: true)
	Protect         []string `yaml:"protect"`          // Extra protected targets, always on
	WeightsPath     string   `yaml:"weights_path"`     // Optional visual-weight YAML overlay

	// === HTTP Server ===
	ListenAddr     string `yaml:"listen_addr"`     // Bind address for serve mode (default: ":8089")
	MaxConcurrency int    `yaml:"max_concurrency"` // Concurrent evaluations across batch requests (default: 16)
	BodyLimitKB    int    `yaml:"body_limit_kb"`   // Request body cap in KiB (default: 256)

	// === Logging ===
	LogLevel  string `yaml:"log_level"`  // zerolog level: trace..panic (default: "info")
	LogPretty bool   `yaml:"log_pretty"` // Console writer instead of JSON lines
}

// NewDefaultConfig creates a Config with package defaults, overridden by
// NSGUARD_* environment variables where set.
func NewDefaultConfig() *Config {
	return &Config{
		WarnThreshold:   GetEnvFloat("NSGUARD_WARN_THRESHOLD", risk.DefaultWarnThreshold),
		BlockThreshold:  GetEnvFloat("NSGUARD_BLOCK_THRESHOLD", risk.DefaultBlockThreshold),
		MaxMatches:      GetEnvInt("NSGUARD_MAX_MATCHES", risk.DefaultMaxMatches),
		Variant:         GetEnv("NSGUARD_VARIANT", string(confusables.Filtered)),
		IncludeReserved: GetEnvBool("NSGUARD_INCLUDE_RESERVED", true),
		Protect:         GetEnvSlice("NSGUARD_PROTECT", nil),
		WeightsPath:     GetEnv("NSGUARD_WEIGHTS", ""),

		ListenAddr:     GetEnv("NSGUARD_LISTEN", ":8089"),
		MaxConcurrency: clampInt(GetEnvInt("NSGUARD_MAX_CONCURRENCY", 16), 1, 1024),
		BodyLimitKB:    clampInt(GetEnvInt("NSGUARD_BODY_LIMIT_KB", 256), 1, 1<<20),

		LogLevel:  GetEnv("NSGUARD_LOG_LEVEL", "info"),
		LogPretty: GetEnvBool("NSGUARD_LOG_PRETTY", false),
	}
}

// Load reads a YAML config file over the environment-seeded defaults.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks internal consistency. Threshold ordering is corrected by
// the risk layer at call time, but an inverted pair in a config file is
// almost always a typo, so it fails loudly here.
func (c *Config) Validate() error {
	if c.WarnThreshold < 0 || c.WarnThreshold > 100 {
		return fmt.Errorf("warn_threshold must be in [0,100], got %v", c.WarnThreshold)
	}
	if c.BlockThreshold < 0 || c.BlockThreshold > 100 {
		return fmt.Errorf("block_threshold must be in [0,100], got %v", c.BlockThreshold)
	}
	if c.BlockThreshold < c.WarnThreshold {
		return fmt.Errorf("block_threshold %v below warn_threshold %v", c.BlockThreshold, c.WarnThreshold)
	}
	if c.MaxMatches < 1 {
		return fmt.Errorf("max_matches must be >= 1, got %d", c.MaxMatches)
	}
	if _, err := confusables.ParseVariant(c.Variant); err != nil {
		return err
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be >= 1, got %d", c.MaxConcurrency)
	}
	return nil
}

// RiskOptions materializes the scoring options, loading the visual-weight
// overlay when configured.
func (c *Config) RiskOptions() (risk.Options, error) {
	variant, err := confusables.ParseVariant(c.Variant)
	if err != nil {
		return risk.Options{}, err
	}
	opts := risk.Options{
		Protect:         c.Protect,
		IncludeReserved: c.IncludeReserved,
		WarnThreshold:   risk.Threshold(c.WarnThreshold),
		BlockThreshold:  risk.Threshold(c.BlockThreshold),
		MaxMatches:      c.MaxMatches,
		Variant:         variant,
	}
	if c.WeightsPath != "" {
		w, err := distance.LoadVisualWeights(c.WeightsPath)
		if err != nil {
			return risk.Options{}, fmt.Errorf("load visual weights: %w", err)
		}
		opts.Weights = w
	}
	return opts, nil
}

// clampInt ensures a value is within bounds.
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
