package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paultendo/namespace-guard-sub000/pkg/confusables"
	"github.com/paultendo/namespace-guard-sub000/pkg/risk"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.WarnThreshold != risk.DefaultWarnThreshold {
		t.Errorf("WarnThreshold = %v, want %v", cfg.WarnThreshold, risk.DefaultWarnThreshold)
	}
	if cfg.BlockThreshold != risk.DefaultBlockThreshold {
		t.Errorf("BlockThreshold = %v, want %v", cfg.BlockThreshold, risk.DefaultBlockThreshold)
	}
	if cfg.Variant != string(confusables.Filtered) {
		t.Errorf("Variant = %q, want filtered", cfg.Variant)
	}
	if !cfg.IncludeReserved {
		t.Error("IncludeReserved = false, want true by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NSGUARD_WARN_THRESHOLD", "30")
	t.Setenv("NSGUARD_VARIANT", "full")
	t.Setenv("NSGUARD_PROTECT", "admin, paypal ,")
	t.Setenv("NSGUARD_INCLUDE_RESERVED", "false")

	cfg := NewDefaultConfig()
	if cfg.WarnThreshold != 30 {
		t.Errorf("WarnThreshold = %v, want 30", cfg.WarnThreshold)
	}
	if cfg.Variant != "full" {
		t.Errorf("Variant = %q, want full", cfg.Variant)
	}
	if len(cfg.Protect) != 2 || cfg.Protect[0] != "admin" || cfg.Protect[1] != "paypal" {
		t.Errorf("Protect = %v, want [admin paypal]", cfg.Protect)
	}
	if cfg.IncludeReserved {
		t.Error("IncludeReserved = true, want false")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"warn out of range", func(c *Config) { c.WarnThreshold = 101 }},
		{"block out of range", func(c *Config) { c.BlockThreshold = -1; c.WarnThreshold = -1 }},
		{"inverted thresholds", func(c *Config) { c.WarnThreshold = 70; c.BlockThreshold = 30 }},
		{"zero max matches", func(c *Config) { c.MaxMatches = 0 }},
		{"bad variant", func(c *Config) { c.Variant = "hybrid" }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate passed, want error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nsguard.yaml")
	doc := []byte(`
warn_threshold: 20
block_threshold: 55
variant: full
protect: [paypal, stripe]
max_concurrency: 4
log_level: debug
`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WarnThreshold != 20 || cfg.BlockThreshold != 55 {
		t.Errorf("thresholds = %v/%v, want 20/55", cfg.WarnThreshold, cfg.BlockThreshold)
	}
	if cfg.Variant != "full" || len(cfg.Protect) != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	// Fields absent from the file keep their defaults.
	if cfg.MaxMatches != risk.DefaultMaxMatches {
		t.Errorf("MaxMatches = %d, want default %d", cfg.MaxMatches, risk.DefaultMaxMatches)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("warn_threshold: 90\nblock_threshold: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Load of inverted thresholds succeeded")
	}
}

func TestRiskOptions(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Variant = "full"
	cfg.Protect = []string{"acme"}

	opts, err := cfg.RiskOptions()
	if err != nil {
		t.Fatalf("RiskOptions: %v", err)
	}
	if opts.Variant != confusables.Full {
		t.Errorf("Variant = %v, want full", opts.Variant)
	}
	if len(opts.Protect) != 1 || opts.Protect[0] != "acme" {
		t.Errorf("Protect = %v", opts.Protect)
	}
	if opts.WarnThreshold == nil || *opts.WarnThreshold != cfg.WarnThreshold {
		t.Errorf("WarnThreshold = %v, want %v", opts.WarnThreshold, cfg.WarnThreshold)
	}
	if opts.BlockThreshold == nil || *opts.BlockThreshold != cfg.BlockThreshold {
		t.Errorf("BlockThreshold = %v, want %v", opts.BlockThreshold, cfg.BlockThreshold)
	}

	cfg.WeightsPath = filepath.Join(t.TempDir(), "absent.yaml")
	if _, err := cfg.RiskOptions(); err == nil {
		t.Error("RiskOptions with missing weights file succeeded")
	}
}
