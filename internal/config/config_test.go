// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/featuremill/featuremill/internal/models"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Input.ViewsFile != "views.csv" || cfg.Input.PurchasesFile != "purchases.csv" || cfg.Input.CartFile != "cart.csv" {
		t.Errorf("input files = %q/%q/%q, want views.csv/purchases.csv/cart.csv",
			cfg.Input.ViewsFile, cfg.Input.PurchasesFile, cfg.Input.CartFile)
	}
	if cfg.Quality.MinRows != 1000 {
		t.Errorf("MinRows = %d, want 1000", cfg.Quality.MinRows)
	}
	if cfg.Quality.Enforcement != EnforcementObserve {
		t.Errorf("Enforcement = %q, want %q", cfg.Quality.Enforcement, EnforcementObserve)
	}
	if cfg.Features.WindowDays != 30 {
		t.Errorf("WindowDays = %d, want 30", cfg.Features.WindowDays)
	}
	if cfg.Features.TieBreak != TieBreakLexicographic {
		t.Errorf("TieBreak = %q, want %q", cfg.Features.TieBreak, TieBreakLexicographic)
	}

	wantThresholds := map[string]float64{
		models.MetricAvgPurchaseFrequency: 0.20,
		models.MetricAvgCheck:             0.30,
		models.MetricUserCount:            0.10,
		models.MetricItemCount:            0.10,
		models.MetricAvgPopularity:        0.25,
	}
	for metric, want := range wantThresholds {
		if got := cfg.Drift.Thresholds[metric]; got != want {
			t.Errorf("threshold %s = %v, want %v", metric, got, want)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "featuremill.yaml")
	content := `
quality:
  min_rows: 500
features:
  window_days: 7
  tie_break: first_seen
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Quality.MinRows != 500 {
		t.Errorf("MinRows = %d, want 500", cfg.Quality.MinRows)
	}
	if cfg.Features.WindowDays != 7 {
		t.Errorf("WindowDays = %d, want 7", cfg.Features.WindowDays)
	}
	if cfg.Features.TieBreak != TieBreakFirstSeen {
		t.Errorf("TieBreak = %q, want %q", cfg.Features.TieBreak, TieBreakFirstSeen)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched settings keep their defaults.
	if cfg.Quality.Enforcement != EnforcementObserve {
		t.Errorf("Enforcement = %q, want default %q", cfg.Quality.Enforcement, EnforcementObserve)
	}
}

func TestLoadExplicitMissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing explicit config file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "featuremill.yaml")
	if err := os.WriteFile(path, []byte("quality:\n  min_rows: 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("QUALITY_MIN_ROWS", "2000")
	t.Setenv("INPUT_DIR", "/data/raw")
	t.Setenv("DRIFT_THRESHOLD_AVG_CHECK", "0.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Quality.MinRows != 2000 {
		t.Errorf("MinRows = %d, want env override 2000", cfg.Quality.MinRows)
	}
	if cfg.Input.Dir != "/data/raw" {
		t.Errorf("Input.Dir = %q, want /data/raw", cfg.Input.Dir)
	}
	if cfg.Drift.Thresholds[models.MetricAvgCheck] != 0.5 {
		t.Errorf("avg_check threshold = %v, want 0.5", cfg.Drift.Thresholds[models.MetricAvgCheck])
	}
}

func TestUnmappedEnvVarsIgnored(t *testing.T) {
	t.Setenv("PATH_LIKE_NOISE", "whatever")
	t.Setenv("QUALITY_SOMETHING_ELSE", "junk")

	if _, err := Load(""); err != nil {
		t.Errorf("Load() error = %v, want unrelated env vars ignored", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "negative min rows",
			mutate:  func(c *Config) { c.Quality.MinRows = -1 },
			wantErr: "QUALITY_MIN_ROWS",
		},
		{
			name:    "bad enforcement",
			mutate:  func(c *Config) { c.Quality.Enforcement = "panic" },
			wantErr: "QUALITY_ENFORCEMENT",
		},
		{
			name:    "zero window",
			mutate:  func(c *Config) { c.Features.WindowDays = 0 },
			wantErr: "FEATURES_WINDOW_DAYS",
		},
		{
			name:    "bad tie break",
			mutate:  func(c *Config) { c.Features.TieBreak = "random" },
			wantErr: "FEATURES_TIE_BREAK",
		},
		{
			name:    "negative drift threshold",
			mutate:  func(c *Config) { c.Drift.Thresholds["avg_check"] = -0.1 },
			wantErr: "drift threshold",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
