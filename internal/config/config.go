// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Package config defines the pipeline configuration and its layered
// loading: struct defaults, then an optional YAML file, then environment
// variables, with env taking the highest precedence.
package config

import (
	"github.com/featuremill/featuremill/internal/models"
)

// Quality-gate enforcement levels. The gate always reports; enforcement
// decides whether a failed report aborts the run.
const (
	// EnforcementObserve logs gate failures and continues. This is the
	// default "observe, don't block" policy for early pipeline maturity.
	EnforcementObserve = "observe"

	// EnforcementEnforce moves the run to Failed on any gate failure.
	EnforcementEnforce = "enforce"
)

// Category-preference tie-break rules for equal purchase counts.
const (
	// TieBreakLexicographic picks the lexicographically smallest category.
	// Fully deterministic regardless of input order.
	TieBreakLexicographic = "lexicographic"

	// TieBreakFirstSeen picks the category first observed in the purchase
	// stream among those tied for the maximum count.
	TieBreakFirstSeen = "first_seen"
)

// Config is the root pipeline configuration.
type Config struct {
	Input    InputConfig    `koanf:"input"`
	Output   OutputConfig   `koanf:"output"`
	Quality  QualityConfig  `koanf:"quality"`
	Features FeaturesConfig `koanf:"features"`
	Drift    DriftConfig    `koanf:"drift"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// InputConfig locates the three event source files.
type InputConfig struct {
	// Dir is the directory containing the source files. Set from
	// --input-dir; required.
	Dir string `koanf:"dir"`

	ViewsFile     string `koanf:"views_file"`
	PurchasesFile string `koanf:"purchases_file"`
	CartFile      string `koanf:"cart_file"`
}

// OutputConfig locates the feature store output root.
type OutputConfig struct {
	// Dir is the output root. Set from --output-dir; required.
	Dir string `koanf:"dir"`
}

// QualityConfig tunes the quality gate.
type QualityConfig struct {
	// MinRows is the minimum batch row count below which the gate fails.
	MinRows int `koanf:"min_rows"`

	// Enforcement is "observe" or "enforce".
	Enforcement string `koanf:"enforcement"`
}

// FeaturesConfig tunes feature generation.
type FeaturesConfig struct {
	// WindowDays is the trailing window for purchase frequency.
	WindowDays int `koanf:"window_days"`

	// TieBreak is the category-preference tie-break rule:
	// "lexicographic" or "first_seen".
	TieBreak string `koanf:"tie_break"`
}

// DriftConfig tunes run-over-run drift detection.
type DriftConfig struct {
	// Thresholds maps metric name to the maximum tolerated relative
	// change. Metrics without a threshold are never flagged.
	Thresholds map[string]float64 `koanf:"thresholds"`
}

// MetricsConfig controls operational run metrics.
type MetricsConfig struct {
	// TextfilePath, when set, is where Prometheus run metrics are written
	// in text exposition format for a node_exporter textfile collector.
	// Empty disables the export.
	TextfilePath string `koanf:"textfile_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Default returns a Config with all default values. Defaults are applied
// first, then overridden by config file and env vars.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			ViewsFile:     "views.csv",
			PurchasesFile: "purchases.csv",
			CartFile:      "cart.csv",
		},
		Quality: QualityConfig{
			MinRows:     1000,
			Enforcement: EnforcementObserve,
		},
		Features: FeaturesConfig{
			WindowDays: 30,
			TieBreak:   TieBreakLexicographic,
		},
		Drift: DriftConfig{
			Thresholds: map[string]float64{
				models.MetricAvgPurchaseFrequency: 0.20,
				models.MetricAvgCheck:             0.30,
				models.MetricUserCount:            0.10,
				models.MetricItemCount:            0.10,
				models.MetricAvgPopularity:        0.25,
			},
		},
		Metrics: MetricsConfig{
			TextfilePath: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
