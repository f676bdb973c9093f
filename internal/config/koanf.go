// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar can override the config file path when no --config flag
// is given.
const ConfigPathEnvVar = "FEATUREMILL_CONFIG"

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"featuremill.yaml",
	"featuremill.yml",
	"/etc/featuremill/config.yaml",
}

// Load builds the configuration from layered sources:
//  1. Defaults: built-in values from Default()
//  2. Config file: optional YAML file (explicit path, env var, or default
//     search paths)
//  3. Environment variables: override any setting
//
// Precedence: ENV > file > defaults. An explicit configPath that does not
// exist is an error; a missing default-path file is not.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	path, explicit := findConfigFile(configPath)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile resolves the config file path. The second return value
// reports whether the caller asked for a specific file.
func findConfigFile(configPath string) (string, bool) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath, true
		}
		return "", true
	}

	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, false
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, false
		}
	}

	return "", false
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return empty string and are skipped, which keeps
// unrelated environment variables out of the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Input mappings
		"input_dir":            "input.dir",
		"input_views_file":     "input.views_file",
		"input_purchases_file": "input.purchases_file",
		"input_cart_file":      "input.cart_file",

		// Output mappings
		"output_dir": "output.dir",

		// Quality gate mappings
		"quality_min_rows":    "quality.min_rows",
		"quality_enforcement": "quality.enforcement",

		// Feature generation mappings
		"features_window_days": "features.window_days",
		"features_tie_break":   "features.tie_break",

		// Drift thresholds, one variable per tracked metric
		"drift_threshold_avg_purchase_frequency": "drift.thresholds.avg_purchase_frequency",
		"drift_threshold_avg_check":              "drift.thresholds.avg_check",
		"drift_threshold_user_count":             "drift.thresholds.user_count",
		"drift_threshold_item_count":             "drift.thresholds.item_count",
		"drift_threshold_avg_popularity":         "drift.thresholds.avg_popularity",

		// Metrics mappings
		"metrics_textfile_path": "metrics.textfile_path",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
