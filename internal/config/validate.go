// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package config

import (
	"fmt"
)

// Validate checks that the configuration is internally consistent.
// Input/output directories are validated separately by the CLI because
// they normally arrive via flags after Load.
func (c *Config) Validate() error {
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateFeatures(); err != nil {
		return err
	}
	if err := c.validateDrift(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateQuality() error {
	if c.Quality.MinRows < 0 {
		return fmt.Errorf("QUALITY_MIN_ROWS must be >= 0, got %d", c.Quality.MinRows)
	}
	switch c.Quality.Enforcement {
	case EnforcementObserve, EnforcementEnforce:
		return nil
	default:
		return fmt.Errorf("QUALITY_ENFORCEMENT must be %q or %q, got %q",
			EnforcementObserve, EnforcementEnforce, c.Quality.Enforcement)
	}
}

func (c *Config) validateFeatures() error {
	if c.Features.WindowDays <= 0 {
		return fmt.Errorf("FEATURES_WINDOW_DAYS must be > 0, got %d", c.Features.WindowDays)
	}
	switch c.Features.TieBreak {
	case TieBreakLexicographic, TieBreakFirstSeen:
		return nil
	default:
		return fmt.Errorf("FEATURES_TIE_BREAK must be %q or %q, got %q",
			TieBreakLexicographic, TieBreakFirstSeen, c.Features.TieBreak)
	}
}

func (c *Config) validateDrift() error {
	for metric, threshold := range c.Drift.Thresholds {
		if threshold < 0 {
			return fmt.Errorf("drift threshold for %q must be >= 0, got %v", metric, threshold)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid log level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be \"json\" or \"console\", got %q", c.Logging.Format)
	}
}
