// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package models

// Tracked scalar metric names. Each is present in a snapshot only when the
// feature table it summarizes was non-empty for that run.
const (
	MetricUserCount            = "user_count"
	MetricAvgPurchaseFrequency = "avg_purchase_frequency"
	MetricAvgCheck             = "avg_check"
	MetricItemCount            = "item_count"
	MetricAvgPopularity        = "avg_popularity"
)

// MetricsSnapshot is the flat name -> value summary of one pipeline run's
// feature tables. Exactly one snapshot is live at any time: it is read at
// run start as "previous" and overwritten at run end on success.
type MetricsSnapshot map[string]float64

// DriftAlert reports the run-over-run movement of one tracked metric.
// Alerts are ephemeral: they exist only for the duration of one run's
// reporting and are never persisted.
type DriftAlert struct {
	Metric         string  `json:"metric"`
	Current        float64 `json:"current_value"`
	Previous       float64 `json:"previous_value"`
	RelativeChange float64 `json:"relative_change"`
	Exceeded       bool    `json:"exceeded"`
}
