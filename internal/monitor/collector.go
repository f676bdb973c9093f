// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Package monitor extracts scalar summary metrics from generated feature
// tables, persists the run snapshot, and detects run-over-run drift.
package monitor

import (
	"github.com/featuremill/featuremill/internal/models"
)

// Collect extracts the tracked scalar metrics from the feature set.
// A metric is present only when the feature table behind it is non-empty;
// missing inputs simply omit that metric from the snapshot.
func Collect(fs *models.FeatureSet) models.MetricsSnapshot {
	snapshot := models.MetricsSnapshot{}

	if len(fs.PurchaseFrequency) > 0 {
		snapshot[models.MetricUserCount] = float64(len(fs.PurchaseFrequency))

		var sum float64
		for _, r := range fs.PurchaseFrequency {
			sum += float64(r.Frequency)
		}
		snapshot[models.MetricAvgPurchaseFrequency] = sum / float64(len(fs.PurchaseFrequency))
	}

	if len(fs.AverageCheck) > 0 {
		var sum float64
		for _, r := range fs.AverageCheck {
			sum += r.AverageCheck
		}
		snapshot[models.MetricAvgCheck] = sum / float64(len(fs.AverageCheck))
	}

	if len(fs.Popularity) > 0 {
		snapshot[models.MetricItemCount] = float64(len(fs.Popularity))

		var sum float64
		for _, r := range fs.Popularity {
			sum += float64(r.PopularityScore)
		}
		snapshot[models.MetricAvgPopularity] = sum / float64(len(fs.Popularity))
	}

	return snapshot
}
