// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package monitor

import (
	"context"
	"math"
	"sort"

	"github.com/featuremill/featuremill/internal/logging"
	"github.com/featuremill/featuremill/internal/models"
)

// Detect compares current metrics to the previous run's snapshot and
// produces one alert per metric that is present in both snapshots and has
// a configured threshold. A metric is flagged exceeded when its relative
// change is strictly greater than the threshold.
//
// A nil previous snapshot (first run, no prior file) skips detection
// entirely and returns an empty result, not a wall of false alarms.
func Detect(ctx context.Context, current, previous models.MetricsSnapshot, thresholds map[string]float64) []models.DriftAlert {
	if previous == nil {
		logging.Ctx(ctx).Info().Msg("No previous metrics snapshot, skipping drift detection")
		return nil
	}

	// Sorted metric order keeps alert output deterministic.
	metrics := make([]string, 0, len(thresholds))
	for metric := range thresholds {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)

	var alerts []models.DriftAlert
	for _, metric := range metrics {
		currentVal, inCurrent := current[metric]
		previousVal, inPrevious := previous[metric]
		if !inCurrent || !inPrevious {
			continue
		}

		change := relativeChange(currentVal, previousVal)
		threshold := thresholds[metric]

		alert := models.DriftAlert{
			Metric:         metric,
			Current:        currentVal,
			Previous:       previousVal,
			RelativeChange: change,
			Exceeded:       change > threshold,
		}
		alerts = append(alerts, alert)

		if alert.Exceeded {
			logging.Ctx(ctx).Warn().
				Str("metric", metric).
				Float64("current", currentVal).
				Float64("previous", previousVal).
				Float64("relative_change", change).
				Float64("threshold", threshold).
				Msg("Data drift detected")
		}
	}

	return alerts
}

// relativeChange is |current-previous|/previous, with the previous==0 case
// pinned: +Inf when anything appeared from zero, 0 when both are zero.
func relativeChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return math.Abs(current-previous) / previous
}
