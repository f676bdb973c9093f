// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Package quality implements the data quality gate applied to raw event
// batches and to generated feature tables.
//
// The gate only reports; whether a failed report aborts the run is the
// orchestrator's decision, driven by quality.enforcement config.
package quality

import (
	"context"
	"fmt"

	"github.com/featuremill/featuremill/internal/logging"
	"github.com/featuremill/featuremill/internal/models"
)

// WarningKind classifies a data quality warning.
type WarningKind string

const (
	WarnEmptyBatch     WarningKind = "empty_batch"
	WarnNullValues     WarningKind = "null_values"
	WarnLowVolume      WarningKind = "low_volume"
	WarnNegativeAmount WarningKind = "negative_amount"
	WarnDuplicateKey   WarningKind = "duplicate_key"
)

// Warning is one advisory data quality finding.
type Warning struct {
	Source  string      `json:"source"`
	Kind    WarningKind `json:"kind"`
	Column  string      `json:"column,omitempty"`
	Count   int         `json:"count"`
	Percent float64     `json:"percent,omitempty"`
	Message string      `json:"message"`
}

// Report is the outcome of one gate check.
type Report struct {
	Source   string
	RowCount int
	Passed   bool
	Warnings []Warning
}

// Gate validates batches against critical-column and volume rules.
type Gate struct {
	// MinRows is the minimum row count below which a batch fails.
	MinRows int
}

// NewGate returns a gate with the given minimum volume threshold.
func NewGate(minRows int) *Gate {
	return &Gate{MinRows: minRows}
}

// CheckEvents validates a batch of raw events against the given critical
// columns. Any null in a critical column, an empty batch, or a row count
// below MinRows fails the batch.
func (g *Gate) CheckEvents(ctx context.Context, name string, events []models.Event, critical []string) Report {
	report := Report{Source: name, RowCount: len(events), Passed: true}

	if len(events) == 0 {
		report.fail(Warning{
			Source:  name,
			Kind:    WarnEmptyBatch,
			Message: fmt.Sprintf("batch %s is empty", name),
		})
		report.log(ctx)
		return report
	}

	for _, col := range critical {
		nulls := countNulls(events, col)
		if nulls > 0 {
			percent := float64(nulls) / float64(len(events)) * 100
			report.fail(Warning{
				Source:  name,
				Kind:    WarnNullValues,
				Column:  col,
				Count:   nulls,
				Percent: percent,
				Message: fmt.Sprintf("critical column %q has %d null values (%.2f%%)", col, nulls, percent),
			})
		}
	}

	g.checkVolume(&report, name)
	report.log(ctx)
	return report
}

// CheckKeys validates a generated feature table through its key column.
// Beyond the shared empty/volume rules it verifies the key uniqueness
// invariant: one row per user or item.
func (g *Gate) CheckKeys(ctx context.Context, name, keyColumn string, keys []string) Report {
	report := Report{Source: name, RowCount: len(keys), Passed: true}

	if len(keys) == 0 {
		report.fail(Warning{
			Source:  name,
			Kind:    WarnEmptyBatch,
			Message: fmt.Sprintf("feature table %s is empty", name),
		})
		report.log(ctx)
		return report
	}

	nulls := 0
	seen := make(map[string]struct{}, len(keys))
	duplicates := 0
	for _, key := range keys {
		if key == "" {
			nulls++
			continue
		}
		if _, ok := seen[key]; ok {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
	}

	if nulls > 0 {
		percent := float64(nulls) / float64(len(keys)) * 100
		report.fail(Warning{
			Source:  name,
			Kind:    WarnNullValues,
			Column:  keyColumn,
			Count:   nulls,
			Percent: percent,
			Message: fmt.Sprintf("key column %q has %d null values (%.2f%%)", keyColumn, nulls, percent),
		})
	}
	if duplicates > 0 {
		report.fail(Warning{
			Source:  name,
			Kind:    WarnDuplicateKey,
			Column:  keyColumn,
			Count:   duplicates,
			Message: fmt.Sprintf("key column %q has %d duplicate values", keyColumn, duplicates),
		})
	}

	g.checkVolume(&report, name)
	report.log(ctx)
	return report
}

// NegativeAmountWarning wraps the source loader's negative-amount count as
// an advisory warning. It never fails a batch.
func NegativeAmountWarning(source string, count int) Warning {
	return Warning{
		Source:  source,
		Kind:    WarnNegativeAmount,
		Column:  models.ColumnAmount,
		Count:   count,
		Message: fmt.Sprintf("source %s has %d purchases with negative amounts", source, count),
	}
}

func (g *Gate) checkVolume(report *Report, name string) {
	if report.RowCount < g.MinRows {
		report.fail(Warning{
			Source:  name,
			Kind:    WarnLowVolume,
			Count:   report.RowCount,
			Message: fmt.Sprintf("batch %s has %d rows, below the minimum of %d", name, report.RowCount, g.MinRows),
		})
	}
}

func (r *Report) fail(w Warning) {
	r.Passed = false
	r.Warnings = append(r.Warnings, w)
}

func (r *Report) log(ctx context.Context) {
	if r.Passed {
		logging.Ctx(ctx).Debug().
			Str("batch", r.Source).
			Int("rows", r.RowCount).
			Msg("Quality check passed")
		return
	}
	for _, w := range r.Warnings {
		logging.Ctx(ctx).Warn().
			Str("batch", w.Source).
			Str("kind", string(w.Kind)).
			Str("column", w.Column).
			Int("count", w.Count).
			Msg(w.Message)
	}
}

// countNulls counts missing values for a critical event column.
func countNulls(events []models.Event, column string) int {
	nulls := 0
	for _, e := range events {
		switch column {
		case models.ColumnUserID:
			if e.UserID == "" {
				nulls++
			}
		case models.ColumnItemID:
			if e.ItemID == "" {
				nulls++
			}
		case models.ColumnTimestamp:
			if e.Timestamp.IsZero() {
				nulls++
			}
		}
	}
	return nulls
}
