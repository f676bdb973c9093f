// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Package metrics instruments the pipeline with Prometheus collectors.
//
// The pipeline is a batch job, so there is no HTTP listener: metrics are
// written in text exposition format to a file that a node_exporter
// textfile collector can pick up, when metrics.textfile_path is set.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds one run's operational metrics on a private registry,
// keeping parallel tests from colliding on global collectors.
type Recorder struct {
	registry *prometheus.Registry

	EventsLoaded      *prometheus.CounterVec
	QualityWarnings   *prometheus.CounterVec
	DuplicatesRemoved prometheus.Counter
	CategoriesFilled  prometheus.Counter
	RowsWritten       *prometheus.CounterVec
	DriftAlerts       prometheus.Counter
	StageDuration     *prometheus.GaugeVec
	RunSuccess        prometheus.Gauge
}

// NewRecorder creates a recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		EventsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuremill_events_loaded_total",
				Help: "Events loaded per source kind",
			},
			[]string{"kind"},
		),
		QualityWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuremill_quality_warnings_total",
				Help: "Quality gate warnings per warning kind",
			},
			[]string{"kind"},
		),
		DuplicatesRemoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "featuremill_duplicates_removed_total",
				Help: "Exact duplicate rows removed during merge",
			},
		),
		CategoriesFilled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "featuremill_categories_filled_total",
				Help: "Missing purchase categories replaced with the sentinel",
			},
		),
		RowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuremill_rows_written_total",
				Help: "Feature table rows persisted, per table",
			},
			[]string{"table"},
		),
		DriftAlerts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "featuremill_drift_alerts_total",
				Help: "Drift alerts that exceeded their threshold",
			},
		),
		StageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "featuremill_stage_duration_seconds",
				Help: "Wall-clock duration of each pipeline stage",
			},
			[]string{"stage"},
		),
		RunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "featuremill_run_success",
				Help: "1 when the last run completed, 0 when it failed",
			},
		),
	}

	r.registry.MustRegister(
		r.EventsLoaded,
		r.QualityWarnings,
		r.DuplicatesRemoved,
		r.CategoriesFilled,
		r.RowsWritten,
		r.DriftAlerts,
		r.StageDuration,
		r.RunSuccess,
	)
	return r
}

// Gatherer exposes the registry for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile exports the current metric values for a node_exporter
// textfile collector. Empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
