// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Package pipeline orchestrates one batch run: load, validate, merge,
// generate features, re-validate, collect metrics, detect drift, persist.
//
// The pipeline is single-shot: one invocation processes one snapshot of
// the input files to completion. The only cross-run state is the metrics
// snapshot file, read once at run start and overwritten once at run end.
// Concurrent runs against the same output directory race on that file and
// must be serialized externally. No retries happen here; re-invocation
// belongs to the scheduler that runs the pipeline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/featuremill/featuremill/internal/alert"
	"github.com/featuremill/featuremill/internal/config"
	"github.com/featuremill/featuremill/internal/features"
	"github.com/featuremill/featuremill/internal/logging"
	"github.com/featuremill/featuremill/internal/merge"
	"github.com/featuremill/featuremill/internal/metrics"
	"github.com/featuremill/featuremill/internal/models"
	"github.com/featuremill/featuremill/internal/monitor"
	"github.com/featuremill/featuremill/internal/quality"
	"github.com/featuremill/featuremill/internal/source"
	"github.com/featuremill/featuremill/internal/store"
)

// ErrQualityGate is returned when a gate failure aborts the run under
// enforce mode.
var ErrQualityGate = errors.New("quality gate failed")

// Result summarizes one run.
type Result struct {
	RunID    string
	State    State
	Duration time.Duration

	MergeStats merge.Stats
	Snapshot   models.MetricsSnapshot
	Alerts     []models.DriftAlert
	Warnings   []quality.Warning
	Manifest   *store.Manifest
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock injects the wall clock used for run timing and the
// time_since_last_action feature. Tests use a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithDispatcher replaces the default log-only alert dispatcher.
func WithDispatcher(d *alert.Dispatcher) Option {
	return func(p *Pipeline) { p.dispatcher = d }
}

// WithRecorder replaces the operational metrics recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// Pipeline runs the batch feature-engineering flow.
type Pipeline struct {
	cfg        *config.Config
	dispatcher *alert.Dispatcher
	recorder   *metrics.Recorder
	now        func() time.Time
}

// New creates a pipeline for the given configuration.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		dispatcher: alert.NewDispatcher(alert.NewLogNotifier()),
		recorder:   metrics.NewRecorder(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one pipeline run to completion. On error the returned
// Result carries StateFailed and whatever was computed before the
// failure; no feature output has been written in that case.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := logging.GenerateRunID()
	ctx = logging.ContextWithRunID(ctx, runID)

	start := p.now()
	result := &Result{RunID: runID}

	logging.Ctx(ctx).Info().
		Str("input_dir", p.cfg.Input.Dir).
		Str("output_dir", p.cfg.Output.Dir).
		Msg("Pipeline run started")

	err := p.run(ctx, result)

	result.Duration = p.now().Sub(start)
	p.recorder.StageDuration.WithLabelValues("total").Set(result.Duration.Seconds())

	if err != nil {
		result.State = StateFailed
		p.recorder.RunSuccess.Set(0)
		p.writeTextfile(ctx)
		logging.Ctx(ctx).Error().Err(err).Dur("duration", result.Duration).Msg("Pipeline run failed")
		return result, err
	}

	result.State = StateDone
	p.recorder.RunSuccess.Set(1)
	p.writeTextfile(ctx)
	logging.Ctx(ctx).Info().Dur("duration", result.Duration).Msg("Pipeline run completed")
	return result, nil
}

// run walks the state machine. Any returned error moves the run to
// Failed; stages after the failing one never execute.
func (p *Pipeline) run(ctx context.Context, result *Result) error {
	gate := quality.NewGate(p.cfg.Quality.MinRows)

	// Loading
	sources, err := p.stageLoad(ctx)
	if err != nil {
		return err
	}

	// Validating
	if err := p.stageValidateSources(ctx, gate, sources, result); err != nil {
		return err
	}

	// Merging
	stream := p.stageMerge(ctx, sources, result)

	// GeneratingFeatures
	fs := p.stageGenerate(ctx, stream)

	// ValidatingFeatures
	if err := p.stageValidateFeatures(ctx, gate, fs, result); err != nil {
		return err
	}

	// CollectingMetrics
	p.logStage(ctx, StateCollectingMetrics)
	collectStart := p.now()
	result.Snapshot = monitor.Collect(fs)
	p.observeStage(StateCollectingMetrics, collectStart)

	// DetectingDrift
	if err := p.stageDetectDrift(ctx, result); err != nil {
		return err
	}

	// Alerts and warnings go out before persisting so a persist failure
	// still leaves the findings reported.
	p.dispatcher.Dispatch(ctx, alert.Payload{
		RunID:       result.RunID,
		GeneratedAt: p.now(),
		Alerts:      result.Alerts,
		Warnings:    result.Warnings,
	})

	// Persisting
	return p.stagePersist(ctx, fs, result)
}

func (p *Pipeline) stageLoad(ctx context.Context) (*source.Sources, error) {
	p.logStage(ctx, StateLoading)
	start := p.now()
	defer p.observeStage(StateLoading, start)

	sources, err := source.LoadAll(ctx, p.cfg.Input)
	if err != nil {
		return nil, err
	}

	p.recorder.EventsLoaded.WithLabelValues(string(models.KindView)).Add(float64(len(sources.Views)))
	p.recorder.EventsLoaded.WithLabelValues(string(models.KindPurchase)).Add(float64(len(sources.Purchases)))
	p.recorder.EventsLoaded.WithLabelValues(string(models.KindCartAdd)).Add(float64(len(sources.Cart)))
	return sources, nil
}

func (p *Pipeline) stageValidateSources(ctx context.Context, gate *quality.Gate, sources *source.Sources, result *Result) error {
	p.logStage(ctx, StateValidating)
	start := p.now()
	defer p.observeStage(StateValidating, start)

	reports := []quality.Report{
		gate.CheckEvents(ctx, "views", sources.Views, models.CriticalColumns),
		gate.CheckEvents(ctx, "purchases", sources.Purchases, models.CriticalColumns),
		gate.CheckEvents(ctx, "cart", sources.Cart, models.CriticalColumns),
	}

	if sources.PurchaseStats.NegativeAmounts > 0 {
		result.Warnings = append(result.Warnings,
			quality.NegativeAmountWarning("purchases", sources.PurchaseStats.NegativeAmounts))
	}

	return p.applyReports(ctx, reports, result)
}

func (p *Pipeline) stageMerge(ctx context.Context, sources *source.Sources, result *Result) []models.Event {
	p.logStage(ctx, StateMerging)
	start := p.now()
	defer p.observeStage(StateMerging, start)

	stream, stats := merge.Merge(ctx, sources)
	result.MergeStats = stats
	p.recorder.DuplicatesRemoved.Add(float64(stats.DuplicatesRemoved))
	p.recorder.CategoriesFilled.Add(float64(stats.CategoriesFilled))
	return stream
}

func (p *Pipeline) stageGenerate(ctx context.Context, stream []models.Event) *models.FeatureSet {
	p.logStage(ctx, StateGeneratingFeatures)
	start := p.now()
	defer p.observeStage(StateGeneratingFeatures, start)

	gen := features.NewGenerator(features.Config{
		Window:   time.Duration(p.cfg.Features.WindowDays) * 24 * time.Hour,
		TieBreak: p.cfg.Features.TieBreak,
	}, p.now)
	return gen.Generate(ctx, stream)
}

func (p *Pipeline) stageValidateFeatures(ctx context.Context, gate *quality.Gate, fs *models.FeatureSet, result *Result) error {
	p.logStage(ctx, StateValidatingFeatures)
	start := p.now()
	defer p.observeStage(StateValidatingFeatures, start)

	var reports []quality.Report
	if len(fs.PurchaseFrequency) > 0 {
		keys := models.UserFeatureKeys(fs.PurchaseFrequency, func(r models.PurchaseFrequencyRow) string { return r.UserID })
		reports = append(reports, gate.CheckKeys(ctx, models.FeaturePurchaseFrequency, models.ColumnUserID, keys))
	}
	if len(fs.AverageCheck) > 0 {
		keys := models.UserFeatureKeys(fs.AverageCheck, func(r models.AverageCheckRow) string { return r.UserID })
		reports = append(reports, gate.CheckKeys(ctx, models.FeatureAverageCheck, models.ColumnUserID, keys))
	}
	if len(fs.CategoryPreferences) > 0 {
		keys := models.UserFeatureKeys(fs.CategoryPreferences, func(r models.TopCategoryRow) string { return r.UserID })
		reports = append(reports, gate.CheckKeys(ctx, models.FeatureCategoryPreferences, models.ColumnUserID, keys))
	}
	if len(fs.TimeSinceLastAction) > 0 {
		keys := models.UserFeatureKeys(fs.TimeSinceLastAction, func(r models.LastActionRow) string { return r.UserID })
		reports = append(reports, gate.CheckKeys(ctx, models.FeatureTimeSinceLastAction, models.ColumnUserID, keys))
	}
	if len(fs.Popularity) > 0 {
		keys := models.UserFeatureKeys(fs.Popularity, func(r models.PopularityRow) string { return r.ItemID })
		reports = append(reports, gate.CheckKeys(ctx, models.FeaturePopularity, models.ColumnItemID, keys))
	}

	return p.applyReports(ctx, reports, result)
}

func (p *Pipeline) stageDetectDrift(ctx context.Context, result *Result) error {
	p.logStage(ctx, StateDetectingDrift)
	start := p.now()
	defer p.observeStage(StateDetectingDrift, start)

	previous, err := monitor.LoadSnapshot(p.cfg.Output.Dir)
	if err != nil {
		if errors.Is(err, monitor.ErrNoSnapshot) {
			previous = nil
		} else {
			return err
		}
	}

	result.Alerts = monitor.Detect(ctx, result.Snapshot, previous, p.cfg.Drift.Thresholds)
	for _, a := range result.Alerts {
		if a.Exceeded {
			p.recorder.DriftAlerts.Inc()
		}
	}
	return nil
}

func (p *Pipeline) stagePersist(ctx context.Context, fs *models.FeatureSet, result *Result) error {
	p.logStage(ctx, StatePersisting)
	start := p.now()
	defer p.observeStage(StatePersisting, start)

	writer, err := store.NewWriter()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil {
			logging.Ctx(ctx).Warn().Err(closeErr).Msg("Error closing feature store writer")
		}
	}()

	manifest, err := writer.Persist(ctx, fs, result.Snapshot, p.cfg.Output.Dir, result.RunID)
	if err != nil {
		return err
	}
	result.Manifest = manifest

	for _, entry := range manifest.Files {
		p.recorder.RowsWritten.WithLabelValues(entry.Path).Add(float64(entry.Rows))
	}
	return nil
}

// applyReports folds gate reports into the result and, under enforce
// mode, fails the run on the first failed report.
func (p *Pipeline) applyReports(ctx context.Context, reports []quality.Report, result *Result) error {
	failed := ""
	for _, report := range reports {
		result.Warnings = append(result.Warnings, report.Warnings...)
		for _, w := range report.Warnings {
			p.recorder.QualityWarnings.WithLabelValues(string(w.Kind)).Inc()
		}
		if !report.Passed && failed == "" {
			failed = report.Source
		}
	}

	if failed == "" {
		return nil
	}

	if p.cfg.Quality.Enforcement == config.EnforcementEnforce {
		return fmt.Errorf("%w: batch %s", ErrQualityGate, failed)
	}

	logging.Ctx(ctx).Warn().
		Str("batch", failed).
		Msg("Quality gate failed, continuing under observe enforcement")
	return nil
}

func (p *Pipeline) logStage(ctx context.Context, state State) {
	logging.Ctx(ctx).Info().Str("stage", string(state)).Msg("Stage started")
}

func (p *Pipeline) observeStage(state State, start time.Time) {
	p.recorder.StageDuration.WithLabelValues(string(state)).Set(p.now().Sub(start).Seconds())
}

func (p *Pipeline) writeTextfile(ctx context.Context) {
	if err := p.recorder.WriteTextfile(p.cfg.Metrics.TextfilePath); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to write metrics textfile")
	}
}
