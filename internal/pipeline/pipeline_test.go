// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/featuremill/featuremill/internal/config"
	"github.com/featuremill/featuremill/internal/models"
	"github.com/featuremill/featuremill/internal/monitor"
	"github.com/featuremill/featuremill/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

// writeSources generates n clean rows per source file. User u0 gets two
// extra purchases: one inside the trailing window and one 31 days stale,
// so the windowed frequency has something to distinguish.
func writeSources(t *testing.T, dir string, n int, amount float64) {
	t.Helper()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	var views, purchases, cart strings.Builder
	views.WriteString("user_id,item_id,timestamp\n")
	purchases.WriteString("user_id,item_id,timestamp,amount,category\n")
	cart.WriteString("user_id,item_id,timestamp\n")

	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Minute).Format(timeLayout)
		fmt.Fprintf(&views, "u%d,i%d,%s\n", i, i, ts)
		fmt.Fprintf(&purchases, "u%d,i%d,%s,%g,books\n", i, i, ts, amount)
		fmt.Fprintf(&cart, "u%d,i%d,%s\n", i, i, ts)
	}
	extra := base.Add(time.Duration(n) * time.Minute).Format(timeLayout)
	fmt.Fprintf(&purchases, "u0,i0,%s,%g,books\n", extra, amount)
	stale := base.AddDate(0, 0, -31).Format(timeLayout)
	fmt.Fprintf(&purchases, "u0,i0,%s,%g,books\n", stale, amount)

	for name, content := range map[string]string{
		"views.csv":     views.String(),
		"purchases.csv": purchases.String(),
		"cart.csv":      cart.String(),
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func testConfig(inputDir, outputDir string) *config.Config {
	cfg := config.Default()
	cfg.Input.Dir = inputDir
	cfg.Output.Dir = outputDir
	return cfg
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
}

func TestRunEndToEnd(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeSources(t, inputDir, 1000, 100)

	p := New(testConfig(inputDir, outputDir), WithClock(fixedClock()))
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.State != StateDone {
		t.Errorf("State = %q, want %q", result.State, StateDone)
	}
	if result.RunID == "" {
		t.Error("RunID is empty")
	}
	// Cold start: no previous snapshot, so no drift alerts.
	if len(result.Alerts) != 0 {
		t.Errorf("Alerts = %+v, want none on first run", result.Alerts)
	}
	if result.Manifest == nil || len(result.Manifest.Files) == 0 {
		t.Fatalf("Manifest = %+v, want written files", result.Manifest)
	}

	if got := result.Snapshot[models.MetricUserCount]; got != 1000 {
		t.Errorf("user_count = %v, want 1000", got)
	}
	if got := result.Snapshot[models.MetricItemCount]; got != 1000 {
		t.Errorf("item_count = %v, want 1000", got)
	}

	// u0's second purchase lands inside the trailing window.
	w, err := store.NewWriter()
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	defer w.Close()
	freq, err := w.ReadPurchaseFrequency(context.Background(),
		filepath.Join(outputDir, store.UserFeaturesDir, models.FeaturePurchaseFrequency+".parquet"))
	if err != nil {
		t.Fatalf("ReadPurchaseFrequency() error = %v", err)
	}
	byUser := make(map[string]int64, len(freq))
	for _, r := range freq {
		byUser[r.UserID] = r.Frequency
	}
	if byUser["u0"] != 2 {
		t.Errorf("u0 frequency = %d, want 2", byUser["u0"])
	}
	if byUser["u1"] != 1 {
		t.Errorf("u1 frequency = %d, want 1", byUser["u1"])
	}

	if _, err := monitor.LoadSnapshot(outputDir); err != nil {
		t.Errorf("LoadSnapshot() error = %v", err)
	}
	if _, err := store.ReadManifest(outputDir); err != nil {
		t.Errorf("ReadManifest() error = %v", err)
	}
}

func TestRunDetectsDriftOnSecondRun(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	writeSources(t, inputDir, 1000, 100)
	if _, err := New(testConfig(inputDir, outputDir), WithClock(fixedClock())).Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// Same population, doubled amounts: avg_check moves 100%, far past
	// its 30% threshold, while the count metrics stay flat.
	writeSources(t, inputDir, 1000, 200)
	result, err := New(testConfig(inputDir, outputDir), WithClock(fixedClock())).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	var checkAlert *models.DriftAlert
	for i := range result.Alerts {
		if result.Alerts[i].Metric == models.MetricAvgCheck {
			checkAlert = &result.Alerts[i]
		} else if result.Alerts[i].Exceeded {
			t.Errorf("unexpected exceeded alert: %+v", result.Alerts[i])
		}
	}
	if checkAlert == nil {
		t.Fatalf("no avg_check alert in %+v", result.Alerts)
	}
	if !checkAlert.Exceeded {
		t.Errorf("avg_check alert not exceeded: %+v", checkAlert)
	}
	if checkAlert.Previous != 100 || checkAlert.Current != 200 {
		t.Errorf("avg_check = %v -> %v, want 100 -> 200", checkAlert.Previous, checkAlert.Current)
	}
}

func TestRunFailureLeavesSnapshotIntact(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	writeSources(t, inputDir, 1000, 100)
	first, err := New(testConfig(inputDir, outputDir), WithClock(fixedClock())).Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// Break the purchases schema: the next run must fail in Loading,
	// before anything under the output root is touched.
	broken := "user_id,item_id,timestamp\nu1,i1,2026-08-01 10:00:00\n"
	if err := os.WriteFile(filepath.Join(inputDir, "purchases.csv"), []byte(broken), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := New(testConfig(inputDir, outputDir), WithClock(fixedClock())).Run(context.Background())
	if err == nil {
		t.Fatal("second Run() expected error")
	}
	if result.State != StateFailed {
		t.Errorf("State = %q, want %q", result.State, StateFailed)
	}

	snapshot, err := monitor.LoadSnapshot(outputDir)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	for metric, value := range first.Snapshot {
		if snapshot[metric] != value {
			t.Errorf("snapshot %s = %v, want untouched %v", metric, snapshot[metric], value)
		}
	}
}

func TestRunEnforcedQualityGate(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeSources(t, inputDir, 100, 50)

	cfg := testConfig(inputDir, outputDir)
	cfg.Quality.Enforcement = config.EnforcementEnforce

	result, err := New(cfg, WithClock(fixedClock())).Run(context.Background())
	if !errors.Is(err, ErrQualityGate) {
		t.Fatalf("Run() error = %v, want ErrQualityGate", err)
	}
	if result.State != StateFailed {
		t.Errorf("State = %q, want %q", result.State, StateFailed)
	}
	if len(result.Warnings) == 0 {
		t.Error("Warnings empty, want low volume warnings")
	}
	// Nothing persisted.
	if _, err := os.Stat(filepath.Join(outputDir, monitor.SnapshotFileName)); !os.IsNotExist(err) {
		t.Error("snapshot written despite enforced gate failure")
	}
}

func TestRunObserveModeContinuesPastGateFailure(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeSources(t, inputDir, 100, 50)

	result, err := New(testConfig(inputDir, outputDir), WithClock(fixedClock())).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.State != StateDone {
		t.Errorf("State = %q, want %q", result.State, StateDone)
	}
	if len(result.Warnings) == 0 {
		t.Error("Warnings empty, want low volume warnings under observe mode")
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateDone, StateFailed} {
		if !s.Terminal() {
			t.Errorf("%q.Terminal() = false, want true", s)
		}
	}
	for _, s := range []State{StateLoading, StateMerging, StatePersisting} {
		if s.Terminal() {
			t.Errorf("%q.Terminal() = true, want false", s)
		}
	}
}
