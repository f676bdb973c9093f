// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/featuremill/featuremill/internal/models"
	"github.com/featuremill/featuremill/internal/monitor"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter()
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return w
}

func testFeatureSet() *models.FeatureSet {
	return &models.FeatureSet{
		PurchaseFrequency: []models.PurchaseFrequencyRow{
			{UserID: "u1", Frequency: 3},
			{UserID: "u2", Frequency: 1},
		},
		AverageCheck: []models.AverageCheckRow{
			{UserID: "u1", AverageCheck: 750.5},
			{UserID: "u2", AverageCheck: 120},
		},
		CategoryPreferences: []models.TopCategoryRow{
			{UserID: "u1", TopCategory: "books"},
			{UserID: "u2", TopCategory: "games"},
		},
		TimeSinceLastAction: []models.LastActionRow{
			{UserID: "u1", HoursSinceLastAction: 2.5},
			{UserID: "u2", HoursSinceLastAction: 48},
		},
		Popularity: []models.PopularityRow{
			{ItemID: "i1", PopularityScore: 4},
			{ItemID: "i2", PopularityScore: 2},
		},
	}
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	w := newTestWriter(t)
	root := t.TempDir()
	fs := testFeatureSet()
	snapshot := models.MetricsSnapshot{models.MetricUserCount: 2}

	manifest, err := w.Persist(ctx, fs, snapshot, root, "run-1")
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	// Five feature tables plus the snapshot.
	if len(manifest.Files) != 6 {
		t.Errorf("manifest files = %d, want 6", len(manifest.Files))
	}

	freq, err := w.ReadPurchaseFrequency(ctx, filepath.Join(root, UserFeaturesDir, models.FeaturePurchaseFrequency+".parquet"))
	if err != nil {
		t.Fatalf("ReadPurchaseFrequency() error = %v", err)
	}
	assertRowSet(t, freq, fs.PurchaseFrequency, func(r models.PurchaseFrequencyRow) string { return r.UserID })

	check, err := w.ReadAverageCheck(ctx, filepath.Join(root, UserFeaturesDir, models.FeatureAverageCheck+".parquet"))
	if err != nil {
		t.Fatalf("ReadAverageCheck() error = %v", err)
	}
	assertRowSet(t, check, fs.AverageCheck, func(r models.AverageCheckRow) string { return r.UserID })

	cats, err := w.ReadCategoryPreferences(ctx, filepath.Join(root, UserFeaturesDir, models.FeatureCategoryPreferences+".parquet"))
	if err != nil {
		t.Fatalf("ReadCategoryPreferences() error = %v", err)
	}
	assertRowSet(t, cats, fs.CategoryPreferences, func(r models.TopCategoryRow) string { return r.UserID })

	last, err := w.ReadTimeSinceLastAction(ctx, filepath.Join(root, UserFeaturesDir, models.FeatureTimeSinceLastAction+".parquet"))
	if err != nil {
		t.Fatalf("ReadTimeSinceLastAction() error = %v", err)
	}
	assertRowSet(t, last, fs.TimeSinceLastAction, func(r models.LastActionRow) string { return r.UserID })

	pop, err := w.ReadPopularity(ctx, filepath.Join(root, ItemFeaturesDir, models.FeaturePopularity+".parquet"))
	if err != nil {
		t.Fatalf("ReadPopularity() error = %v", err)
	}
	assertRowSet(t, pop, fs.Popularity, func(r models.PopularityRow) string { return r.ItemID })
}

// assertRowSet compares rows as sets keyed by id; Parquet read order is
// not part of the contract.
func assertRowSet[T comparable](t *testing.T, got, want []T, key func(T) string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	byKey := make(map[string]T, len(want))
	for _, r := range want {
		byKey[key(r)] = r
	}
	for _, r := range got {
		if byKey[key(r)] != r {
			t.Errorf("row %+v does not match %+v", r, byKey[key(r)])
		}
	}
}

func TestPersistSkipsEmptyTables(t *testing.T) {
	ctx := context.Background()
	w := newTestWriter(t)
	root := t.TempDir()

	fs := &models.FeatureSet{
		Popularity: []models.PopularityRow{{ItemID: "i1", PopularityScore: 1}},
	}

	manifest, err := w.Persist(ctx, fs, models.MetricsSnapshot{}, root, "run-2")
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	// Only popularity and the snapshot.
	if len(manifest.Files) != 2 {
		t.Errorf("manifest files = %d, want 2", len(manifest.Files))
	}
	if _, err := os.Stat(filepath.Join(root, UserFeaturesDir, models.FeaturePurchaseFrequency+".parquet")); !os.IsNotExist(err) {
		t.Error("empty purchase_frequency table was written")
	}
}

func TestPersistWritesSnapshotAndManifest(t *testing.T) {
	ctx := context.Background()
	w := newTestWriter(t)
	root := t.TempDir()
	snapshot := models.MetricsSnapshot{
		models.MetricItemCount:     1,
		models.MetricAvgPopularity: 5,
	}

	fs := &models.FeatureSet{
		Popularity: []models.PopularityRow{{ItemID: "i1", PopularityScore: 5}},
	}
	if _, err := w.Persist(ctx, fs, snapshot, root, "run-3"); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	loaded, err := monitor.LoadSnapshot(root)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if loaded[models.MetricAvgPopularity] != 5 {
		t.Errorf("snapshot avg_popularity = %v, want 5", loaded[models.MetricAvgPopularity])
	}

	manifest, err := ReadManifest(root)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if manifest.RunID != "run-3" {
		t.Errorf("manifest run id = %q, want %q", manifest.RunID, "run-3")
	}
	if manifest.GeneratedAt.IsZero() {
		t.Error("manifest GeneratedAt is zero")
	}
}

func TestPersistOverwritesPreviousRun(t *testing.T) {
	ctx := context.Background()
	w := newTestWriter(t)
	root := t.TempDir()

	first := &models.FeatureSet{
		Popularity: []models.PopularityRow{
			{ItemID: "i1", PopularityScore: 1},
			{ItemID: "i2", PopularityScore: 1},
		},
	}
	if _, err := w.Persist(ctx, first, models.MetricsSnapshot{}, root, "run-a"); err != nil {
		t.Fatalf("Persist() first error = %v", err)
	}

	second := &models.FeatureSet{
		Popularity: []models.PopularityRow{{ItemID: "i9", PopularityScore: 7}},
	}
	if _, err := w.Persist(ctx, second, models.MetricsSnapshot{}, root, "run-b"); err != nil {
		t.Fatalf("Persist() second error = %v", err)
	}

	pop, err := w.ReadPopularity(ctx, filepath.Join(root, ItemFeaturesDir, models.FeaturePopularity+".parquet"))
	if err != nil {
		t.Fatalf("ReadPopularity() error = %v", err)
	}
	if len(pop) != 1 || pop[0].ItemID != "i9" {
		t.Errorf("popularity after second run = %+v, want only i9", pop)
	}
}
