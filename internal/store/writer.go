// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Package store persists feature tables as Parquet files through an
// in-memory DuckDB instance, plus the metrics snapshot and a run manifest.
//
// Each file is written to a temp sibling and renamed into place, and the
// manifest is written last naming every file of the run. That makes a
// torn run detectable, but there is no atomicity ACROSS files: a crash
// mid-persist can leave some tables updated and others stale. Callers
// that need stronger guarantees must serialize runs and reconcile against
// the manifest.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/featuremill/featuremill/internal/logging"
	"github.com/featuremill/featuremill/internal/models"
	"github.com/featuremill/featuremill/internal/monitor"
)

// Output layout under the output root.
const (
	UserFeaturesDir = "user_features"
	ItemFeaturesDir = "item_features"
)

// Writer persists feature tables through an in-memory DuckDB database.
type Writer struct {
	db *sql.DB
}

// NewWriter opens the columnar engine.
func NewWriter() (*Writer, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Writer{db: db}, nil
}

// Close releases the engine.
func (w *Writer) Close() error {
	return w.db.Close()
}

// Persist writes one Parquet file per non-empty feature table, the metrics
// snapshot, and finally the run manifest.
func (w *Writer) Persist(ctx context.Context, fs *models.FeatureSet, snapshot models.MetricsSnapshot, outputRoot, runID string) (*Manifest, error) {
	userDir := filepath.Join(outputRoot, UserFeaturesDir)
	itemDir := filepath.Join(outputRoot, ItemFeaturesDir)
	for _, dir := range []string{userDir, itemDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create feature directory: %w", err)
		}
	}

	manifest := NewManifest(runID)

	if len(fs.PurchaseFrequency) > 0 {
		path := parquetPath(userDir, models.FeaturePurchaseFrequency)
		if err := w.writePurchaseFrequency(ctx, fs.PurchaseFrequency, path, runID); err != nil {
			return nil, err
		}
		manifest.Add(path, len(fs.PurchaseFrequency))
		logRows(ctx, path, len(fs.PurchaseFrequency))
	}

	if len(fs.AverageCheck) > 0 {
		path := parquetPath(userDir, models.FeatureAverageCheck)
		if err := w.writeAverageCheck(ctx, fs.AverageCheck, path, runID); err != nil {
			return nil, err
		}
		manifest.Add(path, len(fs.AverageCheck))
		logRows(ctx, path, len(fs.AverageCheck))
	}

	if len(fs.CategoryPreferences) > 0 {
		path := parquetPath(userDir, models.FeatureCategoryPreferences)
		if err := w.writeCategoryPreferences(ctx, fs.CategoryPreferences, path, runID); err != nil {
			return nil, err
		}
		manifest.Add(path, len(fs.CategoryPreferences))
		logRows(ctx, path, len(fs.CategoryPreferences))
	}

	if len(fs.TimeSinceLastAction) > 0 {
		path := parquetPath(userDir, models.FeatureTimeSinceLastAction)
		if err := w.writeTimeSinceLastAction(ctx, fs.TimeSinceLastAction, path, runID); err != nil {
			return nil, err
		}
		manifest.Add(path, len(fs.TimeSinceLastAction))
		logRows(ctx, path, len(fs.TimeSinceLastAction))
	}

	if len(fs.Popularity) > 0 {
		path := parquetPath(itemDir, models.FeaturePopularity)
		if err := w.writePopularity(ctx, fs.Popularity, path, runID); err != nil {
			return nil, err
		}
		manifest.Add(path, len(fs.Popularity))
		logRows(ctx, path, len(fs.Popularity))
	}

	if err := monitor.SaveSnapshot(outputRoot, snapshot); err != nil {
		return nil, err
	}
	manifest.Add(filepath.Join(outputRoot, monitor.SnapshotFileName), len(snapshot))

	if err := manifest.Write(outputRoot); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Int("files", len(manifest.Files)).
		Str("output_root", outputRoot).
		Msg("Feature store persisted")

	return manifest, nil
}

func (w *Writer) writePurchaseFrequency(ctx context.Context, rows []models.PurchaseFrequencyRow, path, runID string) error {
	return w.writeTable(ctx, tableSpec{
		name:    models.FeaturePurchaseFrequency,
		ddl:     `(user_id VARCHAR, purchase_frequency BIGINT)`,
		columns: 2,
		path:    path,
		runID:   runID,
		rows:    len(rows),
		values: func(i int) []any {
			return []any{rows[i].UserID, rows[i].Frequency}
		},
	})
}

func (w *Writer) writeAverageCheck(ctx context.Context, rows []models.AverageCheckRow, path, runID string) error {
	return w.writeTable(ctx, tableSpec{
		name:    models.FeatureAverageCheck,
		ddl:     `(user_id VARCHAR, average_check DOUBLE)`,
		columns: 2,
		path:    path,
		runID:   runID,
		rows:    len(rows),
		values: func(i int) []any {
			return []any{rows[i].UserID, rows[i].AverageCheck}
		},
	})
}

func (w *Writer) writeCategoryPreferences(ctx context.Context, rows []models.TopCategoryRow, path, runID string) error {
	return w.writeTable(ctx, tableSpec{
		name:    models.FeatureCategoryPreferences,
		ddl:     `(user_id VARCHAR, top_category VARCHAR)`,
		columns: 2,
		path:    path,
		runID:   runID,
		rows:    len(rows),
		values: func(i int) []any {
			return []any{rows[i].UserID, rows[i].TopCategory}
		},
	})
}

func (w *Writer) writeTimeSinceLastAction(ctx context.Context, rows []models.LastActionRow, path, runID string) error {
	return w.writeTable(ctx, tableSpec{
		name:    models.FeatureTimeSinceLastAction,
		ddl:     `(user_id VARCHAR, hours_since_last_action DOUBLE)`,
		columns: 2,
		path:    path,
		runID:   runID,
		rows:    len(rows),
		values: func(i int) []any {
			return []any{rows[i].UserID, rows[i].HoursSinceLastAction}
		},
	})
}

func (w *Writer) writePopularity(ctx context.Context, rows []models.PopularityRow, path, runID string) error {
	return w.writeTable(ctx, tableSpec{
		name:    models.FeaturePopularity,
		ddl:     `(item_id VARCHAR, popularity_score BIGINT)`,
		columns: 2,
		path:    path,
		runID:   runID,
		rows:    len(rows),
		values: func(i int) []any {
			return []any{rows[i].ItemID, rows[i].PopularityScore}
		},
	})
}

// tableSpec describes one feature table materialization.
type tableSpec struct {
	name    string
	ddl     string
	columns int
	path    string
	runID   string
	rows    int
	values  func(i int) []any
}

// writeTable materializes rows into a transient DuckDB table and copies it
// out as Parquet via temp-file-then-rename.
func (w *Writer) writeTable(ctx context.Context, spec tableSpec) error {
	table := fmt.Sprintf("export_%s", spec.name)

	if _, err := w.db.ExecContext(ctx, fmt.Sprintf(`CREATE OR REPLACE TABLE %s %s`, table, spec.ddl)); err != nil {
		return fmt.Errorf("create export table %s: %w", spec.name, err)
	}
	defer func() {
		if _, err := w.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("table", table).Msg("Failed to drop export table")
		}
	}()

	placeholders := "?"
	for i := 1; i < spec.columns; i++ {
		placeholders += ", ?"
	}
	stmt, err := w.db.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s VALUES (%s)`, table, placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert for %s: %w", spec.name, err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("table", table).Msg("Failed to close insert statement")
		}
	}()

	for i := 0; i < spec.rows; i++ {
		if _, err := stmt.ExecContext(ctx, spec.values(i)...); err != nil {
			return fmt.Errorf("insert row into %s: %w", spec.name, err)
		}
	}

	tmp := fmt.Sprintf("%s.tmp-%s", spec.path, spec.runID)
	copyQuery := fmt.Sprintf(`COPY %s TO ? (FORMAT PARQUET)`, table)
	if _, err := w.db.ExecContext(ctx, copyQuery, tmp); err != nil {
		return fmt.Errorf("export %s to parquet: %w", spec.name, err)
	}

	if err := os.Rename(tmp, spec.path); err != nil {
		return fmt.Errorf("replace %s: %w", spec.path, err)
	}
	return nil
}

func parquetPath(dir, feature string) string {
	return filepath.Join(dir, feature+".parquet")
}

func logRows(ctx context.Context, path string, rows int) {
	logging.Ctx(ctx).Info().Str("path", path).Int("rows", rows).Msg("Feature table written")
}
