// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package store

import (
	"context"
	"fmt"

	"github.com/featuremill/featuremill/internal/models"
)

// Reader-side accessors for downstream consumers and round-trip
// verification. Each reads one feature Parquet file back through DuckDB's
// read_parquet.

// ReadPurchaseFrequency loads a purchase_frequency table.
func (w *Writer) ReadPurchaseFrequency(ctx context.Context, path string) ([]models.PurchaseFrequencyRow, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT user_id, purchase_frequency FROM read_parquet(?)`, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rows.Close()

	var out []models.PurchaseFrequencyRow
	for rows.Next() {
		var r models.PurchaseFrequencyRow
		if err := rows.Scan(&r.UserID, &r.Frequency); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReadAverageCheck loads an average_check table.
func (w *Writer) ReadAverageCheck(ctx context.Context, path string) ([]models.AverageCheckRow, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT user_id, average_check FROM read_parquet(?)`, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rows.Close()

	var out []models.AverageCheckRow
	for rows.Next() {
		var r models.AverageCheckRow
		if err := rows.Scan(&r.UserID, &r.AverageCheck); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReadCategoryPreferences loads a category_preferences table.
func (w *Writer) ReadCategoryPreferences(ctx context.Context, path string) ([]models.TopCategoryRow, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT user_id, top_category FROM read_parquet(?)`, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rows.Close()

	var out []models.TopCategoryRow
	for rows.Next() {
		var r models.TopCategoryRow
		if err := rows.Scan(&r.UserID, &r.TopCategory); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReadTimeSinceLastAction loads a time_since_last_action table.
func (w *Writer) ReadTimeSinceLastAction(ctx context.Context, path string) ([]models.LastActionRow, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT user_id, hours_since_last_action FROM read_parquet(?)`, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rows.Close()

	var out []models.LastActionRow
	for rows.Next() {
		var r models.LastActionRow
		if err := rows.Scan(&r.UserID, &r.HoursSinceLastAction); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReadPopularity loads a popularity table.
func (w *Writer) ReadPopularity(ctx context.Context, path string) ([]models.PopularityRow, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT item_id, popularity_score FROM read_parquet(?)`, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rows.Close()

	var out []models.PopularityRow
	for rows.Next() {
		var r models.PopularityRow
		if err := rows.Scan(&r.ItemID, &r.PopularityScore); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
