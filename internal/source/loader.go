// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Package source loads the raw behavioral event files.
//
// Each event kind declares its own required-column set. A source missing a
// required column fails with a SchemaError, which is fatal for the whole
// run: no partial feature generation from incomplete sources. Rows with
// blank critical values are kept (as null-tracked events) so the quality
// gate can count them downstream.
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/featuremill/featuremill/internal/config"
	"github.com/featuremill/featuremill/internal/logging"
	"github.com/featuremill/featuremill/internal/models"
)

// requiredColumns declares the per-kind required-column sets.
var requiredColumns = map[models.EventKind][]string{
	models.KindView:     {models.ColumnUserID, models.ColumnItemID, models.ColumnTimestamp},
	models.KindCartAdd:  {models.ColumnUserID, models.ColumnItemID, models.ColumnTimestamp},
	models.KindPurchase: {models.ColumnUserID, models.ColumnItemID, models.ColumnTimestamp, models.ColumnAmount},
}

// timestampLayouts are tried in order when parsing the timestamp column.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// SchemaError reports required columns missing from a source file.
// It is fatal for the run.
type SchemaError struct {
	Source  string
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source %s (%s) is missing required columns: %s",
		e.Source, e.Path, strings.Join(e.Missing, ", "))
}

// Stats counts advisory observations made during loading. They feed the
// quality gate but never fail the load.
type Stats struct {
	Rows            int
	NegativeAmounts int
}

// Sources holds the three loaded event streams plus per-source stats.
type Sources struct {
	Views     []models.Event
	Purchases []models.Event
	Cart      []models.Event

	PurchaseStats Stats
}

// Load reads one event source and stamps every record with its kind.
// The file must be comma-delimited with a header row.
func Load(ctx context.Context, kind models.EventKind, path string) ([]models.Event, Stats, error) {
	var stats Stats

	f, err := os.Open(path)
	if err != nil {
		return nil, stats, fmt.Errorf("open %s source: %w", kind, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logging.Ctx(ctx).Warn().Err(closeErr).Str("path", path).Msg("Error closing source file")
		}
	}()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read %s header: %w", kind, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	if missing := missingColumns(kind, columns); len(missing) > 0 {
		return nil, stats, &SchemaError{Source: string(kind), Path: path, Missing: missing}
	}

	userIdx := columns[models.ColumnUserID]
	itemIdx := columns[models.ColumnItemID]
	tsIdx := columns[models.ColumnTimestamp]
	amountIdx, hasAmount := columns[models.ColumnAmount]
	categoryIdx, hasCategory := columns[models.ColumnCategory]

	var events []models.Event
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read %s record at line %d: %w", kind, line, err)
		}

		ev := models.Event{
			Kind:   kind,
			UserID: strings.TrimSpace(record[userIdx]),
			ItemID: strings.TrimSpace(record[itemIdx]),
		}

		if raw := strings.TrimSpace(record[tsIdx]); raw != "" {
			ts, err := parseTimestamp(raw)
			if err != nil {
				return nil, stats, fmt.Errorf("parse %s timestamp at line %d: %w", kind, line, err)
			}
			ev.Timestamp = ts
		}

		if kind == models.KindPurchase {
			if hasAmount {
				if raw := strings.TrimSpace(record[amountIdx]); raw != "" {
					amount, err := strconv.ParseFloat(raw, 64)
					if err != nil {
						return nil, stats, fmt.Errorf("parse %s amount at line %d: %w", kind, line, err)
					}
					ev.Amount = amount
					if amount < 0 {
						stats.NegativeAmounts++
					}
				}
			}
			if hasCategory {
				ev.Category = strings.TrimSpace(record[categoryIdx])
			}
		}

		events = append(events, ev)
	}

	stats.Rows = len(events)

	logging.Ctx(ctx).Info().
		Str("source", string(kind)).
		Str("path", path).
		Int("rows", stats.Rows).
		Msg("Source loaded")

	if stats.NegativeAmounts > 0 {
		logging.Ctx(ctx).Warn().
			Str("source", string(kind)).
			Int("negative_amounts", stats.NegativeAmounts).
			Msg("Negative purchase amounts found")
	}

	return events, stats, nil
}

// LoadAll loads the three event sources from the input directory.
// Any SchemaError aborts loading.
func LoadAll(ctx context.Context, cfg config.InputConfig) (*Sources, error) {
	views, _, err := Load(ctx, models.KindView, filepath.Join(cfg.Dir, cfg.ViewsFile))
	if err != nil {
		return nil, err
	}

	purchases, purchaseStats, err := Load(ctx, models.KindPurchase, filepath.Join(cfg.Dir, cfg.PurchasesFile))
	if err != nil {
		return nil, err
	}

	cart, _, err := Load(ctx, models.KindCartAdd, filepath.Join(cfg.Dir, cfg.CartFile))
	if err != nil {
		return nil, err
	}

	return &Sources{
		Views:         views,
		Purchases:     purchases,
		Cart:          cart,
		PurchaseStats: purchaseStats,
	}, nil
}

// missingColumns returns the required columns absent from the header,
// in sorted order for stable error messages.
func missingColumns(kind models.EventKind, columns map[string]int) []string {
	var missing []string
	for _, col := range requiredColumns[kind] {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing
}

// parseTimestamp tries the supported timestamp layouts in order.
// All timestamps are normalized to UTC.
func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format %q", raw)
}
