// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Package merge unions the validated event sources into one
// chronologically ordered stream.
//
// Steps are order-sensitive: normalize timestamps, concatenate, stable
// sort ascending by timestamp (ties keep source-relative order: views,
// then purchases, then cart), remove exact full-row duplicates, fill
// missing purchase categories with the "unknown" sentinel. The output is
// consumed read-only by every downstream feature computation.
package merge

import (
	"context"
	"sort"

	"github.com/featuremill/featuremill/internal/logging"
	"github.com/featuremill/featuremill/internal/models"
	"github.com/featuremill/featuremill/internal/source"
)

// Stats summarizes one merge.
type Stats struct {
	Total             int
	DuplicatesRemoved int
	CategoriesFilled  int
}

// Merge produces the single ordered event stream from the three sources.
func Merge(ctx context.Context, s *source.Sources) ([]models.Event, Stats) {
	var stats Stats

	all := make([]models.Event, 0, len(s.Views)+len(s.Purchases)+len(s.Cart))
	all = append(all, s.Views...)
	all = append(all, s.Purchases...)
	all = append(all, s.Cart...)

	// Timestamps were parsed in mixed formats; pin every instant to UTC so
	// ordering and window arithmetic compare like with like.
	for i := range all {
		all[i].Timestamp = all[i].Timestamp.UTC()
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	all, stats.DuplicatesRemoved = dedupe(all)
	stats.CategoriesFilled = fillCategories(all)
	stats.Total = len(all)

	log := logging.Ctx(ctx)
	if stats.DuplicatesRemoved > 0 {
		log.Info().Int("duplicates_removed", stats.DuplicatesRemoved).Msg("Removed duplicate records")
	}
	if stats.CategoriesFilled > 0 {
		log.Warn().Int("categories_filled", stats.CategoriesFilled).Msg("Filled missing category values")
	}
	log.Info().Int("total", stats.Total).Msg("Merged records from all sources")

	return all, stats
}

// dedupe removes exact full-row duplicates, keeping the first occurrence.
// Events are comparable structs, so equality covers every field.
func dedupe(events []models.Event) ([]models.Event, int) {
	seen := make(map[models.Event]struct{}, len(events))
	out := events[:0]
	for _, e := range events {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out, len(events) - len(out)
}

// fillCategories replaces missing purchase categories with the sentinel.
// Category is a purchase-only field, so other kinds are left untouched.
func fillCategories(events []models.Event) int {
	filled := 0
	for i := range events {
		if events[i].Kind == models.KindPurchase && events[i].Category == "" {
			events[i].Category = models.CategoryUnknown
			filled++
		}
	}
	return filled
}
