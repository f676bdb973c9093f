// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package features

import (
	"sort"

	"github.com/featuremill/featuremill/internal/models"
)

// ItemPopularity counts purchases per item over the full purchase stream.
// Items that were only viewed or carted are absent from the output.
func ItemPopularity(purchases []models.Event) []models.PopularityRow {
	if len(purchases) == 0 {
		return nil
	}

	counts := make(map[string]int64)
	for _, p := range purchases {
		counts[p.ItemID]++
	}

	rows := make([]models.PopularityRow, 0, len(counts))
	for item, count := range counts {
		rows = append(rows, models.PopularityRow{ItemID: item, PopularityScore: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ItemID < rows[j].ItemID })
	return rows
}
