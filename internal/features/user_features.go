// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package features

import (
	"sort"
	"time"

	"github.com/featuremill/featuremill/internal/config"
	"github.com/featuremill/featuremill/internal/models"
)

// PurchaseFrequency counts purchases per user inside the trailing window.
// The window ends at the latest purchase timestamp and spans the given
// duration; purchases exactly at the window start are included. Users with
// zero qualifying purchases are absent from the output, not zero-filled.
func PurchaseFrequency(purchases []models.Event, window time.Duration) []models.PurchaseFrequencyRow {
	if len(purchases) == 0 {
		return nil
	}

	windowEnd := purchases[0].Timestamp
	for _, p := range purchases[1:] {
		if p.Timestamp.After(windowEnd) {
			windowEnd = p.Timestamp
		}
	}
	windowStart := windowEnd.Add(-window)

	counts := make(map[string]int64)
	for _, p := range purchases {
		if !p.Timestamp.Before(windowStart) {
			counts[p.UserID]++
		}
	}

	rows := make([]models.PurchaseFrequencyRow, 0, len(counts))
	for user, count := range counts {
		rows = append(rows, models.PurchaseFrequencyRow{UserID: user, Frequency: count})
	}
	sortByUser(rows, func(r models.PurchaseFrequencyRow) string { return r.UserID })
	return rows
}

// AverageCheck computes the mean purchase amount per user over all
// purchases, unwindowed.
func AverageCheck(purchases []models.Event) []models.AverageCheckRow {
	if len(purchases) == 0 {
		return nil
	}

	sums := make(map[string]float64)
	counts := make(map[string]int64)
	for _, p := range purchases {
		sums[p.UserID] += p.Amount
		counts[p.UserID]++
	}

	rows := make([]models.AverageCheckRow, 0, len(sums))
	for user, sum := range sums {
		rows = append(rows, models.AverageCheckRow{
			UserID:       user,
			AverageCheck: sum / float64(counts[user]),
		})
	}
	sortByUser(rows, func(r models.AverageCheckRow) string { return r.UserID })
	return rows
}

// TimeSinceLastAction computes hours between each user's latest event of
// any kind and now. The result depends on the wall clock at run time;
// reruns of the same input produce different values. That is expected
// behavior for this feature, not a defect.
func TimeSinceLastAction(events []models.Event, now time.Time) []models.LastActionRow {
	if len(events) == 0 {
		return nil
	}

	last := make(map[string]time.Time)
	for _, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		if ts, ok := last[e.UserID]; !ok || e.Timestamp.After(ts) {
			last[e.UserID] = e.Timestamp
		}
	}

	rows := make([]models.LastActionRow, 0, len(last))
	for user, ts := range last {
		rows = append(rows, models.LastActionRow{
			UserID:               user,
			HoursSinceLastAction: now.Sub(ts).Hours(),
		})
	}
	sortByUser(rows, func(r models.LastActionRow) string { return r.UserID })
	return rows
}

// CategoryPreferences finds each user's most purchased category. Ties on
// the maximum count are resolved by the given rule: lexicographic picks
// the smallest category name, first_seen picks the category that appeared
// earliest in the purchase stream.
func CategoryPreferences(purchases []models.Event, tieBreak string) []models.TopCategoryRow {
	if len(purchases) == 0 {
		return nil
	}

	type categoryCount struct {
		counts    map[string]int64
		firstSeen map[string]int
	}

	byUser := make(map[string]*categoryCount)
	order := 0
	for _, p := range purchases {
		cc, ok := byUser[p.UserID]
		if !ok {
			cc = &categoryCount{
				counts:    make(map[string]int64),
				firstSeen: make(map[string]int),
			}
			byUser[p.UserID] = cc
		}
		if _, ok := cc.firstSeen[p.Category]; !ok {
			cc.firstSeen[p.Category] = order
		}
		cc.counts[p.Category]++
		order++
	}

	rows := make([]models.TopCategoryRow, 0, len(byUser))
	for user, cc := range byUser {
		rows = append(rows, models.TopCategoryRow{
			UserID:      user,
			TopCategory: topCategory(cc.counts, cc.firstSeen, tieBreak),
		})
	}
	sortByUser(rows, func(r models.TopCategoryRow) string { return r.UserID })
	return rows
}

// topCategory applies the tie-break rule over a user's category counts.
func topCategory(counts map[string]int64, firstSeen map[string]int, tieBreak string) string {
	var best string
	var bestCount int64 = -1
	for category, count := range counts {
		if count < bestCount {
			continue
		}
		if count > bestCount {
			best = category
			bestCount = count
			continue
		}
		switch tieBreak {
		case config.TieBreakFirstSeen:
			if firstSeen[category] < firstSeen[best] {
				best = category
			}
		default: // lexicographic
			if category < best {
				best = category
			}
		}
	}
	return best
}

// sortByUser orders rows by their key for deterministic output.
func sortByUser[T any](rows []T, key func(T) string) {
	sort.Slice(rows, func(i, j int) bool { return key(rows[i]) < key(rows[j]) })
}
