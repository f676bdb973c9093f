// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package models

// Feature table names as they appear under the output root.
const (
	FeaturePurchaseFrequency   = "purchase_frequency"
	FeatureAverageCheck        = "average_check"
	FeatureCategoryPreferences = "category_preferences"
	FeatureTimeSinceLastAction = "time_since_last_action"
	FeaturePopularity          = "popularity"
)

// PurchaseFrequencyRow is one row of the purchase_frequency user table:
// the number of purchases a user made inside the trailing window.
type PurchaseFrequencyRow struct {
	UserID    string `json:"user_id"`
	Frequency int64  `json:"purchase_frequency"`
}

// AverageCheckRow is one row of the average_check user table: the mean
// purchase amount over all of a user's purchases.
type AverageCheckRow struct {
	UserID       string  `json:"user_id"`
	AverageCheck float64 `json:"average_check"`
}

// TopCategoryRow is one row of the category_preferences user table: the
// category the user purchased from most often.
type TopCategoryRow struct {
	UserID      string `json:"user_id"`
	TopCategory string `json:"top_category"`
}

// LastActionRow is one row of the time_since_last_action user table:
// hours elapsed between the user's latest event of any kind and the
// pipeline run time. Reruns over the same input produce different values.
type LastActionRow struct {
	UserID               string  `json:"user_id"`
	HoursSinceLastAction float64 `json:"hours_since_last_action"`
}

// PopularityRow is one row of the popularity item table: the purchase
// count of an item.
type PopularityRow struct {
	ItemID          string `json:"item_id"`
	PopularityScore int64  `json:"popularity_score"`
}

// FeatureSet holds every generated feature table for one pipeline run.
// A nil or empty slice means the table had no qualifying events and is
// not persisted. Within each table the key column is unique.
type FeatureSet struct {
	PurchaseFrequency   []PurchaseFrequencyRow
	AverageCheck        []AverageCheckRow
	CategoryPreferences []TopCategoryRow
	TimeSinceLastAction []LastActionRow
	Popularity          []PopularityRow
}

// UserFeatureKeys returns the user_id column of a user feature table as a
// plain slice, for quality-gate key checks.
func UserFeatureKeys[T any](rows []T, key func(T) string) []string {
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, key(r))
	}
	return keys
}
