// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Package models defines the core data types shared by all pipeline stages:
// behavioral events, feature table rows, the metrics snapshot, and drift
// alerts. Events are immutable once loaded; stages filter and group them but
// never mutate them in place.
package models

import (
	"time"
)

// EventKind identifies the type of a behavioral event.
type EventKind string

const (
	// KindView is a product page view.
	KindView EventKind = "view"

	// KindPurchase is a completed purchase. Purchases carry an amount and
	// an optional category.
	KindPurchase EventKind = "purchase"

	// KindCartAdd is an add-to-cart action.
	KindCartAdd EventKind = "cart"
)

// CategoryUnknown is the sentinel used for purchases without a category.
const CategoryUnknown = "unknown"

// Event is one timestamped user/item interaction.
//
// Missing values survive loading so the quality gate can count them:
// an empty UserID or ItemID and a zero Timestamp represent nulls in the
// source file. Amount and Category are only meaningful for KindPurchase.
//
// The struct must stay comparable: the merger keys a map on whole
// events for exact full-row deduplication.
type Event struct {
	Kind      EventKind `json:"event_type"`
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Timestamp time.Time `json:"timestamp"`

	// Amount is the purchase total. Negative values are permitted but
	// flagged by the source loader.
	Amount float64 `json:"amount,omitempty"`

	// Category is the purchase category, empty until the merger fills the
	// CategoryUnknown sentinel.
	Category string `json:"category,omitempty"`
}

// IsPurchase reports whether the event is a purchase.
func (e Event) IsPurchase() bool {
	return e.Kind == KindPurchase
}

// Column names shared by loaders and the quality gate.
const (
	ColumnUserID    = "user_id"
	ColumnItemID    = "item_id"
	ColumnTimestamp = "timestamp"
	ColumnAmount    = "amount"
	ColumnCategory  = "category"
)

// CriticalColumns is the default critical-column set applied to raw event
// batches before they are trusted downstream.
var CriticalColumns = []string{ColumnUserID, ColumnItemID, ColumnTimestamp}
