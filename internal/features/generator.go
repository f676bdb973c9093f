// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Package features computes the per-user and per-item aggregate feature
// tables from the merged event stream.
//
// Every computation is pure and read-only over the stream, so the
// generator fans the five out on goroutines and joins before returning.
// Each writes a disjoint FeatureSet field; no synchronization is needed
// beyond the barrier.
package features

import (
	"context"
	"sync"
	"time"

	"github.com/featuremill/featuremill/internal/config"
	"github.com/featuremill/featuremill/internal/logging"
	"github.com/featuremill/featuremill/internal/models"
)

// Config tunes feature generation.
type Config struct {
	// Window is the trailing look-back for purchase frequency.
	Window time.Duration

	// TieBreak is the category-preference tie-break rule.
	TieBreak string
}

// DefaultConfig returns the standard 30-day window with deterministic
// lexicographic tie-breaking.
func DefaultConfig() Config {
	return Config{
		Window:   30 * 24 * time.Hour,
		TieBreak: config.TieBreakLexicographic,
	}
}

// Generator computes feature tables. The clock is injected so that
// time_since_last_action is testable; production uses time.Now.
type Generator struct {
	cfg Config
	now func() time.Time
}

// NewGenerator creates a generator. A nil now falls back to time.Now.
func NewGenerator(cfg Config, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	if cfg.Window <= 0 {
		cfg.Window = 30 * 24 * time.Hour
	}
	if cfg.TieBreak == "" {
		cfg.TieBreak = config.TieBreakLexicographic
	}
	return &Generator{cfg: cfg, now: now}
}

// Generate computes all feature tables from the merged stream.
// An empty purchase subset yields empty purchase-derived tables rather
// than an error; callers must tolerate empty tables downstream.
func (g *Generator) Generate(ctx context.Context, events []models.Event) *models.FeatureSet {
	purchases := purchaseSubset(events)
	now := g.now()

	fs := &models.FeatureSet{}

	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		defer wg.Done()
		fs.PurchaseFrequency = PurchaseFrequency(purchases, g.cfg.Window)
	}()
	go func() {
		defer wg.Done()
		fs.AverageCheck = AverageCheck(purchases)
	}()
	go func() {
		defer wg.Done()
		fs.CategoryPreferences = CategoryPreferences(purchases, g.cfg.TieBreak)
	}()
	go func() {
		defer wg.Done()
		fs.TimeSinceLastAction = TimeSinceLastAction(events, now)
	}()
	go func() {
		defer wg.Done()
		fs.Popularity = ItemPopularity(purchases)
	}()
	wg.Wait()

	logging.Ctx(ctx).Info().
		Int("purchase_frequency", len(fs.PurchaseFrequency)).
		Int("average_check", len(fs.AverageCheck)).
		Int("category_preferences", len(fs.CategoryPreferences)).
		Int("time_since_last_action", len(fs.TimeSinceLastAction)).
		Int("popularity", len(fs.Popularity)).
		Msg("Feature generation complete")

	return fs
}

// purchaseSubset extracts the purchase events from the merged stream,
// preserving order.
func purchaseSubset(events []models.Event) []models.Event {
	var purchases []models.Event
	for _, e := range events {
		if e.IsPurchase() {
			purchases = append(purchases, e)
		}
	}
	return purchases
}
