// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Package alert fans out drift alerts and quality warnings to notifiers.
//
// Only the logging notifier ships with the pipeline. The Payload carries
// everything an outbound channel (webhook, email) would need, so adding
// one later is a new Notifier implementation with no upstream change.
package alert

import (
	"context"
	"time"

	"github.com/featuremill/featuremill/internal/logging"
	"github.com/featuremill/featuremill/internal/models"
	"github.com/featuremill/featuremill/internal/quality"
)

// Payload is one run's alert report.
type Payload struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Alerts      []models.DriftAlert `json:"alerts,omitempty"`
	Warnings    []quality.Warning   `json:"warnings,omitempty"`
}

// HasFindings reports whether anything is worth notifying about: at least
// one exceeded drift metric or one quality warning.
func (p Payload) HasFindings() bool {
	for _, a := range p.Alerts {
		if a.Exceeded {
			return true
		}
	}
	return len(p.Warnings) > 0
}

// Notifier delivers one run's alert payload to a channel.
type Notifier interface {
	// Name identifies the notifier in logs.
	Name() string

	// Enabled reports whether the notifier should receive payloads.
	Enabled() bool

	// Notify delivers the payload.
	Notify(ctx context.Context, payload Payload) error
}

// Dispatcher fans one payload out to all enabled notifiers. Notifier
// errors are logged and never fail the run.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a dispatcher over the given notifiers.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Dispatch delivers the payload. Payloads without findings are skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, payload Payload) {
	if !payload.HasFindings() {
		return
	}

	for _, n := range d.notifiers {
		if !n.Enabled() {
			continue
		}
		if err := n.Notify(ctx, payload); err != nil {
			logging.Ctx(ctx).Error().
				Err(err).
				Str("notifier", n.Name()).
				Msg("Notifier failed")
		}
	}
}
