// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package alert

import (
	"context"

	"github.com/featuremill/featuremill/internal/logging"
)

// LogNotifier is the reference notifier: every exceeded drift metric and
// every quality warning is logged at WARN level.
type LogNotifier struct {
	enabled bool
}

// NewLogNotifier creates an enabled log notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{enabled: true}
}

// Name returns the notifier name.
func (n *LogNotifier) Name() string {
	return "log"
}

// Enabled reports whether the notifier is active.
func (n *LogNotifier) Enabled() bool {
	return n.enabled
}

// SetEnabled enables or disables the notifier.
func (n *LogNotifier) SetEnabled(enabled bool) {
	n.enabled = enabled
}

// Notify logs the payload's findings.
func (n *LogNotifier) Notify(ctx context.Context, payload Payload) error {
	log := logging.Ctx(ctx)

	for _, a := range payload.Alerts {
		if !a.Exceeded {
			continue
		}
		log.Warn().
			Str("metric", a.Metric).
			Float64("current", a.Current).
			Float64("previous", a.Previous).
			Float64("relative_change", a.RelativeChange).
			Msg("Drift alert")
	}

	for _, w := range payload.Warnings {
		log.Warn().
			Str("batch", w.Source).
			Str("kind", string(w.Kind)).
			Str("column", w.Column).
			Int("count", w.Count).
			Msg(w.Message)
	}

	return nil
}
