// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package pipeline

// State is a pipeline run state. Runs move strictly forward through the
// processing states; Failed is terminal and reachable from any
// non-terminal state. A run that fails before Persisting writes no
// feature output, so partial output is never visible.
type State string

const (
	StateLoading            State = "loading"
	StateValidating         State = "validating"
	StateMerging            State = "merging"
	StateGeneratingFeatures State = "generating_features"
	StateValidatingFeatures State = "validating_features"
	StateCollectingMetrics  State = "collecting_metrics"
	StateDetectingDrift     State = "detecting_drift"
	StatePersisting         State = "persisting"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
