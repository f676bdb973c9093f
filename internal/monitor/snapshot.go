// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package monitor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/featuremill/featuremill/internal/models"
)

// SnapshotFileName is the metrics snapshot file under the output root.
const SnapshotFileName = "monitoring_metrics.json"

// ErrNoSnapshot is returned by LoadSnapshot when no previous snapshot
// exists. Callers treat this as a cold start and skip drift detection.
var ErrNoSnapshot = errors.New("no previous metrics snapshot")

// LoadSnapshot reads the previous run's snapshot from the output root.
func LoadSnapshot(outputRoot string) (models.MetricsSnapshot, error) {
	path := filepath.Join(outputRoot, SnapshotFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read metrics snapshot: %w", err)
	}

	var snapshot models.MetricsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse metrics snapshot %s: %w", path, err)
	}
	return snapshot, nil
}

// SaveSnapshot writes the current run's snapshot, unconditionally
// overwriting any prior snapshot at that path. The write goes to a temp
// sibling first and is renamed into place so a crash mid-write never
// leaves a truncated snapshot behind.
func SaveSnapshot(outputRoot string, snapshot models.MetricsSnapshot) error {
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metrics snapshot: %w", err)
	}

	path := filepath.Join(outputRoot, SnapshotFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write metrics snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace metrics snapshot: %w", err)
	}
	return nil
}
