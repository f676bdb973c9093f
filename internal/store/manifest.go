// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// ManifestFileName is the run manifest file under the output root.
const ManifestFileName = "manifest.json"

// ManifestEntry records one file written by a run.
type ManifestEntry struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// Manifest names every file a run wrote. It is written last, so its
// presence with a given run id means the run reached the end of
// Persisting; file timestamps older than the manifest indicate a torn
// earlier run.
type Manifest struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Files       []ManifestEntry `json:"files"`
}

// NewManifest starts a manifest for the given run.
func NewManifest(runID string) *Manifest {
	return &Manifest{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
	}
}

// Add records one written file.
func (m *Manifest) Add(path string, rows int) {
	m.Files = append(m.Files, ManifestEntry{Path: path, Rows: rows})
}

// Write persists the manifest under the output root via temp-then-rename.
func (m *Manifest) Write(outputRoot string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	path := filepath.Join(outputRoot, ManifestFileName)
	tmp := path + ".tmp-" + m.RunID
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest from the output root, if present.
func ReadManifest(outputRoot string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(outputRoot, ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
