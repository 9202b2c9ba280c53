// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunKind names the operation a RunRecord describes.
type RunKind string

const (
	RunSync   RunKind = "sync"
	RunIngest RunKind = "ingest"
)

// RunRecord is the persisted summary of the most recent run of one kind.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	ProjectID string    `json:"project_id"`
	Kind      RunKind   `json:"kind"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Canceled  bool      `json:"canceled,omitempty"`
	Errors    int       `json:"errors"`
	Summary   string    `json:"summary"`

	Sync   *SyncResult   `json:"sync,omitempty"`
	Ingest *IngestResult `json:"ingest,omitempty"`
}

// CheckpointManager persists run records next to the project data.
type CheckpointManager struct {
	checkpointPath string
}

// NewCheckpointManager creates a new checkpoint manager rooted at dir.
// An empty dir writes to the current directory.
func NewCheckpointManager(dir string) *CheckpointManager {
	return &CheckpointManager{
		checkpointPath: dir,
	}
}

// LoadRun loads the last record of kind, or nil if none was saved.
func (cm *CheckpointManager) LoadRun(projectID string, kind RunKind) (*RunRecord, error) {
	path := cm.getRunPath(projectID, kind)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run record: %w", err)
	}

	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse run record: %w", err)
	}
	return &rec, nil
}

// SaveRun writes rec atomically.
func (cm *CheckpointManager) SaveRun(rec *RunRecord) error {
	path := cm.getRunPath(rec.ProjectID, rec.Kind)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	// Write atomically (temp file + rename)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write run record temp: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename run record: %w", err)
	}

	return nil
}

// ClearRuns removes every saved record for the project.
func (cm *CheckpointManager) ClearRuns(projectID string) error {
	for _, kind := range []RunKind{RunSync, RunIngest} {
		path := cm.getRunPath(projectID, kind)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove run record: %w", err)
		}
	}
	return nil
}

func (cm *CheckpointManager) getRunPath(projectID string, kind RunKind) string {
	name := fmt.Sprintf("last-%s-%s.json", kind, projectID)
	if cm.checkpointPath != "" {
		return filepath.Join(cm.checkpointPath, name)
	}
	return name
}
