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

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cfrscope/internal/bootstrap"
	"github.com/kraklabs/cfrscope/internal/output"
	"github.com/kraklabs/cfrscope/internal/ui"
	"github.com/kraklabs/cfrscope/pkg/ingestion"
	"github.com/kraklabs/cfrscope/pkg/storage"
)

// StatusResult represents the project status for JSON output.
type StatusResult struct {
	ProjectID  string               `json:"project_id"`
	Database   string               `json:"database,omitempty"`
	Connected  bool                 `json:"connected"`
	Stats      storage.Stats        `json:"stats"`
	LastSync   *ingestion.RunRecord `json:"last_sync,omitempty"`
	LastIngest *ingestion.RunRecord `json:"last_ingest,omitempty"`
	Error      string               `json:"error,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

// runStatus executes the 'status' CLI command: store counts plus the
// summaries of the last synchronization and ingestion runs.
//
// Examples:
//
//	cfrscope status           Display formatted status
//	cfrscope --json status    Output as JSON for programmatic use
func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cfrscope status

Shows local project status.
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := mustLoadConfig(globals)
	logger := newLogger(globals)
	result := &StatusResult{ProjectID: cfg.ProjectID, Timestamp: time.Now()}

	ctx := context.Background()
	store, err := bootstrap.OpenProject(ctx, cfg.ProjectConfig(), logger)
	if err != nil && !stderrors.Is(err, bootstrap.ErrNotInitialized) {
		fail("open the local store", err, globals)
	}
	if err != nil {
		result.Error = err.Error()
		if globals.JSON {
			_ = output.JSON(result)
		} else {
			fmt.Printf("Project '%s' is not initialized.\n", cfg.ProjectID)
			fmt.Println("Run 'cfrscope init' to create the local store.")
		}
		os.Exit(0)
	}
	defer func() { _ = store.Close() }()

	result.Connected = true
	result.Database = store.Path()

	stats, err := store.Stats(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("Cannot read counts: %v", err)
	}
	result.Stats = stats

	runs := ingestion.NewCheckpointManager(runsDir(store))
	if rec, err := runs.LoadRun(cfg.ProjectID, ingestion.RunSync); err == nil {
		result.LastSync = rec
	}
	if rec, err := runs.LoadRun(cfg.ProjectID, ingestion.RunIngest); err == nil {
		result.LastIngest = rec
	}

	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	printStatus(result)
}

func printStatus(r *StatusResult) {
	ui.Header("cfrscope Project Status")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), r.ProjectID)
	fmt.Printf("%s %s\n", ui.Label("Database:  "), ui.DimText(r.Database))
	fmt.Println()

	fmt.Println("Mirror:")
	fmt.Printf("  Agencies:   %s\n", ui.CountText(r.Stats.Agencies))
	fmt.Printf("  Titles:     %s (%s %d)\n", ui.CountText(r.Stats.Titles), ui.StatusText(string(storage.StatusCompleted)), r.Stats.CompletedTitles)
	fmt.Printf("  Links:      %s\n", ui.CountText(r.Stats.Links))
	fmt.Printf("  Snapshots:  %s\n", ui.CountText(r.Stats.Snapshots))

	fmt.Println()
	fmt.Println("Last runs:")
	printRun("sync", r.LastSync)
	printRun("ingest", r.LastIngest)

	if r.Error != "" {
		fmt.Println()
		ui.Warning(r.Error)
	}
}

func printRun(label string, rec *ingestion.RunRecord) {
	if rec == nil {
		fmt.Printf("  %-7s %s\n", label+":", ui.DimText("never"))
		return
	}
	fmt.Printf("  %-7s %s  %s\n", label+":", rec.EndTime.Local().Format("2006-01-02 15:04"), rec.Summary)
}
