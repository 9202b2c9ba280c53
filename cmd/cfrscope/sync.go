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
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cfrscope/internal/errors"
	"github.com/kraklabs/cfrscope/internal/output"
	"github.com/kraklabs/cfrscope/internal/ui"
	"github.com/kraklabs/cfrscope/pkg/ingestion"
)

// runSync executes the 'sync' CLI command: it mirrors the agency directory
// and title catalog, resolves agency-title links and refreshes every title's
// version dates.
//
// Flags:
//   - --reset: Delete every agency, title, link and snapshot first
//   - --yes: Confirm --reset (required with it)
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//
// Examples:
//
//	cfrscope sync                 Incremental synchronization
//	cfrscope sync --reset --yes   Rebuild the mirror from scratch
func runSync(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	reset := fs.Bool("reset", false, "Delete all mirrored data before synchronizing (destructive!)")
	confirm := fs.Bool("yes", false, "Confirm --reset")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cfrscope sync [options]

Synchronizes agencies, titles and version dates from the registry.
Existing snapshots and scrape status are kept unless --reset is given.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *reset && !*confirm {
		errors.FatalError(errors.NewInputError(
			"Reset not confirmed",
			"--reset deletes every agency, title, link and snapshot",
			"Pass --yes together with --reset",
		), globals.JSON)
	}

	p := openProject(globals)
	defer p.Close()
	ctx, cancel := signalContext(p.logger)
	defer cancel()
	startMetricsServer(*metricsAddr, p.logger)

	spinner := NewSpinner(NewProgressConfig(globals), "Synchronizing")
	res, err := p.pipeline.SynchronizeMetadata(ctx, *reset)
	if spinner != nil {
		_ = spinner.Finish()
	}
	if res == nil {
		fail("synchronize metadata", err, globals)
	}

	if globals.JSON {
		_ = output.JSON(res)
	} else {
		printSyncResult(res)
	}
	if err != nil {
		fail("synchronize metadata", err, globals)
	}
}

func printSyncResult(res *ingestion.SyncResult) {
	fmt.Println()
	ui.Header("Synchronization")
	if res.ResetPerformed {
		fmt.Printf("%s %d snapshots, %d links, %d titles, %d agencies\n",
			ui.Label("Reset removed:"),
			res.ResetCounts.Snapshots, res.ResetCounts.Links, res.ResetCounts.Titles, res.ResetCounts.Agencies)
	}
	fmt.Printf("%s %s (%d new)\n", ui.Label("Agencies:"), ui.CountText(res.AgencyCount), res.AgenciesCreated)
	fmt.Printf("%s %s (%d new)\n", ui.Label("Titles:  "), ui.CountText(res.TitleCount), res.TitlesCreated)
	fmt.Printf("%s %d created, %d existing, %d unmatched\n",
		ui.Label("Links:   "), res.Links.Created, res.Links.Existing,
		res.Links.InvalidRefs+res.Links.UnknownTitles+res.Links.UnknownAgencies)
	if res.Links.FallbackApplied {
		ui.Info("No links resolved from the registry; configured fallback links applied")
	}
	fmt.Printf("%s %d titles\n", ui.Label("Dates:   "), res.DatesRefreshed)
	fmt.Printf("%s %s\n", ui.Label("Duration:"), res.Duration.Round(time.Millisecond))

	if len(res.Errors) > 0 {
		fmt.Println()
		ui.Warningf("%d items failed", len(res.Errors))
		printItemErrors(res.Errors)
	}
	if res.Canceled {
		ui.Warning("Synchronization canceled before completion")
	}
}

// printItemErrors lists per-item failures, capped to keep output short.
func printItemErrors(errs []ingestion.ItemError) {
	const maxShown = 10
	for i, e := range errs {
		if i == maxShown {
			fmt.Printf("  ... and %d more\n", len(errs)-maxShown)
			return
		}
		where := e.Stage
		if e.Title > 0 {
			where = fmt.Sprintf("%s title %d", where, e.Title)
		}
		if e.Date != "" {
			where = fmt.Sprintf("%s %s", where, e.Date)
		}
		fmt.Printf("  %s %s\n", ui.DimText(where+":"), e.Message)
	}
}
