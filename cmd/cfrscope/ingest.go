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
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cfrscope/internal/errors"
	"github.com/kraklabs/cfrscope/internal/output"
	"github.com/kraklabs/cfrscope/internal/ui"
	"github.com/kraklabs/cfrscope/pkg/ingestion"
)

// runIngest executes the 'ingest' CLI command, materializing snapshots of
// the target titles with their text metrics.
//
// The workload comes from --mode/--titles/--limit. Malformed values never
// fail the command: they fall back to defaults and the fallback is reported
// as a note. With --title and --dates the named dates of one title are
// ingested instead.
//
// Flags:
//   - --mode: demo (default) or custom
//   - --titles: Comma-separated title numbers (custom mode)
//   - --limit: Newest snapshots per title (custom mode)
//   - --title, --dates: Ingest explicit dates of one title
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//
// Examples:
//
//	cfrscope ingest
//	cfrscope ingest --mode custom --titles 12,40 --limit 2
//	cfrscope ingest --title 40 --dates 2024-01-01,2023-06-01
func runIngest(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	mode := fs.String("mode", string(ingestion.ModeDemo), "Workload mode: demo or custom")
	titles := fs.String("titles", "", "Comma-separated title numbers (custom mode)")
	limit := fs.String("limit", "", "Newest snapshots to load per title (custom mode)")
	title := fs.Int("title", 0, "Ingest explicit dates of this title (requires --dates)")
	dates := fs.String("dates", "", "Comma-separated YYYY-MM-DD dates for --title")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cfrscope ingest [options]

Loads title snapshots from the registry and records word and restriction
counts. Dates that already have a snapshot are skipped.

Run 'cfrscope sync' first so the titles and their dates are known.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	selected := splitList(*dates)
	if (*title > 0) != (len(selected) > 0) {
		errors.FatalError(errors.NewInputError(
			"Incomplete selective ingestion",
			"--title and --dates must be given together",
			"Example: cfrscope ingest --title 40 --dates 2024-01-01",
		), globals.JSON)
	}

	p := openProject(globals)
	defer p.Close()
	ctx, cancel := signalContext(p.logger)
	defer cancel()
	startMetricsServer(*metricsAddr, p.logger)

	progress := newTitleProgress(NewProgressConfig(globals))
	p.pipeline.SetProgress(progress.Handle)

	var (
		res *ingestion.IngestResult
		err error
	)
	if *title > 0 {
		res, err = p.pipeline.IngestDates(ctx, *title, selected)
	} else {
		res, err = p.pipeline.IngestSnapshots(ctx, ingestion.Request{
			Mode:   *mode,
			Titles: *titles,
			Limit:  *limit,
		})
	}
	if res == nil {
		fail("ingest snapshots", err, globals)
	}

	if globals.JSON {
		_ = output.JSON(res)
	} else {
		printIngestResult(res)
	}
	if err != nil {
		fail("ingest snapshots", err, globals)
	}
}

func printIngestResult(res *ingestion.IngestResult) {
	fmt.Println()
	ui.Header("Ingestion")
	if res.Mode != "" {
		fmt.Printf("%s %s, %d per title\n", ui.Label("Workload:"), res.Mode, res.SnapshotLimit)
	}
	for _, note := range res.Notes {
		ui.Info(note)
	}

	if len(res.Titles) > 0 {
		fmt.Println()
		t := output.NewTable(os.Stdout, "TITLE", "SELECTED", "CREATED", "SKIPPED", "FAILED", "STATUS")
		for _, o := range res.Titles {
			t.Row(o.Title, o.Selected, o.Succeeded, o.Skipped, o.Failed, titleStatusText(o.Status))
		}
		_ = t.Flush()
	}

	if len(res.Errors) > 0 {
		fmt.Println()
		printItemErrors(res.Errors)
	}

	fmt.Println()
	switch {
	case res.Canceled:
		ui.Warning(res.SummaryMessage)
	case res.Failed > 0:
		ui.Warning(res.SummaryMessage)
	default:
		ui.Success(res.SummaryMessage)
	}
}

func titleStatusText(s ingestion.TitleStatus) string {
	switch s {
	case ingestion.TitleProcessed:
		return ui.Green.Sprint(s)
	case ingestion.TitleRefreshFailed:
		return ui.Red.Sprint(s)
	case ingestion.TitleCanceled:
		return ui.Yellow.Sprint(s)
	default:
		return ui.Dim.Sprint(s)
	}
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
