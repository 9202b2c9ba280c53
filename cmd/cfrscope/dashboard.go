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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cfrscope/internal/output"
	"github.com/kraklabs/cfrscope/internal/ui"
	"github.com/kraklabs/cfrscope/pkg/ingestion"
)

// runDashboard executes the 'dashboard' CLI command: per-agency totals over
// each linked title's latest snapshot, and word and density trends per
// effective date.
func runDashboard(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	trends := fs.Int("trends", 12, "Most recent trend points to show (0 for all)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cfrscope dashboard [options]

Summarizes the mirror per agency and per effective date.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	p := openProject(globals)
	defer p.Close()

	d, err := p.pipeline.Dashboard(context.Background())
	if err != nil {
		fail("build the dashboard", err, globals)
	}
	if globals.JSON {
		_ = output.JSON(d)
		return
	}
	printDashboard(d, *trends)
}

func printDashboard(d *ingestion.Dashboard, maxTrends int) {
	ui.Header("cfrscope Dashboard")
	fmt.Printf("%s %s agencies, %s titles (%d completed), %s links, %s snapshots\n",
		ui.Label("Mirror:"),
		ui.CountText(d.Stats.Agencies), ui.CountText(d.Stats.Titles), d.Stats.CompletedTitles,
		ui.CountText(d.Stats.Links), ui.CountText(d.Stats.Snapshots))

	fmt.Println()
	ui.SubHeader("Agencies")
	if len(d.Agencies) == 0 {
		fmt.Println("  No agency has linked titles yet.")
	} else {
		t := output.NewTable(os.Stdout, "AGENCY", "TITLES", "WORDS", "UPDATED", "DENSITY")
		for _, a := range d.Agencies {
			updated := "-"
			if a.LastUpdated != nil {
				updated = a.LastUpdated.Format("2006-01-02")
			}
			t.Row(truncate(a.Agency, 44), a.TotalTitles, a.TotalWords, updated, ui.DensityText(a.AverageDensity))
		}
		_ = t.Flush()
	}

	fmt.Println()
	ui.SubHeader("Trends")
	points := d.Trends
	if maxTrends > 0 && len(points) > maxTrends {
		points = points[len(points)-maxTrends:]
	}
	if len(points) == 0 {
		fmt.Println("  No snapshots loaded yet.")
		return
	}
	t := output.NewTable(os.Stdout, "DATE", "TITLES", "WORDS", "DENSITY")
	for _, p := range points {
		t.Row(p.EffectiveDate, p.Titles, p.TotalWords, ui.DensityText(p.AverageDensity))
	}
	_ = t.Flush()
}
