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

	"github.com/kraklabs/cfrscope/internal/errors"
	"github.com/kraklabs/cfrscope/internal/output"
	"github.com/kraklabs/cfrscope/internal/ui"
	"github.com/kraklabs/cfrscope/pkg/storage"
)

// runCatalog executes the 'catalog' CLI command, listing every mirrored
// title with the dates known to exist and the dates already loaded.
//
// With --remote --title N the registry is asked for the title's version
// dates directly; nothing is stored.
func runCatalog(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	remote := fs.Bool("remote", false, "Query the registry for one title's version dates (requires --title)")
	title := fs.Int("title", 0, "Title number for --remote")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cfrscope catalog [options]

Lists mirrored titles with their known and loaded snapshot dates.

Examples:
  cfrscope catalog
  cfrscope --json catalog
  cfrscope catalog --remote --title 40

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *remote && *title < 1 {
		errors.FatalError(errors.NewInputError(
			"Missing title",
			"--remote needs the title to look up",
			"Example: cfrscope catalog --remote --title 40",
		), globals.JSON)
	}

	p := openProject(globals)
	defer p.Close()
	ctx := context.Background()

	if *remote {
		dates, err := p.pipeline.RemoteDates(ctx, *title)
		if err != nil {
			fail(fmt.Sprintf("list version dates of title %d", *title), err, globals)
		}
		if globals.JSON {
			_ = output.JSON(map[string]any{"title": *title, "dates": dates})
			return
		}
		fmt.Printf("Title %d: %s version dates\n", *title, ui.CountText(len(dates)))
		for _, d := range dates {
			fmt.Printf("  %s\n", d)
		}
		return
	}

	entries, err := p.pipeline.ListCatalog(ctx)
	if err != nil {
		fail("list the catalog", err, globals)
	}
	if globals.JSON {
		_ = output.JSON(entries)
		return
	}
	printCatalog(entries)
}

func printCatalog(entries []storage.CatalogEntry) {
	if len(entries) == 0 {
		fmt.Println("No titles mirrored yet. Run 'cfrscope sync' first.")
		return
	}
	t := output.NewTable(os.Stdout, "TITLE", "NAME", "KNOWN", "LOADED", "LATEST LOADED")
	for _, e := range entries {
		latest := "-"
		if len(e.LoadedDates) > 0 {
			latest = e.LoadedDates[0]
		}
		t.Row(e.Number, truncate(e.Name, 48), len(e.AllDates), len(e.LoadedDates), latest)
	}
	_ = t.Flush()
}

// runHistory executes the 'history' CLI command, printing the snapshot
// series of one title, oldest first.
func runHistory(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	title := fs.Int("title", 0, "Title number (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cfrscope history --title N

Shows every loaded snapshot of a title with its metrics, oldest first.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *title < 1 {
		errors.FatalError(errors.NewInputError(
			"Missing title",
			"history needs a positive --title",
			"Example: cfrscope history --title 40",
		), globals.JSON)
	}

	p := openProject(globals)
	defer p.Close()

	points, err := p.pipeline.ListHistory(context.Background(), *title)
	if err != nil {
		fail("read title history", err, globals)
	}
	if globals.JSON {
		_ = output.JSON(points)
		return
	}
	if len(points) == 0 {
		fmt.Printf("No snapshots loaded for title %d.\n", *title)
		return
	}
	t := output.NewTable(os.Stdout, "DATE", "WORDS", "RESTRICTIONS", "CHECKSUM", "DENSITY")
	for _, pt := range points {
		t.Row(pt.EffectiveDate, pt.WordCount, pt.RestrictionCount,
			truncate(pt.Checksum, 12), ui.DensityText(pt.DensityScore))
	}
	_ = t.Flush()
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
