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
	"github.com/kraklabs/cfrscope/pkg/ingestion"
)

func runReset(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cfrscope reset [options]

Deletes every snapshot, agency-title link, title and agency from the local
store in one transaction. Either all of them are removed or none are.

WARNING: This operation is destructive and cannot be undone!

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if !*confirm {
		errors.FatalError(errors.NewInputError(
			"Reset not confirmed",
			"This will delete all mirrored data for the project",
			"Pass --yes to confirm the reset",
		), globals.JSON)
	}

	p := openProject(globals)
	defer p.Close()

	counts, err := p.store.Reset(context.Background())
	if err != nil {
		fail("reset the mirror", err, globals)
	}
	if err := ingestion.NewCheckpointManager(runsDir(p.store)).ClearRuns(p.cfg.ProjectID); err != nil {
		p.logger.Warn("reset.runs.clear.error", "err", err)
	}

	if globals.JSON {
		_ = output.JSON(counts)
		return
	}
	ui.Successf("Reset complete: removed %d snapshots, %d links, %d titles, %d agencies",
		counts.Snapshots, counts.Links, counts.Titles, counts.Agencies)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  cfrscope sync      Mirror the registry metadata again")
}
