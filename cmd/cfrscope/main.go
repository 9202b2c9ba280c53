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

// Package main implements the cfrscope CLI for mirroring the electronic Code
// of Federal Regulations into a local store and reporting on it.
//
// Usage:
//
//	cfrscope init                         Create .cfrscope/project.yaml and the local store
//	cfrscope sync [--reset --yes]         Synchronize agencies, titles and version dates
//	cfrscope ingest [--mode custom ...]   Materialize title snapshots with text metrics
//	cfrscope catalog [--json]             List titles with known and loaded dates
//	cfrscope history --title N            Show the snapshot history of one title
//	cfrscope dashboard                    Per-agency totals and date trends
//	cfrscope status                       Show store counts and the last runs
//	cfrscope serve                        Start the admin HTTP API
package main

import (
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cfrscope/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags holds flags accepted before the command name.
type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	Quiet      bool
	NoColor    bool
	Verbose    int
	Debug      bool
}

// main is the entry point for the cfrscope CLI.
//
// It parses global flags and dispatches to command handlers.
//
// Global flags:
//   - --config: Path to .cfrscope/project.yaml
//   - --json: Machine-readable output (implies --quiet)
//   - --no-color: Disable colored output
//   - -q/--quiet: Suppress progress output
//   - -v/--verbose: Increase log verbosity (repeatable)
//   - --debug: Enable debug logging
//   - --version: Display version information and exit
func main() {
	fs := flag.NewFlagSet("cfrscope", flag.ContinueOnError)
	fs.SetInterspersed(false)

	var globals GlobalFlags
	showVersion := fs.Bool("version", false, "Show version and exit")
	fs.StringVar(&globals.ConfigPath, "config", "", "Path to .cfrscope/project.yaml (default: ./.cfrscope/project.yaml)")
	fs.BoolVar(&globals.JSON, "json", false, "Output as JSON")
	fs.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress progress output")
	fs.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	fs.CountVarP(&globals.Verbose, "verbose", "v", "Increase log verbosity")
	fs.BoolVar(&globals.Debug, "debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `cfrscope - eCFR regulatory mirror

cfrscope keeps a local copy of the electronic Code of Federal Regulations:
the agency directory, the title catalog with every published version date,
and per-date snapshots annotated with word and restriction counts.

Usage:
  cfrscope [global options] <command> [options]

Commands:
  init          Create .cfrscope/project.yaml and the local store
  sync          Synchronize agencies, titles and version dates
  ingest        Materialize title snapshots (demo or custom workload)
  catalog       List titles with known and loaded dates
  history       Show the snapshot history of one title
  dashboard     Per-agency totals and per-date trends
  status        Show store counts and the last runs
  reset         Delete every agency, title, link and snapshot (destructive!)
  serve         Start the admin HTTP API
  completion    Generate shell completion script (bash|zsh|fish)

Global Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  cfrscope init -y                       Initialize with defaults
  cfrscope sync                          Mirror the registry metadata
  cfrscope ingest                        Ingest the demo workload
  cfrscope ingest --mode custom --titles 12,40 --limit 2
  cfrscope ingest --title 40 --dates 2024-01-01,2023-06-01
  cfrscope history --title 40 --json
  cfrscope serve --addr :8080

Data Storage:
  Data is stored locally in ~/.cfrscope/data/<project_id>/

Environment Variables:
  CFRSCOPE_REGISTRY_URL        Registry API root (default: %s)
  CFRSCOPE_REQUEST_INTERVAL    Minimum spacing between remote requests
  CFRSCOPE_DATA_DIR            Override the data directory
  CFRSCOPE_SERVER_ADDR         Listen address for 'serve'
  CFRSCOPE_WORKERS             Concurrent document fetches per title
  CFRSCOPE_MAX_DOCUMENT_BYTES  Maximum accepted document size

For detailed command help: cfrscope <command> --help

`, defaultRegistryURL)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("cfrscope version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	// JSON output never mixes with progress bars.
	if globals.JSON {
		globals.Quiet = true
	}
	ui.InitColors(globals.NoColor)

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "sync":
		runSync(cmdArgs, globals)
	case "ingest":
		runIngest(cmdArgs, globals)
	case "catalog":
		runCatalog(cmdArgs, globals)
	case "history":
		runHistory(cmdArgs, globals)
	case "dashboard":
		runDashboard(cmdArgs, globals)
	case "status":
		runStatus(cmdArgs, globals)
	case "reset":
		runReset(cmdArgs, globals)
	case "serve":
		runServe(cmdArgs, globals)
	case "completion":
		runCompletion(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		fs.Usage()
		os.Exit(1)
	}
}

// newLogger builds the process logger. --debug or -v lowers the level to
// debug; quiet JSON runs only report warnings.
func newLogger(globals GlobalFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case globals.Debug || globals.Verbose > 0:
		level = slog.LevelDebug
	case globals.JSON:
		level = slog.LevelWarn
	}
	out := os.Stdout
	if globals.JSON {
		out = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
