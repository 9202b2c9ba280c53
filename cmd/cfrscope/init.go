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
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cfrscope/internal/bootstrap"
	"github.com/kraklabs/cfrscope/internal/errors"
	"github.com/kraklabs/cfrscope/internal/output"
	"github.com/kraklabs/cfrscope/internal/ui"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force, nonInteractive bool
	projectID, registry   string
	dataDir               string
	workers               int
}

// runInit executes the 'init' CLI command: it writes .cfrscope/project.yaml
// and creates the local store with its schema.
//
// Flags:
//   - --force: Overwrite existing configuration
//   - -y: Non-interactive mode, use all defaults
//   - --project-id: Project identifier (default: directory name)
//   - --registry-url: eCFR API root
//   - --data-dir: Store location (default: ~/.cfrscope/data/<project_id>)
//   - --workers: Concurrent document fetches per title
//
// Examples:
//
//	cfrscope init                      Interactive setup
//	cfrscope init -y                   Use all defaults
//	cfrscope init -y --workers 4       Fetch four documents at a time
func runInit(args []string, globals GlobalFlags) {
	flags := parseInitFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewPermissionError(
			"Cannot read working directory", err.Error(), "Run cfrscope from an accessible directory", err,
		), globals.JSON)
	}

	configPath := globals.ConfigPath
	if configPath == "" {
		configPath = ConfigPath(cwd)
	}
	if _, err := os.Stat(configPath); err == nil && !flags.force {
		errors.FatalError(errors.NewInputError(
			"Configuration already exists",
			fmt.Sprintf("%s already exists", configPath),
			"Use --force to overwrite it",
		), globals.JSON)
	}

	cfg := createInitConfig(cwd, flags)
	if !flags.nonInteractive && !globals.JSON {
		runInteractiveConfig(bufio.NewReader(os.Stdin), cfg)
	}
	if err := cfg.validate(); err != nil {
		errors.FatalError(errors.NewInputError("Invalid configuration", err.Error(), "Check the values you entered"), globals.JSON)
	}

	if err := SaveConfig(cfg, configPath); err != nil {
		errors.FatalError(errors.NewPermissionError(
			"Cannot save configuration", err.Error(), "Check write permissions on the project directory", err,
		), globals.JSON)
	}
	if filepath.Dir(configPath) == ConfigDir(cwd) {
		addToGitignore(cwd, globals.Quiet)
	}

	logger := newLogger(globals)
	info, err := bootstrap.InitProject(context.Background(), cfg.ProjectConfig(), logger)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot create local store", err.Error(), "Check permissions on the data directory", err,
		), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(map[string]any{
			"config":   configPath,
			"project":  info.ProjectID,
			"data_dir": info.DataDir,
			"database": info.DatabasePath,
		})
		return
	}
	ui.Successf("Created %s", configPath)
	ui.Successf("Store ready at %s", info.DatabasePath)
	printNextSteps()
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVarP(&f.nonInteractive, "yes", "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.projectID, "project-id", "", "Project identifier")
	fs.StringVar(&f.registry, "registry-url", "", "eCFR API root (default: "+defaultRegistryURL+")")
	fs.StringVar(&f.dataDir, "data-dir", "", "Store location (default: ~/.cfrscope/data/<project_id>)")
	fs.IntVar(&f.workers, "workers", 0, "Concurrent document fetches per title")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cfrscope init [options]

Creates .cfrscope/project.yaml and the local store.

Examples:
  cfrscope init -y
  cfrscope init --project-id regs --workers 4 -y

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func createInitConfig(cwd string, f initFlags) *Config {
	pid := f.projectID
	if pid == "" {
		pid = filepath.Base(cwd)
	}
	cfg := DefaultConfig(pid)
	if f.registry != "" {
		cfg.Registry.BaseURL = f.registry
	}
	if f.dataDir != "" {
		cfg.Storage.DataDir = f.dataDir
	}
	if f.workers > 0 {
		cfg.Ingestion.Workers = f.workers
	}
	return cfg
}

func runInteractiveConfig(reader *bufio.Reader, cfg *Config) {
	ui.Header("cfrscope Project Configuration")

	cfg.ProjectID = prompt(reader, "Project ID", cfg.ProjectID)
	cfg.Registry.BaseURL = prompt(reader, "Registry API root", cfg.Registry.BaseURL)

	workers := prompt(reader, "Concurrent fetches per title", strconv.Itoa(cfg.Ingestion.Workers))
	if n, err := strconv.Atoi(workers); err == nil && n > 0 {
		cfg.Ingestion.Workers = n
	}
	fmt.Println()
}

func printNextSteps() {
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .cfrscope/project.yaml if needed")
	fmt.Println("  2. Run 'cfrscope sync' to mirror agencies and titles")
	fmt.Println("  3. Run 'cfrscope ingest' to load the demo snapshots")
}

// prompt displays an interactive prompt and reads user input from stdin.
// Empty input returns defaultValue.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

// addToGitignore appends .cfrscope/ to the directory's .gitignore if the
// file exists and does not already list it.
func addToGitignore(dir string, quiet bool) {
	gitignorePath := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: gitignorePath built from project dir
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(content), "\n") {
		switch strings.TrimSpace(line) {
		case ".cfrscope/", ".cfrscope", "/.cfrscope/", "/.cfrscope":
			return
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0600) //nolint:gosec // G304: gitignorePath built from project dir
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, _ = f.WriteString("\n# cfrscope configuration\n.cfrscope/\n")
	if !quiet {
		fmt.Println("Added .cfrscope/ to .gitignore")
	}
}
