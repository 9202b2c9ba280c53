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

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cfrscope/internal/errors"
)

// bashCompletionTemplate is the bash completion script for cfrscope.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for cfrscope
# Installation:
#   source <(cfrscope completion bash)

_cfrscope_completion() {
    local cur prev commands
    commands="init sync ingest catalog history dashboard status reset serve completion"

    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    if [ $COMP_CWORD -eq 1 ]; then
        if [[ ${cur} == -* ]] ; then
            COMPREPLY=( $(compgen -W "--version --config --json --no-color --quiet --verbose --debug" -- ${cur}) )
        else
            COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        fi
        return 0
    fi

    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        init)
            COMPREPLY=( $(compgen -W "--force --yes --project-id --registry-url --data-dir --workers" -- ${cur}) )
            ;;
        sync)
            COMPREPLY=( $(compgen -W "--reset --yes --metrics-addr" -- ${cur}) )
            ;;
        ingest)
            if [[ ${prev} == "--mode" ]] ; then
                COMPREPLY=( $(compgen -W "demo custom" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -W "--mode --titles --limit --title --dates --metrics-addr" -- ${cur}) )
            fi
            ;;
        catalog)
            COMPREPLY=( $(compgen -W "--remote --title" -- ${cur}) )
            ;;
        history)
            COMPREPLY=( $(compgen -W "--title" -- ${cur}) )
            ;;
        dashboard)
            COMPREPLY=( $(compgen -W "--trends" -- ${cur}) )
            ;;
        reset)
            COMPREPLY=( $(compgen -W "--yes" -- ${cur}) )
            ;;
        serve)
            COMPREPLY=( $(compgen -W "--addr" -- ${cur}) )
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _cfrscope_completion cfrscope
`

// zshCompletionTemplate is the zsh completion script for cfrscope.
const zshCompletionTemplate = `#compdef cfrscope

# Zsh completion script for cfrscope
# Installation:
#   cfrscope completion zsh > "${fpath[1]}/_cfrscope"

_cfrscope() {
    local -a commands
    commands=(
        'init:Create .cfrscope/project.yaml and the local store'
        'sync:Synchronize agencies, titles and version dates'
        'ingest:Materialize title snapshots'
        'catalog:List titles with known and loaded dates'
        'history:Show the snapshot history of one title'
        'dashboard:Per-agency totals and per-date trends'
        'status:Show store counts and the last runs'
        'reset:Delete all mirrored data'
        'serve:Start the admin HTTP API'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '--config[Path to .cfrscope/project.yaml]:config file:_files -g "*.yaml"' \
        '--json[Output as JSON]' \
        '--no-color[Disable colored output]' \
        '(-q --quiet)'{-q,--quiet}'[Suppress progress output]' \
        '--debug[Enable debug logging]' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                init)
                    _arguments \
                        '--force[Overwrite existing configuration]' \
                        '(-y --yes)'{-y,--yes}'[Use defaults]' \
                        '--project-id[Project identifier]:id:' \
                        '--registry-url[eCFR API root]:url:' \
                        '--data-dir[Store location]:dir:_files -/' \
                        '--workers[Concurrent fetches per title]:workers:'
                    ;;
                sync)
                    _arguments \
                        '--reset[Delete all mirrored data first]' \
                        '--yes[Confirm --reset]' \
                        '--metrics-addr[Prometheus metrics address]:address:'
                    ;;
                ingest)
                    _arguments \
                        '--mode[Workload mode]:mode:(demo custom)' \
                        '--titles[Comma-separated title numbers]:titles:' \
                        '--limit[Snapshots per title]:limit:' \
                        '--title[Title for explicit dates]:title:' \
                        '--dates[Comma-separated dates]:dates:' \
                        '--metrics-addr[Prometheus metrics address]:address:'
                    ;;
                catalog)
                    _arguments \
                        '--remote[Query the registry]' \
                        '--title[Title number]:title:'
                    ;;
                history)
                    _arguments \
                        '--title[Title number]:title:'
                    ;;
                dashboard)
                    _arguments \
                        '--trends[Trend points to show]:count:'
                    ;;
                reset)
                    _arguments \
                        '--yes[Confirm the reset]'
                    ;;
                serve)
                    _arguments \
                        '--addr[Listen address]:address:'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_cfrscope
`

// fishCompletionTemplate is the fish completion script for cfrscope.
const fishCompletionTemplate = `# Fish completion script for cfrscope
# Installation:
#   cfrscope completion fish > ~/.config/fish/completions/cfrscope.fish

# Commands
complete -c cfrscope -f -n "__fish_use_subcommand" -a "init" -d "Create .cfrscope/project.yaml and the local store"
complete -c cfrscope -f -n "__fish_use_subcommand" -a "sync" -d "Synchronize agencies, titles and version dates"
complete -c cfrscope -f -n "__fish_use_subcommand" -a "ingest" -d "Materialize title snapshots"
complete -c cfrscope -f -n "__fish_use_subcommand" -a "catalog" -d "List titles with known and loaded dates"
complete -c cfrscope -f -n "__fish_use_subcommand" -a "history" -d "Show the snapshot history of one title"
complete -c cfrscope -f -n "__fish_use_subcommand" -a "dashboard" -d "Per-agency totals and per-date trends"
complete -c cfrscope -f -n "__fish_use_subcommand" -a "status" -d "Show store counts and the last runs"
complete -c cfrscope -f -n "__fish_use_subcommand" -a "reset" -d "Delete all mirrored data (destructive!)"
complete -c cfrscope -f -n "__fish_use_subcommand" -a "serve" -d "Start the admin HTTP API"
complete -c cfrscope -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

# Global flags
complete -c cfrscope -l version -d "Show version and exit"
complete -c cfrscope -l config -d "Path to .cfrscope/project.yaml" -r
complete -c cfrscope -l json -d "Output as JSON"
complete -c cfrscope -l no-color -d "Disable colored output"
complete -c cfrscope -s q -l quiet -d "Suppress progress output"
complete -c cfrscope -l debug -d "Enable debug logging"

# init
complete -c cfrscope -n "__fish_seen_subcommand_from init" -l force -d "Overwrite existing configuration"
complete -c cfrscope -n "__fish_seen_subcommand_from init" -s y -l yes -d "Use defaults"
complete -c cfrscope -n "__fish_seen_subcommand_from init" -l project-id -d "Project identifier" -r
complete -c cfrscope -n "__fish_seen_subcommand_from init" -l registry-url -d "eCFR API root" -r
complete -c cfrscope -n "__fish_seen_subcommand_from init" -l data-dir -d "Store location" -r
complete -c cfrscope -n "__fish_seen_subcommand_from init" -l workers -d "Concurrent fetches per title" -r

# sync
complete -c cfrscope -n "__fish_seen_subcommand_from sync" -l reset -d "Delete all mirrored data first"
complete -c cfrscope -n "__fish_seen_subcommand_from sync" -l yes -d "Confirm --reset"
complete -c cfrscope -n "__fish_seen_subcommand_from sync" -l metrics-addr -d "Prometheus metrics address" -r

# ingest
complete -c cfrscope -n "__fish_seen_subcommand_from ingest" -l mode -d "Workload mode" -x -a "demo custom"
complete -c cfrscope -n "__fish_seen_subcommand_from ingest" -l titles -d "Comma-separated title numbers" -r
complete -c cfrscope -n "__fish_seen_subcommand_from ingest" -l limit -d "Snapshots per title" -r
complete -c cfrscope -n "__fish_seen_subcommand_from ingest" -l title -d "Title for explicit dates" -r
complete -c cfrscope -n "__fish_seen_subcommand_from ingest" -l dates -d "Comma-separated dates" -r
complete -c cfrscope -n "__fish_seen_subcommand_from ingest" -l metrics-addr -d "Prometheus metrics address" -r

# catalog, history, dashboard
complete -c cfrscope -n "__fish_seen_subcommand_from catalog" -l remote -d "Query the registry"
complete -c cfrscope -n "__fish_seen_subcommand_from catalog history" -l title -d "Title number" -r
complete -c cfrscope -n "__fish_seen_subcommand_from dashboard" -l trends -d "Trend points to show" -r

# reset, serve
complete -c cfrscope -n "__fish_seen_subcommand_from reset" -l yes -d "Confirm the reset"
complete -c cfrscope -n "__fish_seen_subcommand_from serve" -l addr -d "Listen address" -r

# completion
complete -c cfrscope -n "__fish_seen_subcommand_from completion" -f -a "bash zsh fish"
`

// runCompletion executes the 'completion' CLI command, printing the
// completion script for bash, zsh, or fish to stdout.
//
// Usage:
//
//	cfrscope completion [bash|zsh|fish]
//
// Examples:
//
//	source <(cfrscope completion bash)
//	cfrscope completion zsh > "${fpath[1]}/_cfrscope"
//	cfrscope completion fish | source
func runCompletion(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cfrscope completion <shell>

Generate shell completion scripts for bash, zsh, or fish.

Examples:
  source <(cfrscope completion bash)
  cfrscope completion zsh > "${fpath[1]}/_cfrscope"
  cfrscope completion fish > ~/.config/fish/completions/cfrscope.fish

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"Invalid arguments",
			"The completion command requires exactly one argument: the shell name",
			"Run 'cfrscope completion bash', 'cfrscope completion zsh', or 'cfrscope completion fish'",
		), globals.JSON)
	}

	script, err := completionScript(fs.Arg(0))
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	fmt.Print(script)
}

// completionScript returns the script for shell.
func completionScript(shell string) (string, error) {
	switch shell {
	case "bash":
		return bashCompletionTemplate, nil
	case "zsh":
		return zshCompletionTemplate, nil
	case "fish":
		return fishCompletionTemplate, nil
	default:
		return "", errors.NewInputError(
			"Unsupported shell",
			fmt.Sprintf("Shell '%s' is not supported. Valid options: bash, zsh, fish", shell),
			"Run 'cfrscope completion bash', 'cfrscope completion zsh', or 'cfrscope completion fish'",
		)
	}
}
