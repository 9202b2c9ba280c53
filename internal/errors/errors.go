// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors turns cfrscope failures into messages a user can act on.
//
// A UserError says what went wrong, why, and how to fix it, and carries the
// process exit code. Failures of a pipeline run also record the operation
// and, for registry failures, the remote error category:
//
//	Error:    Cannot synchronize metadata
//	Cause:    The registry is rate limiting requests
//	Fix:      Increase registry.request_interval in .cfrscope/project.yaml and retry
//	Category: rate_limited
//
// With --json the same information is written to stderr as an object:
//
//	{"error": "...", "cause": "...", "fix": "...", "op": "synchronize metadata",
//	 "category": "rate_limited", "exit_code": 3}
//
// # Exit Codes
//
//   - ExitSuccess (0)
//   - ExitConfig (1): missing or invalid .cfrscope/project.yaml
//   - ExitDatabase (2): local store unavailable, reset failed, run in progress
//   - ExitNetwork (3): registry unreachable, slow, rate limiting or sending bad data
//   - ExitInput (4): bad arguments
//   - ExitPermission (5): file access denied
//   - ExitNotFound (6): the registry has no such title or date
//   - ExitInternal (10): bugs
//   - ExitInterrupted (130): run canceled by SIGINT/SIGTERM
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for different error categories.
const (
	ExitSuccess    = 0
	ExitConfig     = 1
	ExitDatabase   = 2
	ExitNetwork    = 3
	ExitInput      = 4
	ExitPermission = 5
	ExitNotFound   = 6

	// ExitInternal signals "this is a bug that should be reported".
	ExitInternal = 10

	// ExitInterrupted follows the shell convention of 128+SIGINT.
	ExitInterrupted = 130
)

// UserError represents an error with structured context for end users.
type UserError struct {
	// Message describes what went wrong.
	Message string
	// Cause explains why (optional).
	Cause string
	// Fix is an actionable suggestion (optional).
	Fix string

	// Op is the pipeline operation that failed, when the error came from a run.
	Op string
	// Category is the registry error category for remote failures.
	Category string

	ExitCode int

	// Err is the wrapped error, reachable through errors.Is/As.
	Err error
}

// Error returns the message, followed by the wrapped error if any.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func newUserError(code int, msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: code, Err: err}
}

// NewConfigError reports a missing or invalid configuration (ExitConfig).
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitConfig, msg, cause, fix, err)
}

// NewDatabaseError reports a local store failure (ExitDatabase).
//
//	return NewDatabaseError(
//	    "Cannot open local store",
//	    "registry.db is locked by another process",
//	    "Wait for the other cfrscope run to finish",
//	    err,
//	)
func NewDatabaseError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitDatabase, msg, cause, fix, err)
}

// NewNetworkError reports a registry or HTTP failure (ExitNetwork).
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitNetwork, msg, cause, fix, err)
}

// NewInputError reports bad arguments (ExitInput). Input errors never wrap
// another error.
func NewInputError(msg, cause, fix string) *UserError {
	return newUserError(ExitInput, msg, cause, fix, nil)
}

// NewPermissionError reports denied file access (ExitPermission).
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitPermission, msg, cause, fix, err)
}

// NewNotFoundError reports a missing remote resource (ExitNotFound).
func NewNotFoundError(msg, cause, fix string) *UserError {
	return newUserError(ExitNotFound, msg, cause, fix, nil)
}

// NewInternalError reports a bug (ExitInternal).
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitInternal, msg, cause, fix, err)
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
	colorMeta  = color.New(color.Faint)
)

// Format renders the error for a terminal. Empty sections are omitted.
// noColor or NO_COLOR disables colors for this call only.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	line := func(c *color.Color, label, text string) {
		if text == "" {
			return
		}
		out.WriteString(c.Sprint(label))
		out.WriteString(text)
		out.WriteString("\n")
	}
	line(colorError, "Error:    ", e.Message)
	line(colorCause, "Cause:    ", e.Cause)
	line(colorFix, "Fix:      ", e.Fix)
	line(colorMeta, "Category: ", e.Category)
	return out.String()
}

// ErrorJSON is the --json rendering of a UserError.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	Op       string `json:"op,omitempty"`
	Category string `json:"category,omitempty"`
	ExitCode int    `json:"exit_code"`
}

func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		Op:       e.Op,
		Category: e.Category,
		ExitCode: e.ExitCode,
	}
}

// Write renders err to w as text or JSON and returns the exit code to use.
// Errors that are not UserErrors are reported as internal.
func Write(w io.Writer, err error, jsonOutput bool) int {
	var ue *UserError
	if !stderrors.As(err, &ue) {
		ue = NewInternalError(err.Error(), "", "", err)
	}
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(ue.ToJSON())
	} else {
		fmt.Fprint(w, ue.Format(color.NoColor))
	}
	return ue.ExitCode
}

// FatalError writes err to stderr and exits with its code. It never
// returns for a non-nil error.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}
	os.Exit(Write(os.Stderr, err, jsonOutput))
}
