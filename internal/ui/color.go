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

// Package ui holds the terminal styling of the cfrscope CLI.
//
// Colors follow one scheme across commands: red for failures and high
// restriction density, yellow for warnings and elevated density, green for
// success and completed titles, cyan for counts, dim for paths and
// secondary details. fatih/color disables them when stdout is not a
// terminal or NO_COLOR is set; --no-color disables them explicitly.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Out receives the message helpers' output.
var Out io.Writer = os.Stdout

var (
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Green  = color.New(color.FgGreen)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
	Dim    = color.New(color.Faint)
)

// InitColors applies the --no-color flag. Call it once after flag parsing.
func InitColors(noColor bool) {
	color.NoColor = noColor
}

func status(c *color.Color, symbol, msg string) {
	_, _ = c.Fprintln(Out, symbol+" "+msg)
}

// Success prints "✓ msg" in green.
func Success(msg string) { status(Green, "✓", msg) }

// Successf is Success with formatting.
func Successf(format string, args ...any) { Success(fmt.Sprintf(format, args...)) }

// Warning prints "⚠ msg" in yellow, e.g. "⚠ 2 snapshots failed".
func Warning(msg string) { status(Yellow, "⚠", msg) }

// Warningf is Warning with formatting.
func Warningf(format string, args ...any) { Warning(fmt.Sprintf(format, args...)) }

// Info prints "ℹ msg" in cyan.
func Info(msg string) { status(Cyan, "ℹ", msg) }

// Header prints bold text underlined with '='.
func Header(text string) {
	_, _ = Bold.Fprintln(Out, text)
	_, _ = fmt.Fprintln(Out, strings.Repeat("=", len(text)))
}

// SubHeader prints bold text without an underline.
func SubHeader(text string) {
	_, _ = Bold.Fprintln(Out, text)
}

func Label(text string) string { return Bold.Sprint(text) }

func DimText(text string) string { return Dim.Sprint(text) }

func CountText(count int) string { return Cyan.Sprint(count) }

// Density bands, in restriction terms per thousand words.
const (
	densityHigh     = 20.0
	densityElevated = 10.0
)

// DensityText formats a restriction density score with two decimals,
// red at or above 20, yellow at or above 10, green below.
func DensityText(score float64) string {
	s := fmt.Sprintf("%.2f", score)
	switch {
	case score >= densityHigh:
		return Red.Sprint(s)
	case score >= densityElevated:
		return Yellow.Sprint(s)
	default:
		return Green.Sprint(s)
	}
}

// StatusText colors a title scrape status: COMPLETED green, PENDING yellow.
func StatusText(s string) string {
	switch s {
	case "COMPLETED":
		return Green.Sprint(s)
	case "PENDING":
		return Yellow.Sprint(s)
	default:
		return Dim.Sprint(s)
	}
}
