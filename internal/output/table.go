// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table writes rows as left-aligned columns separated by two spaces, with
// a two-space indent.
//
// Only the last column may contain ANSI color codes: escape sequences are
// counted as width, and the trailing cell is never padded.
type Table struct {
	tw   *tabwriter.Writer
	cols int
	rows int
}

// NewTable starts a table with the given header row.
func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{
		tw:   tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		cols: len(headers),
	}
	t.write(toCells(headers))
	return t
}

// Row appends a row. Cells are formatted with %v; missing cells are blank
// and extra cells are dropped.
func (t *Table) Row(cells ...any) {
	out := make([]string, t.cols)
	for i := 0; i < t.cols && i < len(cells); i++ {
		out[i] = fmt.Sprint(cells[i])
	}
	t.write(out)
	t.rows++
}

// Len returns the number of data rows written so far.
func (t *Table) Len() int {
	return t.rows
}

// Flush writes the aligned table.
func (t *Table) Flush() error {
	return t.tw.Flush()
}

func (t *Table) write(cells []string) {
	for i, c := range cells {
		// Tabs and newlines would break the column layout.
		cells[i] = strings.NewReplacer("\t", " ", "\n", " ").Replace(c)
	}
	_, _ = fmt.Fprintf(t.tw, "  %s\n", strings.Join(cells, "\t"))
}

func toCells(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
