// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package output renders command results for the cfrscope CLI: indented
// JSON for --json mode and aligned text tables otherwise.
//
//	if globals.JSON {
//	    _ = output.JSON(entries)
//	    return
//	}
//	t := output.NewTable(os.Stdout, "TITLE", "NAME", "KNOWN", "LOADED")
//	for _, e := range entries {
//	    t.Row(e.Number, e.Name, len(e.AllDates), len(e.LoadedDates))
//	}
//	_ = t.Flush()
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSON writes data to stdout as JSON indented by two spaces.
func JSON(data any) error {
	return JSONTo(os.Stdout, data)
}

// JSONTo writes data to w as JSON indented by two spaces, followed by a
// newline. HTML characters are not escaped: agency and title names contain
// ampersands.
func JSONTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("JSON encoding failed: %w", err)
	}
	return nil
}
