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

package ingestion

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects how a run request becomes a workload.
type Mode string

const (
	ModeDemo   Mode = "demo"
	ModeCustom Mode = "custom"
)

// minSnapshotLimit is the floor applied to impossible caps.
const minSnapshotLimit = 1

// Request is a raw ingestion request as a caller received it: free text,
// possibly malformed.
type Request struct {
	Mode   string `json:"mode"`
	Titles string `json:"titles,omitempty"`
	Limit  string `json:"limit,omitempty"`
}

// Workload is the concrete result of resolving a Request.
type Workload struct {
	Mode          Mode     `json:"mode"`
	Titles        []int    `json:"targetTitles"`
	SnapshotLimit int      `json:"snapshotLimit"`
	Notes         []string `json:"notes,omitempty"`
}

// Resolver turns requests into workloads. It never touches the network or
// the store and never fails: malformed input falls back to safe defaults,
// each fallback leaving a note on the workload.
type Resolver struct {
	demoTitles   []int
	demoLimit    int
	defaultLimit int
}

// NewResolver builds a Resolver from cfg (zero fields take defaults).
func NewResolver(cfg Config) *Resolver {
	cfg = cfg.withDefaults()
	titles := make([]int, len(cfg.DemoTitles))
	copy(titles, cfg.DemoTitles)
	return &Resolver{
		demoTitles:   titles,
		demoLimit:    cfg.DemoLimit,
		defaultLimit: cfg.DefaultLimit,
	}
}

// Resolve translates req into a Workload.
func (r *Resolver) Resolve(req Request) Workload {
	mode := Mode(strings.ToLower(strings.TrimSpace(req.Mode)))
	var notes []string

	switch mode {
	case ModeCustom:
	case ModeDemo, "":
		mode = ModeDemo
	default:
		notes = append(notes, fmt.Sprintf("unknown mode %q, using demo", req.Mode))
		mode = ModeDemo
	}

	if mode == ModeDemo {
		if strings.TrimSpace(req.Titles) != "" || strings.TrimSpace(req.Limit) != "" {
			notes = append(notes, "demo mode ignores title and limit overrides")
		}
		titles := make([]int, len(r.demoTitles))
		copy(titles, r.demoTitles)
		return Workload{Mode: ModeDemo, Titles: titles, SnapshotLimit: r.demoLimit, Notes: notes}
	}

	titles, discarded := ParseTitleList(req.Titles)
	if len(discarded) > 0 {
		notes = append(notes, fmt.Sprintf("discarded title tokens %q", discarded))
	}
	if len(titles) == 0 {
		notes = append(notes, "no valid title numbers given")
	}

	limit, note := r.parseLimit(req.Limit)
	if note != "" {
		notes = append(notes, note)
	}

	return Workload{Mode: ModeCustom, Titles: titles, SnapshotLimit: limit, Notes: notes}
}

func (r *Resolver) parseLimit(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return r.defaultLimit, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return r.defaultLimit, fmt.Sprintf("limit %q is not a number, using %d", raw, r.defaultLimit)
	}
	if n < minSnapshotLimit {
		return minSnapshotLimit, fmt.Sprintf("limit %d is below %d, using %d", n, minSnapshotLimit, minSnapshotLimit)
	}
	return n, ""
}

// ParseTitleList splits s on commas and keeps every token that parses as a
// positive integer, in order. Duplicates are kept. Blank tokens are dropped
// silently; every other rejected token is returned in discarded.
func ParseTitleList(s string) (titles []int, discarded []string) {
	titles = []int{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 {
			discarded = append(discarded, tok)
			continue
		}
		titles = append(titles, n)
	}
	return titles, discarded
}
