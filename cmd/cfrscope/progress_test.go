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
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/kraklabs/cfrscope/pkg/ingestion"
)

func TestNewProgressConfig(t *testing.T) {
	// go test never runs with a terminal on stderr, so bars are always off
	// here; only the flag plumbing is observable.
	for _, globals := range []GlobalFlags{
		{},
		{Quiet: true},
		{JSON: true, Quiet: true},
		{NoColor: true},
		{JSON: true, Quiet: true, NoColor: true, Verbose: 2},
	} {
		cfg := NewProgressConfig(globals)
		if cfg.Enabled {
			t.Errorf("%+v: progress enabled without a terminal", globals)
		}
		if cfg.NoColor != globals.NoColor {
			t.Errorf("%+v: NoColor = %v", globals, cfg.NoColor)
		}
		if cfg.Writer != os.Stderr {
			t.Errorf("%+v: bars must draw on stderr", globals)
		}
	}
}

func TestNewProgressBar(t *testing.T) {
	t.Run("disabled config returns nil", func(t *testing.T) {
		if bar := NewProgressBar(ProgressConfig{Enabled: false}, 100, "Test"); bar != nil {
			t.Error("NewProgressBar() should return nil when disabled")
		}
	})

	t.Run("enabled config returns usable bar", func(t *testing.T) {
		var buf bytes.Buffer
		bar := NewProgressBar(ProgressConfig{Enabled: true, Writer: &buf}, 10, "Title 40")
		if bar == nil {
			t.Fatal("NewProgressBar() should return non-nil when enabled")
		}
		_ = bar.Set(5)
		_ = bar.Finish()
	})
}

func TestNewSpinner(t *testing.T) {
	if s := NewSpinner(ProgressConfig{Enabled: false}, "Synchronizing"); s != nil {
		t.Error("NewSpinner() should return nil when disabled")
	}

	var buf bytes.Buffer
	s := NewSpinner(ProgressConfig{Enabled: true, Writer: &buf, NoColor: true}, "Synchronizing")
	if s == nil {
		t.Fatal("NewSpinner() should return non-nil when enabled")
	}
	_ = s.Add(1)
	_ = s.Finish()
}

func TestTitleDescription(t *testing.T) {
	tests := []struct {
		title, failed int
		expected      string
	}{
		{40, 0, "Title 40"},
		{40, 2, "Title 40 (2 failed)"},
		{1, 1, "Title 1 (1 failed)"},
	}

	for _, tt := range tests {
		if got := titleDescription(tt.title, tt.failed); got != tt.expected {
			t.Errorf("titleDescription(%d, %d) = %q, want %q", tt.title, tt.failed, got, tt.expected)
		}
	}
}

func titleEvents(title int) []ingestion.Event {
	return []ingestion.Event{
		{Kind: ingestion.EventTitleStart, Title: title, Total: 3},
		{Kind: ingestion.EventSnapshotDone, Title: title, Date: "2024-03-01"},
		{Kind: ingestion.EventSnapshotSkip, Title: title, Date: "2024-02-01"},
		{Kind: ingestion.EventSnapshotError, Title: title, Date: "2024-01-01", Err: errors.New("boom")},
		{Kind: ingestion.EventTitleDone, Title: title, Total: 3},
	}
}

func TestTitleProgressDisabled(t *testing.T) {
	p := newTitleProgress(ProgressConfig{Enabled: false})
	for _, ev := range titleEvents(40) {
		p.Handle(ev)
	}
	if p.bar != nil {
		t.Error("disabled progress should never create a bar")
	}
	if p.failed != 1 {
		t.Errorf("failed = %d, want 1", p.failed)
	}
}

func TestTitleProgressEnabled(t *testing.T) {
	var buf bytes.Buffer
	p := newTitleProgress(ProgressConfig{Enabled: true, Writer: &buf, NoColor: true})

	for _, ev := range titleEvents(40) {
		p.Handle(ev)
	}
	if p.bar != nil {
		t.Error("bar should be released after title_done")
	}

	// A new title resets the failure count.
	p.Handle(ingestion.Event{Kind: ingestion.EventTitleStart, Title: 41, Total: 1})
	if p.failed != 0 {
		t.Errorf("failed = %d after new title, want 0", p.failed)
	}
	if p.bar == nil {
		t.Error("title_start should create a bar when enabled")
	}
}
