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
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/kraklabs/cfrscope/pkg/ingestion"
)

// ProgressConfig controls the bars drawn on stderr. Bars stay off in
// quiet and JSON modes and whenever stderr is not a terminal, so piped
// runs and CI logs only carry slog lines.
type ProgressConfig struct {
	Enabled bool
	Writer  io.Writer
	NoColor bool
}

func NewProgressConfig(globals GlobalFlags) ProgressConfig {
	return ProgressConfig{
		Enabled: !globals.Quiet && isatty.IsTerminal(os.Stderr.Fd()),
		Writer:  os.Stderr,
		NoColor: globals.NoColor,
	}
}

// barRefresh caps redraws; snapshot events can arrive from several workers
// within the same millisecond.
const barRefresh = 65 * time.Millisecond

// NewProgressBar returns a counting bar, or nil when progress is off.
// The progressbar methods are not nil-safe, so callers check.
func NewProgressBar(cfg ProgressConfig, total int64, description string) *progressbar.ProgressBar {
	if !cfg.Enabled {
		return nil
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(cfg.Writer),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(barRefresh),
		progressbar.OptionEnableColorCodes(!cfg.NoColor),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer: "=", SaucerHead: ">", SaucerPadding: " ",
			BarStart: "[", BarEnd: "]",
		}),
	)
}

// NewSpinner is NewProgressBar for work of unknown size, such as a
// metadata synchronization.
func NewSpinner(cfg ProgressConfig, description string) *progressbar.ProgressBar {
	if !cfg.Enabled {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(cfg.Writer),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(!cfg.NoColor),
	)
}

// titleProgress renders one bar per title from engine events. Events for
// one title may arrive from several workers.
type titleProgress struct {
	cfg ProgressConfig

	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	failed int
}

func newTitleProgress(cfg ProgressConfig) *titleProgress {
	return &titleProgress{cfg: cfg}
}

// Handle is an ingestion.ProgressFunc.
func (p *titleProgress) Handle(ev ingestion.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Kind {
	case ingestion.EventTitleStart:
		p.failed = 0
		p.bar = NewProgressBar(p.cfg, int64(ev.Total), titleDescription(ev.Title, 0))
	case ingestion.EventSnapshotDone, ingestion.EventSnapshotSkip:
		if p.bar != nil {
			_ = p.bar.Add(1)
		}
	case ingestion.EventSnapshotError:
		p.failed++
		if p.bar != nil {
			p.bar.Describe(titleDescription(ev.Title, p.failed))
			_ = p.bar.Add(1)
		}
	case ingestion.EventTitleDone:
		if p.bar != nil {
			_ = p.bar.Finish()
			p.bar = nil
		}
	}
}

// titleDescription is the label shown before a title's bar.
func titleDescription(title, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("Title %d", title)
	}
	return fmt.Sprintf("Title %d (%d failed)", title, failed)
}
