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

// Config tunes workload resolution, link fallback and ingestion fan-out.
type Config struct {
	// DemoTitles is the fixed demo workload, in processing order.
	DemoTitles []int `yaml:"demo_titles"`

	// DemoLimit is the per-title snapshot cap in demo mode.
	DemoLimit int `yaml:"demo_limit"`

	// DefaultLimit is the custom-mode cap when none is supplied.
	DefaultLimit int `yaml:"default_limit"`

	// Workers bounds concurrent document fetches within one title.
	// 1 (the default) processes dates strictly one at a time.
	Workers int `yaml:"workers"`

	// FallbackLinks are applied only when a synchronization resolves zero
	// agency-title links. Empty by default.
	FallbackLinks []LinkPair `yaml:"fallback_links"`
}

// DefaultConfig returns the stock demo workload: titles 1-5, five snapshots
// each, custom cap 3, sequential fetches.
func DefaultConfig() Config {
	return Config{
		DemoTitles:   []int{1, 2, 3, 4, 5},
		DemoLimit:    5,
		DefaultLimit: 3,
		Workers:      1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.DemoTitles) == 0 {
		c.DemoTitles = d.DemoTitles
	}
	if c.DemoLimit < 1 {
		c.DemoLimit = d.DemoLimit
	}
	if c.DefaultLimit < 1 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.Workers < 1 {
		c.Workers = d.Workers
	}
	return c
}
