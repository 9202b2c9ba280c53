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
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// NormalizeDates parses raw registry dates, removes repeats by calendar day
// and returns them newest first as YYYY-MM-DD strings. Entries that do not
// parse are dropped and counted.
func NormalizeDates(raw []string) (dates []string, dropped int) {
	seen := make(map[time.Time]struct{}, len(raw))
	parsed := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		d, err := time.Parse(dateLayout, strings.TrimSpace(r))
		if err != nil {
			dropped++
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		parsed = append(parsed, d)
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].After(parsed[j]) })

	dates = make([]string, len(parsed))
	for i, d := range parsed {
		dates[i] = d.Format(dateLayout)
	}
	return dates, dropped
}

// selectNewest returns the first limit dates of a newest-first list.
func selectNewest(dates []string, limit int) []string {
	if limit < 0 {
		limit = 0
	}
	if limit > len(dates) {
		limit = len(dates)
	}
	out := make([]string, limit)
	copy(out, dates[:limit])
	return out
}
