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
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kraklabs/cfrscope/pkg/storage"
)

// AgencySummary is one dashboard row. Words and density use the latest
// snapshot of each linked title.
type AgencySummary struct {
	Agency         string     `json:"agency"`
	TotalTitles    int        `json:"totalTitles"`
	TotalWords     int        `json:"totalWords"`
	AverageDensity float64    `json:"averageDensity"`
	LastUpdated    *time.Time `json:"lastUpdated,omitempty"`
}

// TrendPoint aggregates every snapshot sharing one effective date.
type TrendPoint struct {
	EffectiveDate  string  `json:"effectiveDate"`
	Titles         int     `json:"titles"`
	TotalWords     int     `json:"totalWords"`
	AverageDensity float64 `json:"averageDensity"`
}

// Dashboard is the aggregate read model over the local mirror.
type Dashboard struct {
	Stats    storage.Stats   `json:"stats"`
	Agencies []AgencySummary `json:"agencies"`
	Trends   []TrendPoint    `json:"trends"`
}

// BuildDashboard aggregates agencies and date trends. Agencies without
// linked titles are omitted.
func BuildDashboard(ctx context.Context, store storage.Backend) (*Dashboard, error) {
	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	rows, err := store.ListAgencyTitleRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard agencies: %w", err)
	}
	snaps, err := store.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard trends: %w", err)
	}
	return &Dashboard{
		Stats:    stats,
		Agencies: summarizeAgencies(rows),
		Trends:   summarizeTrends(snaps),
	}, nil
}

func summarizeAgencies(rows []storage.AgencyTitleRow) []AgencySummary {
	type acc struct {
		sum      AgencySummary
		density  float64
		measured int
	}
	byID := make(map[int64]*acc)
	var order []int64
	for _, r := range rows {
		a, ok := byID[r.AgencyID]
		if !ok {
			a = &acc{sum: AgencySummary{Agency: r.AgencyName}}
			byID[r.AgencyID] = a
			order = append(order, r.AgencyID)
		}
		a.sum.TotalTitles++
		if r.HasSnapshot {
			a.sum.TotalWords += r.WordCount
			a.density += r.DensityScore
			a.measured++
		}
		if r.LastScraped != nil && (a.sum.LastUpdated == nil || r.LastScraped.After(*a.sum.LastUpdated)) {
			ts := *r.LastScraped
			a.sum.LastUpdated = &ts
		}
	}

	out := make([]AgencySummary, 0, len(order))
	for _, id := range order {
		a := byID[id]
		if a.measured > 0 {
			a.sum.AverageDensity = round2(a.density / float64(a.measured))
		}
		out = append(out, a.sum)
	}
	return out
}

func summarizeTrends(snaps []storage.Snapshot) []TrendPoint {
	byDate := make(map[string]*TrendPoint)
	density := make(map[string]float64)
	for _, s := range snaps {
		p, ok := byDate[s.EffectiveDate]
		if !ok {
			p = &TrendPoint{EffectiveDate: s.EffectiveDate}
			byDate[s.EffectiveDate] = p
		}
		p.Titles++
		p.TotalWords += s.WordCount
		density[s.EffectiveDate] += s.DensityScore
	}

	out := make([]TrendPoint, 0, len(byDate))
	for date, p := range byDate {
		p.AverageDensity = round2(density[date] / float64(p.Titles))
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveDate < out[j].EffectiveDate })
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
