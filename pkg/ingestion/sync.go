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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kraklabs/cfrscope/pkg/registry"
	"github.com/kraklabs/cfrscope/pkg/storage"
)

// Registry is the subset of the registry client the pipeline consumes.
type Registry interface {
	ListAgencies(ctx context.Context) ([]registry.Agency, error)
	ListTitles(ctx context.Context) ([]registry.Title, error)
	ListVersionDates(ctx context.Context, titleNumber int) ([]string, error)
	FetchDocument(ctx context.Context, titleNumber int, date string) ([]byte, error)
}

// ItemError records one isolated failure inside a run.
type ItemError struct {
	Stage    string `json:"stage"`
	Title    int    `json:"title,omitempty"`
	Date     string `json:"date,omitempty"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message"`
}

func newItemError(stage string, title int, date string, err error) ItemError {
	ie := ItemError{Stage: stage, Title: title, Date: date, Message: err.Error()}
	var re *registry.Error
	if errors.As(err, &re) {
		ie.Category = string(re.Category)
	}
	return ie
}

// SyncResult summarizes one metadata synchronization.
type SyncResult struct {
	ResetPerformed  bool                `json:"resetPerformed"`
	ResetCounts     storage.ResetCounts `json:"resetCounts"`
	AgencyCount     int                 `json:"agencyCount"`
	AgenciesCreated int                 `json:"agenciesCreated"`
	TitleCount      int                 `json:"titleCount"`
	TitlesCreated   int                 `json:"titlesCreated"`
	DatesRefreshed  int                 `json:"datesRefreshed"`
	Links           LinkResult          `json:"links"`
	Errors          []ItemError         `json:"errors,omitempty"`
	Canceled        bool                `json:"canceled,omitempty"`
	Duration        time.Duration       `json:"duration"`
}

// Synchronizer refreshes the local catalog of agencies, titles, links and
// known version dates from the registry.
type Synchronizer struct {
	registry Registry
	store    storage.Backend
	links    *LinkResolver
	logger   *slog.Logger
}

// NewSynchronizer wires a Synchronizer. links may be nil to skip linking.
func NewSynchronizer(reg Registry, store storage.Backend, links *LinkResolver, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{registry: reg, store: store, links: links, logger: logger}
}

// Synchronize runs one pass. With reset, every stored row is deleted first;
// a failed reset aborts the pass and is the only error that is not isolated
// per item. Cancellation stops the pass between items and returns ctx.Err()
// together with the partial result.
func (s *Synchronizer) Synchronize(ctx context.Context, reset bool) (*SyncResult, error) {
	start := time.Now()
	res := &SyncResult{}
	defer func() {
		res.Duration = time.Since(start)
		observeSync(res.Duration)
	}()

	if reset {
		s.logger.Warn("sync.reset.start")
		counts, err := s.store.Reset(ctx)
		if err != nil {
			s.logger.Error("sync.reset.failed", "err", err)
			return res, fmt.Errorf("reset catalog: %w", err)
		}
		res.ResetPerformed = true
		res.ResetCounts = counts
		s.logger.Warn("sync.reset.done",
			"snapshots", counts.Snapshots,
			"links", counts.Links,
			"titles", counts.Titles,
			"agencies", counts.Agencies,
		)
	}

	agencies, err := s.registry.ListAgencies(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return s.canceled(res, ctx.Err())
		}
		res.Errors = append(res.Errors, newItemError("list_agencies", 0, "", err))
		s.logger.Warn("sync.agencies.error", "err", err)
	} else {
		s.logger.Info("sync.agencies.fetched", "count", len(agencies))
		if err := s.upsertAgencies(ctx, agencies, res); err != nil {
			return s.canceled(res, err)
		}
	}

	titles, err := s.registry.ListTitles(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return s.canceled(res, ctx.Err())
		}
		res.Errors = append(res.Errors, newItemError("list_titles", 0, "", err))
		s.logger.Warn("sync.titles.error", "err", err)
	} else {
		s.logger.Info("sync.titles.fetched", "count", len(titles))
		if err := s.upsertTitles(ctx, titles, res); err != nil {
			return s.canceled(res, err)
		}
	}

	if s.links != nil {
		links, err := s.links.Resolve(ctx, agencies)
		res.Links = links
		if err != nil {
			if ctx.Err() != nil {
				return s.canceled(res, ctx.Err())
			}
			res.Errors = append(res.Errors, newItemError("resolve_links", 0, "", err))
			s.logger.Warn("sync.links.error", "err", err)
		}
	}

	if err := s.refreshAllDates(ctx, res); err != nil {
		return s.canceled(res, err)
	}

	s.logger.Info("sync.done",
		"reset", res.ResetPerformed,
		"agencies", res.AgencyCount,
		"titles", res.TitleCount,
		"dates_refreshed", res.DatesRefreshed,
		"links_created", res.Links.Created,
		"errors", len(res.Errors),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (s *Synchronizer) canceled(res *SyncResult, err error) (*SyncResult, error) {
	res.Canceled = true
	s.logger.Warn("sync.canceled", "err", err)
	return res, err
}

func (s *Synchronizer) upsertAgencies(ctx context.Context, agencies []registry.Agency, res *SyncResult) error {
	for _, a := range flattenAgencies(agencies) {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, created, err := s.store.UpsertAgency(ctx, a.Name, a.Slug)
		if err != nil {
			res.Errors = append(res.Errors, newItemError("upsert_agency", 0, "", fmt.Errorf("%s: %w", a.Name, err)))
			s.logger.Warn("sync.agency.upsert.error", "agency", a.Name, "err", err)
			continue
		}
		res.AgencyCount++
		if created {
			res.AgenciesCreated++
		}
	}
	recordAgenciesSynced(res.AgencyCount)
	return nil
}

func (s *Synchronizer) upsertTitles(ctx context.Context, titles []registry.Title, res *SyncResult) error {
	for _, t := range titles {
		if err := ctx.Err(); err != nil {
			return err
		}
		created, err := s.store.UpsertTitle(ctx, t.Number, t.Name)
		if err != nil {
			res.Errors = append(res.Errors, newItemError("upsert_title", t.Number, "", err))
			s.logger.Warn("sync.title.upsert.error", "title", t.Number, "err", err)
			continue
		}
		res.TitleCount++
		if created {
			res.TitlesCreated++
		}
	}
	recordTitlesSynced(res.TitleCount)
	return nil
}

// refreshAllDates refreshes the version dates of every locally known title.
// A failure for one title leaves its stored dates unchanged.
func (s *Synchronizer) refreshAllDates(ctx context.Context, res *SyncResult) error {
	local, err := s.store.ListTitles(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res.Errors = append(res.Errors, newItemError("list_local_titles", 0, "", err))
		s.logger.Warn("sync.dates.list_local.error", "err", err)
		return nil
	}

	for _, t := range local {
		if err := ctx.Err(); err != nil {
			return err
		}
		dates, err := refreshDates(ctx, s.registry, s.store, s.logger, t.Number)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Errors = append(res.Errors, newItemError("refresh_dates", t.Number, "", err))
			recordDateRefreshFailure()
			s.logger.Warn("sync.dates.error", "title", t.Number, "err", err)
			continue
		}
		res.DatesRefreshed++
		s.logger.Debug("sync.dates.refreshed", "title", t.Number, "count", len(dates))
	}
	return nil
}

// refreshDates fetches, normalizes and stores one title's version dates.
// The returned list is what the store holds, which also keeps dates that
// already have snapshots.
func refreshDates(ctx context.Context, reg Registry, store storage.Backend, logger *slog.Logger, title int) ([]string, error) {
	raw, err := reg.ListVersionDates(ctx, title)
	if err != nil {
		return nil, err
	}
	dates, dropped := NormalizeDates(raw)
	if dropped > 0 {
		logger.Debug("dates.normalize.dropped", "title", title, "count", dropped)
	}
	return store.SetSnapshotDates(ctx, title, dates)
}
