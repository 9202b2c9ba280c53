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

package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by backends.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnknownDate   = errors.New("date not in title snapshot dates")
	ErrResetFailed   = errors.New("reset failed")
	ErrClosed        = errors.New("backend is closed")
)

// ScrapeStatus tracks whether a snapshot pass has been attempted for a title.
type ScrapeStatus string

const (
	StatusPending   ScrapeStatus = "PENDING"
	StatusCompleted ScrapeStatus = "COMPLETED"
)

// Agency is an organizational entity, keyed by Name.
type Agency struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Title is a top-level grouping of regulatory text.
//
// SnapshotDates is the known universe of versions, newest first, with no
// repeats. It is not the set of materialized snapshots.
type Title struct {
	Number        int          `json:"number"`
	Name          string       `json:"name"`
	SnapshotDates []string     `json:"snapshot_dates"`
	ScrapeStatus  ScrapeStatus `json:"scrape_status"`
	LastScraped   *time.Time   `json:"last_scraped,omitempty"`
}

// Snapshot is a materialized, metric-annotated copy of one title on one date.
// Snapshots are create-only.
type Snapshot struct {
	TitleNumber      int       `json:"title_number"`
	EffectiveDate    string    `json:"effective_date"`
	WordCount        int       `json:"word_count"`
	RestrictionCount int       `json:"restriction_count"`
	Checksum         string    `json:"checksum"`
	DensityScore     float64   `json:"restriction_density_score"`
	CreatedAt        time.Time `json:"created_at"`
}

// CatalogEntry is the read-only selection view of one title.
type CatalogEntry struct {
	Number      int      `json:"number"`
	Name        string   `json:"name"`
	AllDates    []string `json:"allDates"`
	LoadedDates []string `json:"loadedDates"`
}

// HistoryPoint is one snapshot in a title's history.
type HistoryPoint struct {
	EffectiveDate    string  `json:"effectiveDate"`
	WordCount        int     `json:"wordCount"`
	RestrictionCount int     `json:"restrictionCount"`
	Checksum         string  `json:"checksum"`
	DensityScore     float64 `json:"restrictionDensityScore"`
}

// AgencyTitleRow joins a link with the title's latest snapshot, if any.
type AgencyTitleRow struct {
	AgencyID     int64
	AgencyName   string
	TitleNumber  int
	LastScraped  *time.Time
	HasSnapshot  bool
	LatestDate   string
	WordCount    int
	DensityScore float64
}

// Stats counts rows per entity.
type Stats struct {
	Agencies        int `json:"agencies"`
	Titles          int `json:"titles"`
	CompletedTitles int `json:"completed_titles"`
	Links           int `json:"links"`
	Snapshots       int `json:"snapshots"`
}

// ResetCounts reports how many rows a reset removed, per entity.
type ResetCounts struct {
	Snapshots int64 `json:"snapshots"`
	Links     int64 `json:"links"`
	Titles    int64 `json:"titles"`
	Agencies  int64 `json:"agencies"`
}

// Backend is the interface that all storage backends must implement.
type Backend interface {
	// UpsertAgency creates the agency or updates only its slug.
	UpsertAgency(ctx context.Context, name, slug string) (Agency, bool, error)
	GetAgencyByName(ctx context.Context, name string) (Agency, error)
	ListAgencies(ctx context.Context) ([]Agency, error)

	// UpsertTitle creates the title or updates only its name.
	UpsertTitle(ctx context.Context, number int, name string) (bool, error)
	GetTitle(ctx context.Context, number int) (Title, error)
	ListTitles(ctx context.Context) ([]Title, error)
	// SetSnapshotDates stores the title's version dates, keeping every date
	// that already has a snapshot, and returns the stored list.
	SetSnapshotDates(ctx context.Context, number int, dates []string) ([]string, error)
	MarkScraped(ctx context.Context, number int, at time.Time) error

	// UpsertAgencyTitle links an agency to a title. Duplicates are a no-op.
	UpsertAgencyTitle(ctx context.Context, agencyID int64, titleNumber int) (bool, error)

	SnapshotExists(ctx context.Context, titleNumber int, date string) (bool, error)
	// CreateSnapshot inserts a snapshot; an existing (title, date) yields ErrAlreadyExists.
	CreateSnapshot(ctx context.Context, s Snapshot) error
	ListSnapshots(ctx context.Context) ([]Snapshot, error)

	ListCatalog(ctx context.Context) ([]CatalogEntry, error)
	ListHistory(ctx context.Context, titleNumber int) ([]HistoryPoint, error)
	ListAgencyTitleRows(ctx context.Context) ([]AgencyTitleRow, error)
	Stats(ctx context.Context) (Stats, error)

	// Reset deletes every row, children before parents, in one transaction.
	Reset(ctx context.Context) (ResetCounts, error)

	// Close releases any resources held by the backend.
	Close() error
}
