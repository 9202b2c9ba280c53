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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfrtest "github.com/kraklabs/cfrscope/internal/testing"
	"github.com/kraklabs/cfrscope/pkg/registry"
	"github.com/kraklabs/cfrscope/pkg/storage"
)

func ref(n int) registry.CFRReference {
	return registry.CFRReference{Title: registry.TitleRef{Number: n}}
}

func seedRemoteCatalog(f *fixture) {
	f.fake.AddAgency(registry.Agency{
		Name:          "Department of Transportation",
		Slug:          "transportation-department",
		CFRReferences: []registry.CFRReference{ref(49)},
		Children: []registry.Agency{{
			Name:          "Federal Aviation Administration",
			Slug:          "federal-aviation-administration",
			CFRReferences: []registry.CFRReference{ref(14)},
		}},
	})
	f.fake.AddAgency(registry.Agency{ShortName: "EPA", Slug: "environmental-protection-agency", CFRReferences: []registry.CFRReference{ref(40)}})
	f.publish(14, "Aeronautics and Space", "2024-01-01", "2023-06-01", "2024-01-01")
	f.publish(40, "Protection of Environment", "2024-02-01")
	f.publish(49, "Transportation", "2022-05-01", "2024-05-01")
}

func TestSynchronize(t *testing.T) {
	f := newFixture(t)
	seedRemoteCatalog(f)
	s := NewSynchronizer(f.reg, f.store, NewLinkResolver(f.store, nil, nil), nil)

	res, err := s.Synchronize(context.Background(), false)
	require.NoError(t, err)

	assert.False(t, res.ResetPerformed)
	assert.Equal(t, 3, res.AgencyCount)
	assert.Equal(t, 3, res.AgenciesCreated)
	assert.Equal(t, 3, res.TitleCount)
	assert.Equal(t, 3, res.DatesRefreshed)
	assert.Equal(t, 3, res.Links.Created)
	assert.Empty(t, res.Errors)

	assert.Equal(t, []string{"2024-01-01", "2023-06-01"}, cfrtest.QueryTitle(t, f.store, 14).SnapshotDates)
	assert.Equal(t, []string{"2024-05-01", "2022-05-01"}, cfrtest.QueryTitle(t, f.store, 49).SnapshotDates)

	epa, err := f.store.GetAgencyByName(context.Background(), "EPA")
	require.NoError(t, err)
	assert.Equal(t, "environmental-protection-agency", epa.Slug)

	stats, err := f.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Links)
}

func TestSynchronizeIsRepeatable(t *testing.T) {
	f := newFixture(t)
	seedRemoteCatalog(f)
	s := NewSynchronizer(f.reg, f.store, NewLinkResolver(f.store, nil, nil), nil)
	ctx := context.Background()

	_, err := s.Synchronize(ctx, false)
	require.NoError(t, err)

	f.fake.AddTitle(14, "Aeronautics and Space (Revised)")
	res, err := s.Synchronize(ctx, false)
	require.NoError(t, err)

	assert.Zero(t, res.AgenciesCreated)
	assert.Zero(t, res.TitlesCreated)
	assert.Zero(t, res.Links.Created)
	assert.Equal(t, 3, res.Links.Existing)
	assert.Equal(t, "Aeronautics and Space (Revised)", cfrtest.QueryTitle(t, f.store, 14).Name)
}

func TestSynchronizeKeepsStatusAndSnapshots(t *testing.T) {
	f := newFixture(t)
	seedRemoteCatalog(f)
	s := NewSynchronizer(f.reg, f.store, NewLinkResolver(f.store, nil, nil), nil)
	ctx := context.Background()

	_, err := s.Synchronize(ctx, false)
	require.NoError(t, err)
	_, err = NewEngine(f.reg, f.store, 1, nil).Ingest(ctx, []int{40}, 1)
	require.NoError(t, err)

	_, err = s.Synchronize(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusCompleted, cfrtest.QueryTitle(t, f.store, 40).ScrapeStatus)
	assert.Len(t, cfrtest.QuerySnapshots(t, f.store), 1)
}

func TestSynchronizeKeepsDatesOfStoredSnapshots(t *testing.T) {
	f := newFixture(t)
	seedRemoteCatalog(f)
	s := NewSynchronizer(f.reg, f.store, NewLinkResolver(f.store, nil, nil), nil)
	ctx := context.Background()

	_, err := s.Synchronize(ctx, false)
	require.NoError(t, err)
	_, err = NewEngine(f.reg, f.store, 1, nil).Ingest(ctx, []int{14}, 2)
	require.NoError(t, err)
	require.Len(t, cfrtest.QuerySnapshots(t, f.store), 2)

	f.fake.SetVersions(14)
	f.fake.SetVersions(49, "2025-01-01")

	res, err := s.Synchronize(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 3, res.DatesRefreshed)

	assert.Equal(t, []string{"2024-01-01", "2023-06-01"}, cfrtest.QueryTitle(t, f.store, 14).SnapshotDates)
	assert.Equal(t, []string{"2025-01-01"}, cfrtest.QueryTitle(t, f.store, 49).SnapshotDates)
}

func TestSynchronizeEmptyAgencyListing(t *testing.T) {
	f := newFixture(t)
	f.publish(1, "General Provisions", "2024-01-01")

	res, err := NewSynchronizer(f.reg, f.store, NewLinkResolver(f.store, nil, nil), nil).Synchronize(context.Background(), false)
	require.NoError(t, err)

	assert.Empty(t, res.Errors)
	assert.Zero(t, res.AgencyCount)
	assert.Equal(t, 1, res.TitleCount)
	assert.Zero(t, res.Links.Created)
}

func TestSynchronizeLogsThroughInjectedLogger(t *testing.T) {
	f := newFixture(t)
	f.publish(1, "General Provisions", "2024-01-01", "not-a-date")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err := NewSynchronizer(f.reg, f.store, nil, logger).Synchronize(context.Background(), false)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "dates.normalize.dropped")
	assert.Equal(t, []string{"2024-01-01"}, cfrtest.QueryTitle(t, f.store, 1).SnapshotDates)
}

func TestSynchronizeIsolatesDateFailures(t *testing.T) {
	f := newFixture(t)
	seedRemoteCatalog(f)
	s := NewSynchronizer(f.reg, f.store, NewLinkResolver(f.store, nil, nil), nil)
	ctx := context.Background()

	_, err := s.Synchronize(ctx, false)
	require.NoError(t, err)

	f.fake.SetVersions(49, "2025-01-01", "2024-05-01")
	f.fake.SetVersions(14, "2025-02-01")
	f.fake.FailPath(cfrtest.VersionsPath(14), http.StatusServiceUnavailable)

	res, err := s.Synchronize(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.DatesRefreshed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "refresh_dates", res.Errors[0].Stage)
	assert.Equal(t, 14, res.Errors[0].Title)

	assert.Equal(t, []string{"2024-01-01", "2023-06-01"}, cfrtest.QueryTitle(t, f.store, 14).SnapshotDates)
	assert.Equal(t, []string{"2025-01-01", "2024-05-01"}, cfrtest.QueryTitle(t, f.store, 49).SnapshotDates)
}

func TestSynchronizeListingFailuresAreRecorded(t *testing.T) {
	f := newFixture(t)
	seedRemoteCatalog(f)
	f.fake.FailPath(cfrtest.AgenciesPath, http.StatusTooManyRequests)

	res, err := NewSynchronizer(f.reg, f.store, NewLinkResolver(f.store, nil, nil), nil).Synchronize(context.Background(), false)
	require.NoError(t, err)

	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "list_agencies", res.Errors[0].Stage)
	assert.Equal(t, "rate_limited", res.Errors[0].Category)
	assert.Equal(t, 3, res.TitleCount)
	assert.Zero(t, res.AgencyCount)
}

func TestSynchronizeReset(t *testing.T) {
	f := newFixture(t)
	seedRemoteCatalog(f)
	s := NewSynchronizer(f.reg, f.store, NewLinkResolver(f.store, nil, nil), nil)
	ctx := context.Background()

	_, err := s.Synchronize(ctx, false)
	require.NoError(t, err)
	_, err = NewEngine(f.reg, f.store, 1, nil).Ingest(ctx, []int{14, 40}, 2)
	require.NoError(t, err)
	require.Len(t, cfrtest.QuerySnapshots(t, f.store), 3)

	res, err := s.Synchronize(ctx, true)
	require.NoError(t, err)
	assert.True(t, res.ResetPerformed)
	assert.EqualValues(t, 3, res.ResetCounts.Snapshots)
	assert.EqualValues(t, 3, res.ResetCounts.Links)
	assert.Equal(t, 3, res.AgenciesCreated)
	assert.Equal(t, 3, res.TitlesCreated)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Snapshots)
	assert.Equal(t, 3, stats.Titles)
	assert.Equal(t, 3, stats.Agencies)
	assert.Equal(t, storage.StatusPending, cfrtest.QueryTitle(t, f.store, 14).ScrapeStatus)
}

type failingReset struct {
	storage.Backend
}

func (failingReset) Reset(context.Context) (storage.ResetCounts, error) {
	return storage.ResetCounts{}, fmt.Errorf("%w: delete agency_titles: disk I/O error", storage.ErrResetFailed)
}

func TestSynchronizeResetFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	seedRemoteCatalog(f)
	store := failingReset{f.store}

	res, err := NewSynchronizer(f.reg, store, NewLinkResolver(store, nil, nil), nil).Synchronize(context.Background(), true)
	require.ErrorIs(t, err, storage.ErrResetFailed)
	assert.False(t, res.ResetPerformed)
	assert.Zero(t, f.fake.Hits(cfrtest.AgenciesPath), "must not repopulate after a failed reset")
}

func TestSynchronizeCanceled(t *testing.T) {
	f := newFixture(t)
	seedRemoteCatalog(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewSynchronizer(f.reg, f.store, nil, nil).Synchronize(ctx, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Canceled)
}
