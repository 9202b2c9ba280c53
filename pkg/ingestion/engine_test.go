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
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfrtest "github.com/kraklabs/cfrscope/internal/testing"
	"github.com/kraklabs/cfrscope/pkg/storage"
)

const sampleDoc = `<DIV1 N="1" TYPE="TITLE"><HEAD>General</HEAD><P>The operator shall file a report. Records must be kept.</P></DIV1>`

type fixture struct {
	fake  *cfrtest.FakeRegistry
	store *storage.SQLiteBackend
	reg   Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := cfrtest.NewFakeRegistry(t)
	return &fixture{fake: fake, store: cfrtest.SetupTestBackend(t), reg: fake.Client()}
}

// publish registers a title remotely with one document per date.
func (f *fixture) publish(title int, name string, dates ...string) {
	f.fake.AddTitle(title, name)
	f.fake.SetVersions(title, dates...)
	for _, d := range dates {
		f.fake.SetDocument(title, d, sampleDoc)
	}
}

func monthlyDates(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("2024-%02d-01", i+1)
	}
	return out
}

func TestEngineRespectsCap(t *testing.T) {
	f := newFixture(t)
	dates := monthlyDates(10)
	f.publish(14, "Aeronautics and Space", dates...)
	cfrtest.InsertTestTitle(t, f.store, 14, "Aeronautics and Space")

	e := NewEngine(f.reg, f.store, 1, nil)
	res, err := e.Ingest(context.Background(), []int{14}, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 3, f.fake.DocumentHits())
	for _, d := range []string{"2024-10-01", "2024-09-01", "2024-08-01"} {
		assert.Equal(t, 1, f.fake.Hits(cfrtest.DocumentPath(14, d)), d)
	}
	assert.Zero(t, f.fake.Hits(cfrtest.DocumentPath(14, "2024-07-01")))

	title := cfrtest.QueryTitle(t, f.store, 14)
	assert.Equal(t, storage.StatusCompleted, title.ScrapeStatus)
	assert.NotNil(t, title.LastScraped)
	assert.Len(t, title.SnapshotDates, 10)
	assert.Equal(t, "2024-10-01", title.SnapshotDates[0])

	require.Len(t, res.Titles, 1)
	assert.Equal(t, []string{"2024-10-01", "2024-09-01", "2024-08-01"}, res.Titles[0].Selected)
	assert.Contains(t, res.SummaryMessage, "completed cleanly")
}

func TestEngineIdempotent(t *testing.T) {
	f := newFixture(t)
	f.publish(1, "General Provisions", "2024-01-01", "2023-01-01", "2022-01-01")
	cfrtest.InsertTestTitle(t, f.store, 1, "General Provisions")
	e := NewEngine(f.reg, f.store, 1, nil)
	ctx := context.Background()

	first, err := e.Ingest(ctx, []int{1}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Succeeded)
	before := cfrtest.QuerySnapshots(t, f.store)

	second, err := e.Ingest(ctx, []int{1}, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Succeeded)
	assert.Equal(t, 0, second.Failed)
	assert.Equal(t, 3, second.Skipped)
	assert.Equal(t, 3, f.fake.DocumentHits(), "second run must not fetch documents")
	assert.Equal(t, before, cfrtest.QuerySnapshots(t, f.store))
}

func TestEnginePartialFailure(t *testing.T) {
	f := newFixture(t)
	f.publish(14, "Aeronautics and Space", "2024-03-01", "2024-02-01", "2024-01-01")
	f.fake.FailPath(cfrtest.DocumentPath(14, "2024-02-01"), http.StatusBadGateway)
	cfrtest.InsertTestTitle(t, f.store, 14, "Aeronautics and Space")

	e := NewEngine(f.reg, f.store, 1, nil)
	res, err := e.Ingest(context.Background(), []int{14}, 3)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 3, res.Attempted)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "fetch", res.Errors[0].Stage)
	assert.Equal(t, "2024-02-01", res.Errors[0].Date)
	assert.Equal(t, "provider_outage", res.Errors[0].Category)
	assert.Contains(t, res.SummaryMessage, "completed with 1 errors")

	assert.Len(t, cfrtest.QuerySnapshots(t, f.store), 2)
	assert.Equal(t, storage.StatusCompleted, cfrtest.QueryTitle(t, f.store, 14).ScrapeStatus)
}

func TestEngineMalformedDocument(t *testing.T) {
	f := newFixture(t)
	f.publish(2, "Grants", "2024-01-01")
	f.fake.SetDocument(2, "2024-01-01", "plain text, no markup")
	cfrtest.InsertTestTitle(t, f.store, 2, "Grants")

	res, err := NewEngine(f.reg, f.store, 1, nil).Ingest(context.Background(), []int{2}, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "parse", res.Errors[0].Stage)
	assert.Empty(t, cfrtest.QuerySnapshots(t, f.store))
}

func TestEngineUnknownTitleIsSkipped(t *testing.T) {
	f := newFixture(t)
	res, err := NewEngine(f.reg, f.store, 1, nil).Ingest(context.Background(), []int{99}, 3)
	require.NoError(t, err)

	require.Len(t, res.Titles, 1)
	assert.Equal(t, TitleUnknown, res.Titles[0].Status)
	assert.Zero(t, res.Failed)
	assert.Zero(t, f.fake.Hits(cfrtest.VersionsPath(99)))
}

func TestEngineRefreshFailureLeavesStatus(t *testing.T) {
	f := newFixture(t)
	f.publish(5, "Administrative Personnel", "2024-01-01")
	f.fake.FailPath(cfrtest.VersionsPath(5), http.StatusInternalServerError)
	cfrtest.InsertTestTitle(t, f.store, 5, "Administrative Personnel", "2023-01-01")

	res, err := NewEngine(f.reg, f.store, 1, nil).Ingest(context.Background(), []int{5}, 3)
	require.NoError(t, err)

	assert.Equal(t, TitleRefreshFailed, res.Titles[0].Status)
	assert.Equal(t, 1, res.Failed)
	title := cfrtest.QueryTitle(t, f.store, 5)
	assert.Equal(t, storage.StatusPending, title.ScrapeStatus)
	assert.Equal(t, []string{"2023-01-01"}, title.SnapshotDates)
}

func TestEngineCancelMidTitle(t *testing.T) {
	f := newFixture(t)
	f.publish(3, "The President", "2024-03-01", "2024-02-01", "2024-01-01")
	cfrtest.InsertTestTitle(t, f.store, 3, "The President")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := NewEngine(f.reg, f.store, 1, nil)
	e.SetProgress(func(ev Event) {
		if ev.Kind == EventSnapshotDone {
			cancel()
		}
	})

	res, err := e.Ingest(ctx, []int{3, 4}, 3)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Canceled)
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Titles, 1)
	assert.Equal(t, TitleCanceled, res.Titles[0].Status)
	assert.Equal(t, storage.StatusPending, cfrtest.QueryTitle(t, f.store, 3).ScrapeStatus)
	assert.Contains(t, res.SummaryMessage, "canceled")
}

func TestEngineIngestDates(t *testing.T) {
	f := newFixture(t)
	f.publish(10, "Energy", "2024-03-01", "2024-02-01", "2024-01-01")
	cfrtest.InsertTestTitle(t, f.store, 10, "Energy")

	res, err := NewEngine(f.reg, f.store, 1, nil).IngestDates(context.Background(), 10, []string{"2024-02-01", "1999-01-01"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, f.fake.DocumentHits())
	var stages []string
	for _, e := range res.Errors {
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []string{"select_date"}, stages)
	assert.Contains(t, res.SummaryMessage, "completed with 1 errors")
}

func TestEngineIngestDatesRejectsMalformed(t *testing.T) {
	f := newFixture(t)
	f.publish(3, "The President", "2024-03-01", "2024-02-01")
	cfrtest.InsertTestTitle(t, f.store, 3, "The President")

	res, err := NewEngine(f.reg, f.store, 1, nil).IngestDates(context.Background(), 3,
		[]string{"2024-03-01", "03/01/2024", " ", "bogus"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Titles, 1)
	assert.Equal(t, 2, res.Titles[0].Failed)

	var rejected []string
	for _, e := range res.Errors {
		assert.Equal(t, "select_date", e.Stage)
		assert.Equal(t, 3, e.Title)
		rejected = append(rejected, e.Date)
	}
	assert.Equal(t, []string{"03/01/2024", "bogus"}, rejected)
	assert.Contains(t, res.SummaryMessage, "completed with 2 errors")
	assert.Len(t, cfrtest.QuerySnapshots(t, f.store), 1)
}

func TestEngineKeepsDatesOfStoredSnapshots(t *testing.T) {
	f := newFixture(t)
	f.publish(3, "The President", "2024-03-01", "2024-02-01", "2024-01-01")
	cfrtest.InsertTestTitle(t, f.store, 3, "The President")
	e := NewEngine(f.reg, f.store, 1, nil)
	ctx := context.Background()

	_, err := e.Ingest(ctx, []int{3}, 3)
	require.NoError(t, err)

	// The registry stops listing every loaded date.
	f.fake.SetVersions(3, "2024-04-01")
	f.fake.SetDocument(3, "2024-04-01", sampleDoc)

	res, err := e.Ingest(ctx, []int{3}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, []string{"2024-04-01"}, res.Titles[0].Selected)

	assert.Equal(t, []string{"2024-04-01", "2024-03-01", "2024-02-01", "2024-01-01"},
		cfrtest.QueryTitle(t, f.store, 3).SnapshotDates)
	for _, s := range cfrtest.QuerySnapshots(t, f.store) {
		assert.Contains(t, cfrtest.QueryTitle(t, f.store, 3).SnapshotDates, s.EffectiveDate)
	}
}

func TestEngineWorkersAndConcurrentRuns(t *testing.T) {
	f := newFixture(t)
	dates := monthlyDates(8)
	f.publish(40, "Protection of Environment", dates...)
	cfrtest.InsertTestTitle(t, f.store, 40, "Protection of Environment")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*IngestResult
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := NewEngine(f.reg, f.store, 4, nil).Ingest(context.Background(), []int{40}, 8)
			assert.NoError(t, err)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		succeeded += r.Succeeded
		assert.Zero(t, r.Failed)
	}
	assert.Equal(t, 8, succeeded)
	assert.Len(t, cfrtest.QuerySnapshots(t, f.store), 8)
}

func TestEngineStoresMetrics(t *testing.T) {
	f := newFixture(t)
	f.publish(7, "Agriculture", "2024-01-01")
	cfrtest.InsertTestTitle(t, f.store, 7, "Agriculture")

	_, err := NewEngine(f.reg, f.store, 1, nil).Ingest(context.Background(), []int{7}, 1)
	require.NoError(t, err)

	snaps := cfrtest.QuerySnapshots(t, f.store)
	require.Len(t, snaps, 1)
	s := snaps[0]
	// "General The operator shall file a report. Records must be kept."
	assert.Equal(t, 11, s.WordCount)
	assert.Equal(t, 2, s.RestrictionCount)
	assert.InDelta(t, 2.0/11.0*1000, s.DensityScore, 1e-9)
	assert.Len(t, s.Checksum, 64)
}
