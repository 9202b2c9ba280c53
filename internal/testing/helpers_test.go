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

package testing

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cfrscope/pkg/registry"
)

// TestSetupTestBackend verifies the test backend is created correctly.
func TestSetupTestBackend(t *testing.T) {
	backend := SetupTestBackend(t)
	require.NotNil(t, backend)

	assert.Empty(t, QuerySnapshots(t, backend), "Should start with no snapshots")
}

func TestInsertHelpers(t *testing.T) {
	backend := SetupTestBackend(t)

	InsertTestTitle(t, backend, 7, "Agriculture", "2024-02-01", "2023-02-01")
	id := InsertTestAgency(t, backend, "Department of Agriculture", "agriculture-department")
	InsertTestLink(t, backend, id, 7)
	InsertTestSnapshot(t, backend, 7, "2024-02-01", 1000, 25)

	title := QueryTitle(t, backend, 7)
	assert.Equal(t, "Agriculture", title.Name)
	assert.Equal(t, []string{"2024-02-01", "2023-02-01"}, title.SnapshotDates)

	snaps := QuerySnapshots(t, backend)
	require.Len(t, snaps, 1)
	assert.Equal(t, 25.0, snaps[0].DensityScore)
}

func TestFakeRegistry(t *testing.T) {
	fake := NewFakeRegistry(t)
	fake.AddAgency(registry.Agency{
		Name: "Federal Aviation Administration",
		Slug: "faa",
		CFRReferences: []registry.CFRReference{
			{Title: registry.TitleRef{Number: 14}},
		},
	})
	fake.AddTitle(14, "Aeronautics and Space")
	fake.SetVersions(14, "2024-01-01", "2024-03-01", "2024-01-01")
	fake.SetDocument(14, "2024-03-01", "<DIV>Pilots must log hours.</DIV>")

	client := fake.Client()
	ctx := context.Background()

	agencies, err := client.ListAgencies(ctx)
	require.NoError(t, err)
	require.Len(t, agencies, 1)
	assert.Equal(t, 14, agencies[0].CFRReferences[0].Title.Number)

	dates, err := client.ListVersionDates(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-03-01", "2024-01-01"}, dates)

	doc, err := client.FetchDocument(ctx, 14, "2024-03-01")
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Pilots must")
	assert.Equal(t, 1, fake.Hits(DocumentPath(14, "2024-03-01")))

	fake.FailPath(DocumentPath(14, "2024-03-01"), http.StatusServiceUnavailable)
	_, err = client.FetchDocument(ctx, 14, "2024-03-01")
	require.Error(t, err)
	assert.Equal(t, registry.ErrorProviderOutage, registry.CategoryOf(err))
	assert.Equal(t, 2, fake.DocumentHits())

	_, err = client.ListVersionDates(ctx, 99)
	assert.True(t, registry.IsNotFound(err))
}
