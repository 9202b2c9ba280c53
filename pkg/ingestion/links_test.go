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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfrtest "github.com/kraklabs/cfrscope/internal/testing"
	"github.com/kraklabs/cfrscope/pkg/registry"
)

func TestLinkResolver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfrtest.InsertTestTitle(t, f.store, 14, "Aeronautics and Space")
	cfrtest.InsertTestTitle(t, f.store, 49, "Transportation")
	cfrtest.InsertTestAgency(t, f.store, "Department of Transportation", "dot")
	cfrtest.InsertTestAgency(t, f.store, "Federal Aviation Administration", "faa")

	agencies := []registry.Agency{
		{
			Name: "Department of Transportation",
			CFRReferences: []registry.CFRReference{
				ref(49), ref(49), ref(14), ref(77),
				{Title: registry.TitleRef{Raw: "IV"}},
			},
			Children: []registry.Agency{
				{Name: "Federal Aviation Administration", CFRReferences: []registry.CFRReference{ref(14)}},
			},
		},
		{Name: "Not Stored", CFRReferences: []registry.CFRReference{ref(14)}},
		{Name: "No References"},
	}

	r := NewLinkResolver(f.store, nil, nil)
	res, err := r.Resolve(ctx, agencies)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 1, res.UnknownTitles)
	assert.Equal(t, 1, res.InvalidRefs)
	assert.Equal(t, 1, res.UnknownAgencies)
	assert.False(t, res.FallbackApplied)

	again, err := r.Resolve(ctx, agencies)
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Equal(t, 3, again.Existing)
}

func TestLinkResolverFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfrtest.InsertTestTitle(t, f.store, 1, "General Provisions")
	cfrtest.InsertTestAgency(t, f.store, "Administrative Committee of the Federal Register", "acfr")

	fallback := []LinkPair{
		{Agency: "Administrative Committee of the Federal Register", Title: 1},
		{Agency: "Missing Agency", Title: 1},
		{Agency: "Administrative Committee of the Federal Register", Title: 99},
	}
	res, err := NewLinkResolver(f.store, fallback, nil).Resolve(ctx, nil)
	require.NoError(t, err)
	assert.True(t, res.FallbackApplied)
	assert.Equal(t, 1, res.Created)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Links)
}

func TestLinkResolverNoFallbackConfigured(t *testing.T) {
	f := newFixture(t)
	cfrtest.InsertTestTitle(t, f.store, 1, "General Provisions")

	res, err := NewLinkResolver(f.store, nil, nil).Resolve(context.Background(), []registry.Agency{{Name: "Unlinked"}})
	require.NoError(t, err)
	assert.Zero(t, res.Resolved())
	assert.False(t, res.FallbackApplied)
}

func TestFlattenAgencies(t *testing.T) {
	tree := []registry.Agency{
		{Name: "A", Children: []registry.Agency{{Name: "A1", Children: []registry.Agency{{Name: "A1a"}}}, {Name: "A2"}}},
		{Name: "B"},
	}
	var names []string
	for _, a := range flattenAgencies(tree) {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"A", "A1", "A1a", "A2", "B"}, names)
}
