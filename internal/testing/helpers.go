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
	"testing"

	"github.com/kraklabs/cfrscope/pkg/storage"
)

// SetupTestBackend creates a SQLite backend in a temporary directory.
// The backend is automatically cleaned up when the test finishes.
//
// This helper:
//   - Creates a temporary directory
//   - Opens the database file inside it
//   - Applies the embedded migrations
//   - Registers cleanup to close the backend
func SetupTestBackend(t *testing.T) *storage.SQLiteBackend {
	t.Helper()

	backend, err := storage.NewSQLiteBackend(storage.SQLiteConfig{
		DataDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("failed to create test backend: %v", err)
	}

	if err := backend.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}

	t.Cleanup(func() {
		_ = backend.Close()
	})

	return backend
}

// InsertTestTitle adds a title with the given known dates, newest first.
//
// Example:
//
//	backend := testing.SetupTestBackend(t)
//	testing.InsertTestTitle(t, backend, 1, "General Provisions", "2024-05-01", "2023-01-01")
func InsertTestTitle(t *testing.T, backend storage.Backend, number int, name string, dates ...string) {
	t.Helper()

	ctx := context.Background()
	if _, err := backend.UpsertTitle(ctx, number, name); err != nil {
		t.Fatalf("failed to insert title %d: %v", number, err)
	}
	if dates == nil {
		dates = []string{}
	}
	if _, err := backend.SetSnapshotDates(ctx, number, dates); err != nil {
		t.Fatalf("failed to set dates for title %d: %v", number, err)
	}
}

// InsertTestAgency adds an agency and returns its ID.
func InsertTestAgency(t *testing.T, backend storage.Backend, name, slug string) int64 {
	t.Helper()

	a, _, err := backend.UpsertAgency(context.Background(), name, slug)
	if err != nil {
		t.Fatalf("failed to insert agency %q: %v", name, err)
	}
	return a.ID
}

// InsertTestLink links an agency to a title.
func InsertTestLink(t *testing.T, backend storage.Backend, agencyID int64, title int) {
	t.Helper()

	if _, err := backend.UpsertAgencyTitle(context.Background(), agencyID, title); err != nil {
		t.Fatalf("failed to link agency %d to title %d: %v", agencyID, title, err)
	}
}

// InsertTestSnapshot stores a snapshot with fixed metrics. The date must
// already be among the title's known dates.
func InsertTestSnapshot(t *testing.T, backend storage.Backend, title int, date string, words, restrictions int) {
	t.Helper()

	density := 0.0
	if words > 0 {
		density = float64(restrictions) / float64(words) * 1000
	}
	err := backend.CreateSnapshot(context.Background(), storage.Snapshot{
		TitleNumber:      title,
		EffectiveDate:    date,
		WordCount:        words,
		RestrictionCount: restrictions,
		Checksum:         "test-" + date,
		DensityScore:     density,
	})
	if err != nil {
		t.Fatalf("failed to insert snapshot %d@%s: %v", title, date, err)
	}
}

// QuerySnapshots returns every stored snapshot.
func QuerySnapshots(t *testing.T, backend storage.Backend) []storage.Snapshot {
	t.Helper()

	snaps, err := backend.ListSnapshots(context.Background())
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	return snaps
}

// QueryTitle returns one stored title.
func QueryTitle(t *testing.T, backend storage.Backend, number int) storage.Title {
	t.Helper()

	title, err := backend.GetTitle(context.Background(), number)
	if err != nil {
		t.Fatalf("failed to get title %d: %v", number, err)
	}
	return title
}
