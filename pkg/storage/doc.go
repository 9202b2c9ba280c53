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

// Package storage persists the local registry mirror.
//
// The Backend interface covers the four entities the ingestion pipeline
// owns: agencies, regulation titles, agency-title links and regulation
// snapshots. Every write is a single create, update or upsert against a
// uniquely-keyed row; unique constraints are the only concurrency control.
//
// # Available Backends
//
//   - SQLiteBackend: single-file SQLite database (pure Go, no cgo)
//
// # Quick Start
//
//	backend, err := storage.NewSQLiteBackend(storage.SQLiteConfig{
//	    DataDir:   "/path/to/data",
//	    ProjectID: "ecfr",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	// Apply embedded migrations
//	if err := backend.EnsureSchema(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	created, err := backend.UpsertTitle(ctx, 14, "Aeronautics and Space")
//
// # Errors
//
// Callers branch on the sentinel errors with errors.Is:
//
//   - ErrNotFound: the referenced title or agency does not exist
//   - ErrAlreadyExists: a snapshot for (title, date) is already stored
//   - ErrUnknownDate: the date is not among the title's known snapshot dates
//   - ErrResetFailed: the destructive wipe failed and was rolled back
package storage
