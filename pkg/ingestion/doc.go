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

// Package ingestion mirrors regulatory titles from the eCFR registry into
// the local store and scores each loaded version.
//
// # Pipeline Overview
//
// A run flows through four components:
//
//  1. Resolver: turns a demo/custom request into target titles and a cap
//  2. Synchronizer: upserts agencies and titles, refreshes version dates
//  3. LinkResolver: associates agencies with the titles they administer
//  4. Engine: loads the newest N versions of each title and stores metrics
//
// Failures are isolated per title or per (title, date). Only a failed
// destructive reset, or cancellation, is returned as an error.
//
// # Quick Start
//
//	client := registry.NewClient(registry.Config{}, logger)
//	store, err := storage.NewSQLiteBackend(storage.SQLiteConfig{ProjectID: "mirror"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	p := ingestion.NewPipeline(ingestion.PipelineConfig{
//	    ProjectID: "mirror",
//	    Ingestion: ingestion.DefaultConfig(),
//	}, client, store, logger)
//
//	if _, err := p.SynchronizeMetadata(ctx, false); err != nil {
//	    log.Fatal(err)
//	}
//	res, err := p.IngestSnapshots(ctx, ingestion.Request{Mode: ingestion.ModeDemo})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.SummaryMessage)
//
// # Idempotency
//
// A stored snapshot is never overwritten. The engine skips any (title, date)
// that already exists, and a duplicate-key conflict on create counts as a
// skip, so repeated runs with the same request create no new rows.
//
// # Concurrency
//
// Titles are processed in order. Within a title, Config.Workers dates may be
// fetched at once; the registry client's rate gate bounds request pacing
// across all workers. The Pipeline admits one mutating run at a time and
// returns ErrRunInProgress otherwise.
//
// # Metrics
//
// Prometheus counters and histograms are registered on first use under the
// cfrscope_sync_ and cfrscope_ing_ prefixes.
package ingestion
