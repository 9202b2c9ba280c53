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

// Package api exposes the ingestion pipeline as a small admin HTTP surface.
//
// Routes:
//
//	POST /admin/init      synchronize metadata ({"reset":bool,"confirm":bool})
//	POST /admin/seed      ingest a demo/custom workload ({"mode","titles","limit"})
//	POST /admin/scrape    ingest explicit dates of one title ({"title","dates"})
//	GET  /admin/titles    local catalog with known and loaded dates
//	GET  /admin/dates     live version dates of one title (?title=N)
//	GET  /history         snapshot series of one title (?title=N)
//	GET  /dashboard       per-agency and per-date aggregates
//	GET  /healthz         liveness and run state
//	GET  /metrics         Prometheus exposition
//
// Only one mutating run is admitted at a time; others answer 409.
package api
