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

// Package testing provides test helpers for cfrscope integration tests.
//
// It offers a temporary SQLite backend with the schema applied, seeding
// helpers for catalog rows, and FakeRegistry, an httptest server speaking
// the subset of the eCFR API the registry client consumes.
//
// # Quick Start
//
//	func TestMyFeature(t *testing.T) {
//	    backend := testing.SetupTestBackend(t)
//	    testing.InsertTestTitle(t, backend, 14, "Aeronautics and Space", "2024-03-01")
//
//	    fake := testing.NewFakeRegistry(t)
//	    fake.AddTitle(14, "Aeronautics and Space")
//	    fake.SetVersions(14, "2024-03-01")
//	    fake.SetDocument(14, "2024-03-01", "<DIV>Operators shall comply.</DIV>")
//
//	    client := fake.Client()
//	    // run the code under test against client and backend...
//	}
//
// # Injecting Failures
//
// FailPath makes the fake answer a given path with a status code, which
// exercises the per-item error isolation of the pipeline:
//
//	fake.FailPath(testing.DocumentPath(14, "2024-03-01"), http.StatusBadGateway)
package testing
