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

// Package bootstrap creates and reopens a project's local mirror: the data
// directory and the SQLite database holding titles, agencies, links and
// snapshots.
//
//	info, err := bootstrap.InitProject(ctx, bootstrap.ProjectConfig{ProjectID: "ecfr"}, logger)
//	...
//	store, err := bootstrap.OpenProject(ctx, bootstrap.ProjectConfig{ProjectID: "ecfr"}, logger)
//	if errors.Is(err, bootstrap.ErrNotInitialized) {
//		// ask the user to run cfrscope init
//	}
//	defer store.Close()
//
// Both calls apply pending schema migrations, so a project created by an
// older binary is upgraded the first time a newer one opens it.
package bootstrap
