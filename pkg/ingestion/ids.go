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
	"fmt"

	"github.com/google/uuid"
)

// NewRunID returns a fresh identifier for one pipeline run.
func NewRunID() string {
	return uuid.NewString()
}

// SnapshotKey is the log/display key of a (title, date) pair.
func SnapshotKey(titleNumber int, date string) string {
	return fmt.Sprintf("title-%d@%s", titleNumber, date)
}
