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

package storage

import (
	"context"
	"fmt"
)

// resetOrder lists tables children first so foreign keys hold at every step.
var resetOrder = []string{
	"regulation_snapshots",
	"agency_titles",
	"regulation_titles",
	"agencies",
}

// Reset deletes every row of every entity in a single transaction. Any
// failure rolls the whole wipe back and is reported as ErrResetFailed.
func (b *SQLiteBackend) Reset(ctx context.Context) (ResetCounts, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return ResetCounts{}, err
	}
	defer release()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return ResetCounts{}, fmt.Errorf("%w: begin: %v", ErrResetFailed, err)
	}

	deleted := make([]int64, len(resetOrder))
	for i, table := range resetOrder {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			_ = tx.Rollback()
			return ResetCounts{}, fmt.Errorf("%w: delete %s: %v", ErrResetFailed, table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return ResetCounts{}, fmt.Errorf("%w: delete %s: %v", ErrResetFailed, table, err)
		}
		deleted[i] = n
	}

	if err := tx.Commit(); err != nil {
		return ResetCounts{}, fmt.Errorf("%w: commit: %v", ErrResetFailed, err)
	}

	return ResetCounts{
		Snapshots: deleted[0],
		Links:     deleted[1],
		Titles:    deleted[2],
		Agencies:  deleted[3],
	}, nil
}
