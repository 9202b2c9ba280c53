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
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockBackend(t *testing.T) (*SQLiteBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteBackendFromDB(db), mock
}

func TestReset_DeletesChildrenFirst(t *testing.T) {
	backend, mock := newMockBackend(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM regulation_snapshots")).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM agency_titles")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM regulation_titles")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM agencies")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	counts, err := backend.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ResetCounts{Snapshots: 4, Links: 3, Titles: 2, Agencies: 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReset_MidWipeFailureRollsBack(t *testing.T) {
	backend, mock := newMockBackend(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM regulation_snapshots")).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM agency_titles")).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := backend.Reset(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResetFailed)
	assert.Contains(t, err.Error(), "agency_titles")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReset_CommitFailure(t *testing.T) {
	backend, mock := newMockBackend(t)

	mock.ExpectBegin()
	for _, table := range resetOrder {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + table)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	_, err := backend.Reset(context.Background())
	assert.ErrorIs(t, err, ErrResetFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReset_BeginFailure(t *testing.T) {
	backend, mock := newMockBackend(t)
	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	_, err := backend.Reset(context.Background())
	assert.ErrorIs(t, err, ErrResetFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertAgencyTitle_DriverError(t *testing.T) {
	backend, mock := newMockBackend(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agency_titles")).
		WithArgs(int64(3), int64(9)).
		WillReturnError(errors.New("boom"))

	_, err := backend.UpsertAgencyTitle(context.Background(), 3, 9)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
