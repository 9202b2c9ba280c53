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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// UpsertAgency creates the agency if absent. An existing agency keeps its
// identity; only a changed, non-empty slug is written.
func (b *SQLiteBackend) UpsertAgency(ctx context.Context, name, slug string) (Agency, bool, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return Agency{}, false, err
	}
	defer release()

	name = strings.TrimSpace(name)
	if name == "" {
		return Agency{}, false, fmt.Errorf("agency name is required")
	}

	existing, err := b.agencyByName(ctx, name)
	switch {
	case err == nil:
		if slug != "" && slug != existing.Slug {
			if _, err := b.db.ExecContext(ctx, `UPDATE agencies SET slug = ? WHERE id = ?`, slug, existing.ID); err != nil {
				return Agency{}, false, fmt.Errorf("update agency %q: %w", name, err)
			}
			existing.Slug = slug
		}
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return Agency{}, false, err
	}

	res, err := b.db.ExecContext(ctx, `INSERT INTO agencies (name, slug) VALUES (?, ?)`, name, slug)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race with another writer; the row is there now.
			a, lookupErr := b.agencyByName(ctx, name)
			return a, false, lookupErr
		}
		return Agency{}, false, fmt.Errorf("insert agency %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Agency{}, false, fmt.Errorf("agency id: %w", err)
	}
	return Agency{ID: id, Name: name, Slug: slug}, true, nil
}

// GetAgencyByName looks up an agency by its business key.
func (b *SQLiteBackend) GetAgencyByName(ctx context.Context, name string) (Agency, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return Agency{}, err
	}
	defer release()
	return b.agencyByName(ctx, name)
}

func (b *SQLiteBackend) agencyByName(ctx context.Context, name string) (Agency, error) {
	var a Agency
	err := b.db.QueryRowContext(ctx, `SELECT id, name, slug FROM agencies WHERE name = ?`, name).
		Scan(&a.ID, &a.Name, &a.Slug)
	if err == sql.ErrNoRows {
		return Agency{}, fmt.Errorf("agency %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Agency{}, fmt.Errorf("get agency %q: %w", name, err)
	}
	return a, nil
}

// ListAgencies returns all agencies ordered by name.
func (b *SQLiteBackend) ListAgencies(ctx context.Context) ([]Agency, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := b.db.QueryContext(ctx, `SELECT id, name, slug FROM agencies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Agency
	for rows.Next() {
		var a Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.Slug); err != nil {
			return nil, fmt.Errorf("scan agency: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertTitle creates the title or renames it. Snapshot dates and scrape
// status are never touched here.
func (b *SQLiteBackend) UpsertTitle(ctx context.Context, number int, name string) (bool, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	if number < 1 {
		return false, fmt.Errorf("title number %d is not positive", number)
	}

	var current string
	err = b.db.QueryRowContext(ctx, `SELECT title_name FROM regulation_titles WHERE title_number = ?`, number).Scan(&current)
	switch {
	case err == nil:
		if current != name {
			if _, err := b.db.ExecContext(ctx,
				`UPDATE regulation_titles SET title_name = ? WHERE title_number = ?`, name, number); err != nil {
				return false, fmt.Errorf("rename title %d: %w", number, err)
			}
		}
		return false, nil
	case err != sql.ErrNoRows:
		return false, fmt.Errorf("get title %d: %w", number, err)
	}

	_, err = b.db.ExecContext(ctx,
		`INSERT INTO regulation_titles (title_number, title_name, snapshot_dates, scrape_status)
		 VALUES (?, ?, '[]', ?)
		 ON CONFLICT (title_number) DO UPDATE SET title_name = excluded.title_name`,
		number, name, string(StatusPending))
	if err != nil {
		return false, fmt.Errorf("insert title %d: %w", number, err)
	}
	return true, nil
}

const titleColumns = `title_number, title_name, snapshot_dates, scrape_status, last_scraped`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTitle(row rowScanner) (Title, error) {
	var (
		t       Title
		dates   string
		status  string
		scraped sql.NullInt64
	)
	if err := row.Scan(&t.Number, &t.Name, &dates, &status, &scraped); err != nil {
		return Title{}, err
	}
	if err := json.Unmarshal([]byte(dates), &t.SnapshotDates); err != nil {
		return Title{}, fmt.Errorf("decode snapshot dates of title %d: %w", t.Number, err)
	}
	if t.SnapshotDates == nil {
		t.SnapshotDates = []string{}
	}
	t.ScrapeStatus = ScrapeStatus(status)
	if scraped.Valid {
		ts := fromMillis(scraped.Int64)
		t.LastScraped = &ts
	}
	return t, nil
}

// GetTitle returns one title or ErrNotFound.
func (b *SQLiteBackend) GetTitle(ctx context.Context, number int) (Title, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return Title{}, err
	}
	defer release()

	t, err := scanTitle(b.db.QueryRowContext(ctx,
		`SELECT `+titleColumns+` FROM regulation_titles WHERE title_number = ?`, number))
	if err == sql.ErrNoRows {
		return Title{}, fmt.Errorf("title %d: %w", number, ErrNotFound)
	}
	if err != nil {
		return Title{}, fmt.Errorf("get title %d: %w", number, err)
	}
	return t, nil
}

// ListTitles returns all titles ordered by number.
func (b *SQLiteBackend) ListTitles(ctx context.Context) ([]Title, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return b.listTitles(ctx)
}

func (b *SQLiteBackend) listTitles(ctx context.Context) ([]Title, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT `+titleColumns+` FROM regulation_titles ORDER BY title_number`)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Title
	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetSnapshotDates replaces a title's known version dates and returns the
// stored list. The input must already be deduplicated and strictly
// descending. Dates that already have a snapshot are kept even when the
// input no longer lists them, so the stored list always covers the title's
// snapshots.
func (b *SQLiteBackend) SetSnapshotDates(ctx context.Context, number int, dates []string) ([]string, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	for i := 1; i < len(dates); i++ {
		if dates[i] >= dates[i-1] {
			return nil, fmt.Errorf("snapshot dates of title %d not strictly descending at %q", number, dates[i])
		}
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin set snapshot dates: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	loaded, err := snapshotDatesTx(ctx, tx, number)
	if err != nil {
		return nil, err
	}
	merged := mergeDates(dates, loaded)

	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot dates: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE regulation_titles SET snapshot_dates = ? WHERE title_number = ?`, string(encoded), number)
	if err != nil {
		return nil, fmt.Errorf("set snapshot dates of title %d: %w", number, err)
	}
	if err := requireAffected(res, fmt.Sprintf("title %d", number)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot dates of title %d: %w", number, err)
	}
	return merged, nil
}

// snapshotDatesTx lists the effective dates of a title's stored snapshots.
func snapshotDatesTx(ctx context.Context, tx *sql.Tx, number int) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT effective_date FROM regulation_snapshots WHERE title_number = ?`, number)
	if err != nil {
		return nil, fmt.Errorf("list snapshot dates of title %d: %w", number, err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan snapshot date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// mergeDates returns the union of a and b, deduplicated and descending.
// The result is never nil.
func mergeDates(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, d := range list {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// MarkScraped sets scrape_status = COMPLETED and last_scraped = at.
func (b *SQLiteBackend) MarkScraped(ctx context.Context, number int, at time.Time) error {
	release, err := b.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := b.db.ExecContext(ctx,
		`UPDATE regulation_titles SET scrape_status = ?, last_scraped = ? WHERE title_number = ?`,
		string(StatusCompleted), toMillis(at), number)
	if err != nil {
		return fmt.Errorf("mark title %d scraped: %w", number, err)
	}
	return requireAffected(res, fmt.Sprintf("title %d", number))
}

// UpsertAgencyTitle links agencyID to titleNumber. It reports whether a new
// link was created; an existing link is not an error.
func (b *SQLiteBackend) UpsertAgencyTitle(ctx context.Context, agencyID int64, titleNumber int) (bool, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	res, err := b.db.ExecContext(ctx,
		`INSERT INTO agency_titles (agency_id, title_number) VALUES (?, ?)
		 ON CONFLICT (agency_id, title_number) DO NOTHING`,
		agencyID, titleNumber)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("link agency %d to title %d: %w", agencyID, titleNumber, ErrNotFound)
		}
		return false, fmt.Errorf("link agency %d to title %d: %w", agencyID, titleNumber, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("link rows affected: %w", err)
	}
	return n > 0, nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
