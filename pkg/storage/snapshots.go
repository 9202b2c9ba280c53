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
	"fmt"
	"time"
)

// SnapshotExists reports whether (titleNumber, date) is already materialized.
func (b *SQLiteBackend) SnapshotExists(ctx context.Context, titleNumber int, date string) (bool, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	var found int
	err = b.db.QueryRowContext(ctx,
		`SELECT 1 FROM regulation_snapshots WHERE title_number = ? AND effective_date = ?`,
		titleNumber, date).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check snapshot %d@%s: %w", titleNumber, date, err)
	}
	return true, nil
}

// CreateSnapshot inserts a snapshot. The title must exist (ErrNotFound) and
// list the date among its snapshot dates (ErrUnknownDate). An existing row
// for the same key yields ErrAlreadyExists and is left untouched.
func (b *SQLiteBackend) CreateSnapshot(ctx context.Context, s Snapshot) error {
	release, err := b.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if s.WordCount < 0 || s.RestrictionCount < 0 {
		return fmt.Errorf("snapshot %d@%s: negative counts", s.TitleNumber, s.EffectiveDate)
	}
	if s.Checksum == "" {
		return fmt.Errorf("snapshot %d@%s: checksum is required", s.TitleNumber, s.EffectiveDate)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	res, err := b.db.ExecContext(ctx,
		`INSERT INTO regulation_snapshots (
		   title_number, effective_date, word_count, restriction_count,
		   checksum, restriction_density_score, created_at
		 )
		 SELECT ?, ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (
		   SELECT 1 FROM regulation_titles t, json_each(t.snapshot_dates) d
		   WHERE t.title_number = ? AND d.value = ?
		 )`,
		s.TitleNumber, s.EffectiveDate, s.WordCount, s.RestrictionCount,
		s.Checksum, s.DensityScore, toMillis(s.CreatedAt),
		s.TitleNumber, s.EffectiveDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("snapshot %d@%s: %w", s.TitleNumber, s.EffectiveDate, ErrAlreadyExists)
		}
		return fmt.Errorf("create snapshot %d@%s: %w", s.TitleNumber, s.EffectiveDate, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("snapshot rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var found int
	err = b.db.QueryRowContext(ctx, `SELECT 1 FROM regulation_titles WHERE title_number = ?`, s.TitleNumber).Scan(&found)
	if err == sql.ErrNoRows {
		return fmt.Errorf("snapshot %d@%s: title %w", s.TitleNumber, s.EffectiveDate, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check title %d: %w", s.TitleNumber, err)
	}
	return fmt.Errorf("snapshot %d@%s: %w", s.TitleNumber, s.EffectiveDate, ErrUnknownDate)
}

// ListSnapshots returns every snapshot ordered by date, then title.
func (b *SQLiteBackend) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := b.db.QueryContext(ctx,
		`SELECT title_number, effective_date, word_count, restriction_count,
		        checksum, restriction_density_score, created_at
		 FROM regulation_snapshots
		 ORDER BY effective_date, title_number`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot
	for rows.Next() {
		var (
			s       Snapshot
			created int64
		)
		if err := rows.Scan(&s.TitleNumber, &s.EffectiveDate, &s.WordCount, &s.RestrictionCount,
			&s.Checksum, &s.DensityScore, &created); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.CreatedAt = fromMillis(created)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListHistory returns a title's snapshots, oldest first.
func (b *SQLiteBackend) ListHistory(ctx context.Context, titleNumber int) ([]HistoryPoint, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := b.db.QueryContext(ctx,
		`SELECT effective_date, word_count, restriction_count, checksum, restriction_density_score
		 FROM regulation_snapshots
		 WHERE title_number = ?
		 ORDER BY effective_date ASC`, titleNumber)
	if err != nil {
		return nil, fmt.Errorf("list history of title %d: %w", titleNumber, err)
	}
	defer func() { _ = rows.Close() }()

	out := []HistoryPoint{}
	for rows.Next() {
		var p HistoryPoint
		if err := rows.Scan(&p.EffectiveDate, &p.WordCount, &p.RestrictionCount, &p.Checksum, &p.DensityScore); err != nil {
			return nil, fmt.Errorf("scan history point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListCatalog projects every title with its known and loaded dates, both
// newest first.
func (b *SQLiteBackend) ListCatalog(ctx context.Context) ([]CatalogEntry, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	titles, err := b.listTitles(ctx)
	if err != nil {
		return nil, err
	}

	loaded := make(map[int][]string, len(titles))
	rows, err := b.db.QueryContext(ctx,
		`SELECT title_number, effective_date FROM regulation_snapshots
		 ORDER BY title_number, effective_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list loaded dates: %w", err)
	}
	for rows.Next() {
		var (
			number int
			date   string
		)
		if err := rows.Scan(&number, &date); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan loaded date: %w", err)
		}
		loaded[number] = append(loaded[number], date)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	out := make([]CatalogEntry, 0, len(titles))
	for _, t := range titles {
		dates := loaded[t.Number]
		if dates == nil {
			dates = []string{}
		}
		out = append(out, CatalogEntry{
			Number:      t.Number,
			Name:        t.Name,
			AllDates:    t.SnapshotDates,
			LoadedDates: dates,
		})
	}
	return out, nil
}

// ListAgencyTitleRows joins every link with the linked title's most recent
// snapshot. Titles without snapshots appear with HasSnapshot == false.
func (b *SQLiteBackend) ListAgencyTitleRows(ctx context.Context) ([]AgencyTitleRow, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := b.db.QueryContext(ctx,
		`SELECT a.id, a.name, t.title_number, t.last_scraped,
		        s.effective_date, s.word_count, s.restriction_density_score
		 FROM agency_titles l
		 JOIN agencies a ON a.id = l.agency_id
		 JOIN regulation_titles t ON t.title_number = l.title_number
		 LEFT JOIN regulation_snapshots s
		   ON s.title_number = t.title_number
		  AND s.effective_date = (
		        SELECT MAX(effective_date) FROM regulation_snapshots WHERE title_number = t.title_number
		      )
		 ORDER BY a.name, t.title_number`)
	if err != nil {
		return nil, fmt.Errorf("list agency titles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AgencyTitleRow
	for rows.Next() {
		var (
			r       AgencyTitleRow
			scraped sql.NullInt64
			date    sql.NullString
			words   sql.NullInt64
			density sql.NullFloat64
		)
		if err := rows.Scan(&r.AgencyID, &r.AgencyName, &r.TitleNumber, &scraped, &date, &words, &density); err != nil {
			return nil, fmt.Errorf("scan agency title: %w", err)
		}
		if scraped.Valid {
			ts := fromMillis(scraped.Int64)
			r.LastScraped = &ts
		}
		if date.Valid {
			r.HasSnapshot = true
			r.LatestDate = date.String
			r.WordCount = int(words.Int64)
			r.DensityScore = density.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats counts rows per entity.
func (b *SQLiteBackend) Stats(ctx context.Context) (Stats, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return Stats{}, err
	}
	defer release()

	var s Stats
	err = b.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM agencies),
		   (SELECT COUNT(*) FROM regulation_titles),
		   (SELECT COUNT(*) FROM regulation_titles WHERE scrape_status = ?),
		   (SELECT COUNT(*) FROM agency_titles),
		   (SELECT COUNT(*) FROM regulation_snapshots)`,
		string(StatusCompleted),
	).Scan(&s.Agencies, &s.Titles, &s.CompletedTitles, &s.Links, &s.Snapshots)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return s, nil
}
