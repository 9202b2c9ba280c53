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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/cfrscope/pkg/storage"
	"github.com/kraklabs/cfrscope/pkg/textmetrics"
)

// TitleStatus describes how a title fared in one ingestion run.
type TitleStatus string

const (
	// TitleProcessed means the selected dates were attempted and the title
	// was marked COMPLETED.
	TitleProcessed TitleStatus = "processed"
	// TitleUnknown means the title is not in the local catalog.
	TitleUnknown TitleStatus = "unknown"
	// TitleRefreshFailed means the version dates could not be refreshed.
	TitleRefreshFailed TitleStatus = "refresh_failed"
	// TitleCanceled means the run stopped mid-title; status is unchanged.
	TitleCanceled TitleStatus = "canceled"
)

// EventKind identifies a progress event.
type EventKind string

const (
	EventTitleStart    EventKind = "title_start"
	EventSnapshotDone  EventKind = "snapshot_done"
	EventSnapshotSkip  EventKind = "snapshot_skip"
	EventSnapshotError EventKind = "snapshot_error"
	EventTitleDone     EventKind = "title_done"
)

// Event is delivered to the progress callback. Total is the number of
// selected dates for the title.
type Event struct {
	Kind  EventKind
	Title int
	Date  string
	Total int
	Err   error
}

// ProgressFunc receives engine events. It may be called from worker
// goroutines and must be safe for concurrent use.
type ProgressFunc func(Event)

// TitleOutcome holds per-title counters.
type TitleOutcome struct {
	Title     int         `json:"title"`
	Status    TitleStatus `json:"status"`
	Selected  []string    `json:"selectedDates"`
	Attempted int         `json:"attempted"`
	Succeeded int         `json:"succeeded"`
	Skipped   int         `json:"skipped"`
	Failed    int         `json:"failed"`
}

// IngestResult aggregates one run.
type IngestResult struct {
	Mode           Mode           `json:"mode,omitempty"`
	TargetTitles   []int          `json:"targetTitles"`
	SnapshotLimit  int            `json:"snapshotLimit,omitempty"`
	Notes          []string       `json:"notes,omitempty"`
	Attempted      int            `json:"attempted"`
	Succeeded      int            `json:"succeeded"`
	Skipped        int            `json:"skipped"`
	Failed         int            `json:"failed"`
	SummaryMessage string         `json:"summaryMessage"`
	Titles         []TitleOutcome `json:"titles"`
	Errors         []ItemError    `json:"errors,omitempty"`
	Canceled       bool           `json:"canceled,omitempty"`
	Duration       time.Duration  `json:"duration"`
}

func (r *IngestResult) add(o TitleOutcome) {
	r.Titles = append(r.Titles, o)
	r.Attempted += o.Attempted
	r.Succeeded += o.Succeeded
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// Summary renders the human-readable run summary.
func (r *IngestResult) Summary() string {
	processed := 0
	for _, t := range r.Titles {
		if t.Status == TitleProcessed {
			processed++
		}
	}
	counts := fmt.Sprintf("%d titles processed, %d snapshots created, %d skipped, %d failed",
		processed, r.Succeeded, r.Skipped, r.Failed)
	switch {
	case r.Canceled:
		return "Ingestion canceled: " + counts
	case r.Failed > 0:
		return fmt.Sprintf("Ingestion completed with %d errors: %s", r.Failed, counts)
	default:
		return "Ingestion completed cleanly: " + counts
	}
}

// Engine materializes snapshots for a list of titles.
type Engine struct {
	registry Registry
	store    storage.Backend
	workers  int
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	progress ProgressFunc
}

// NewEngine creates an engine that fetches up to workers dates of one title
// concurrently. Pacing is left to the registry's rate gate.
func NewEngine(reg Registry, store storage.Backend, workers int, logger *slog.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{registry: reg, store: store, workers: workers, logger: logger, now: time.Now}
}

// SetProgress installs a progress callback; nil disables it.
func (e *Engine) SetProgress(fn ProgressFunc) {
	e.mu.Lock()
	e.progress = fn
	e.mu.Unlock()
}

func (e *Engine) emit(ev Event) {
	e.mu.Lock()
	fn := e.progress
	e.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// Ingest processes titles in order, loading at most limit of the newest
// version dates for each. Per-item failures are counted, never returned.
// The returned error is non-nil only when ctx is canceled.
func (e *Engine) Ingest(ctx context.Context, titles []int, limit int) (*IngestResult, error) {
	if limit < minSnapshotLimit {
		limit = minSnapshotLimit
	}
	return e.run(ctx, titles, func(dates []string) []string {
		return selectNewest(dates, limit)
	})
}

// IngestDates loads specific dates of one title. Every requested date must
// be among the title's refreshed version dates; unknown and unparseable
// dates are counted as failures.
func (e *Engine) IngestDates(ctx context.Context, title int, dates []string) (*IngestResult, error) {
	malformed := malformedDates(dates)
	want, _ := NormalizeDates(dates)
	var unknown []string
	res, err := e.run(ctx, []int{title}, func(known []string) []string {
		set := make(map[string]struct{}, len(known))
		for _, d := range known {
			set[d] = struct{}{}
		}
		var picked []string
		unknown = unknown[:0]
		for _, d := range want {
			if _, ok := set[d]; ok {
				picked = append(picked, d)
			} else {
				unknown = append(unknown, d)
			}
		}
		return picked
	})
	rejected := append(malformed, unknown...)
	if len(rejected) > 0 && len(res.Titles) == 1 {
		for _, d := range rejected {
			res.Errors = append(res.Errors, newItemError("select_date", title, d, storage.ErrUnknownDate))
		}
		e.logger.Warn("ingest.dates.rejected", "title", title, "count", len(rejected))
		res.Titles[0].Failed += len(rejected)
		res.Failed += len(rejected)
		res.SummaryMessage = res.Summary()
	}
	return res, err
}

// malformedDates returns the non-blank entries that are not YYYY-MM-DD
// dates, trimmed, in input order.
func malformedDates(raw []string) []string {
	var out []string
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, r); err != nil {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) run(ctx context.Context, titles []int, pick func([]string) []string) (*IngestResult, error) {
	start := time.Now()
	res := &IngestResult{TargetTitles: append([]int{}, titles...)}
	defer func() {
		res.Duration = time.Since(start)
		res.SummaryMessage = res.Summary()
		observeIngest(res.Duration)
	}()

	e.logger.Info("ingest.start", "titles", titles, "workers", e.workers)
	for _, n := range titles {
		if err := ctx.Err(); err != nil {
			res.Canceled = true
			e.logger.Warn("ingest.canceled", "title", n, "err", err)
			return res, err
		}
		out, errs := e.ingestTitle(ctx, n, pick)
		res.add(out)
		res.Errors = append(res.Errors, errs...)
		if out.Status == TitleCanceled {
			res.Canceled = true
			e.logger.Warn("ingest.canceled", "title", n, "err", ctx.Err())
			return res, ctx.Err()
		}
	}

	e.logger.Info("ingest.done",
		"titles", len(titles),
		"attempted", res.Attempted,
		"succeeded", res.Succeeded,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

type dateResult int

const (
	dateCreated dateResult = iota
	dateSkipped
	dateFailed
	dateCanceled
)

func (e *Engine) ingestTitle(ctx context.Context, n int, pick func([]string) []string) (TitleOutcome, []ItemError) {
	out := TitleOutcome{Title: n}

	if _, err := e.store.GetTitle(ctx, n); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			out.Status = TitleUnknown
			e.logger.Info("ingest.title.unknown", "title", n)
			return out, nil
		}
		if ctx.Err() != nil {
			out.Status = TitleCanceled
			return out, nil
		}
		out.Status = TitleRefreshFailed
		out.Failed = 1
		return out, []ItemError{newItemError("load_title", n, "", err)}
	}

	known, err := refreshDates(ctx, e.registry, e.store, e.logger, n)
	if err != nil {
		if ctx.Err() != nil {
			out.Status = TitleCanceled
			return out, nil
		}
		recordDateRefreshFailure()
		e.logger.Warn("ingest.title.refresh.error", "title", n, "err", err)
		out.Status = TitleRefreshFailed
		out.Failed = 1
		return out, []ItemError{newItemError("refresh_dates", n, "", err)}
	}

	selected := pick(known)
	out.Selected = selected
	e.emit(Event{Kind: EventTitleStart, Title: n, Total: len(selected)})
	e.logger.Info("ingest.title.start", "title", n, "known", len(known), "selected", len(selected))

	var (
		mu   sync.Mutex
		errs []ItemError
	)
	record := func(r dateResult, ie *ItemError) {
		mu.Lock()
		defer mu.Unlock()
		switch r {
		case dateCreated:
			out.Attempted++
			out.Succeeded++
		case dateSkipped:
			out.Skipped++
		case dateFailed:
			out.Attempted++
			out.Failed++
			errs = append(errs, *ie)
		}
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, date := range selected {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r, ie := e.ingestDate(ctx, n, date)
			record(r, ie)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		out.Status = TitleCanceled
		return out, errs
	}

	if err := e.store.MarkScraped(ctx, n, e.now()); err != nil {
		e.logger.Warn("ingest.title.mark.error", "title", n, "err", err)
		errs = append(errs, newItemError("mark_scraped", n, "", err))
		out.Failed++
	} else {
		recordTitleCompleted()
	}
	out.Status = TitleProcessed
	e.emit(Event{Kind: EventTitleDone, Title: n, Total: len(selected)})
	e.logger.Info("ingest.title.done",
		"title", n,
		"succeeded", out.Succeeded,
		"skipped", out.Skipped,
		"failed", out.Failed,
	)
	return out, errs
}

// ingestDate runs the exists-fetch-analyze-create sequence for one date.
func (e *Engine) ingestDate(ctx context.Context, n int, date string) (dateResult, *ItemError) {
	if ctx.Err() != nil {
		return dateCanceled, nil
	}
	fail := func(stage string, err error) (dateResult, *ItemError) {
		if ctx.Err() != nil {
			return dateCanceled, nil
		}
		recordSnapshotFailed(stage)
		e.logger.Warn("ingest.snapshot.error", "title", n, "date", date, "stage", stage, "err", err)
		e.emit(Event{Kind: EventSnapshotError, Title: n, Date: date, Err: err})
		ie := newItemError(stage, n, date, err)
		return dateFailed, &ie
	}
	skip := func() (dateResult, *ItemError) {
		recordSnapshotSkipped()
		e.emit(Event{Kind: EventSnapshotSkip, Title: n, Date: date})
		return dateSkipped, nil
	}

	exists, err := e.store.SnapshotExists(ctx, n, date)
	if err != nil {
		return fail("check", err)
	}
	if exists {
		e.logger.Debug("ingest.snapshot.exists", "key", SnapshotKey(n, date))
		return skip()
	}

	t0 := time.Now()
	doc, err := e.registry.FetchDocument(ctx, n, date)
	observeFetch(time.Since(t0))
	if err != nil {
		return fail("fetch", err)
	}

	t1 := time.Now()
	m, _, err := textmetrics.Analyze(bytes.NewReader(doc))
	observeAnalyze(time.Since(t1))
	if err != nil {
		return fail("parse", err)
	}

	err = e.store.CreateSnapshot(ctx, storage.Snapshot{
		TitleNumber:      n,
		EffectiveDate:    date,
		WordCount:        m.WordCount,
		RestrictionCount: m.RestrictionCount,
		Checksum:         m.Checksum,
		DensityScore:     m.DensityScore,
		CreatedAt:        e.now(),
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		e.logger.Debug("ingest.snapshot.race", "key", SnapshotKey(n, date))
		return skip()
	}
	if err != nil {
		return fail("persist", err)
	}

	recordSnapshotCreated()
	e.emit(Event{Kind: EventSnapshotDone, Title: n, Date: date})
	e.logger.Debug("ingest.snapshot.created",
		"key", SnapshotKey(n, date),
		"words", m.WordCount,
		"restrictions", m.RestrictionCount,
		"density", m.DensityScore,
	)
	return dateCreated, nil
}
