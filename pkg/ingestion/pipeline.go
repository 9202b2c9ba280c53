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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kraklabs/cfrscope/pkg/storage"
)

// ErrRunInProgress is returned when a mutating operation is requested while
// another synchronization or ingestion run holds the pipeline.
var ErrRunInProgress = errors.New("a synchronization or ingestion run is already in progress")

// PipelineConfig assembles a Pipeline.
type PipelineConfig struct {
	ProjectID     string
	Ingestion     Config
	CheckpointDir string
}

// Pipeline is the entry point for callers. It composes the workload
// resolver, metadata synchronizer, link resolver and ingestion engine over
// a caller-owned registry and store, and allows one mutating run at a time.
type Pipeline struct {
	projectID     string
	registry      Registry
	store         storage.Backend
	resolver      *Resolver
	synchronizer  *Synchronizer
	engine        *Engine
	checkpointMgr *CheckpointManager
	logger        *slog.Logger

	running sync.Mutex
}

// NewPipeline wires a pipeline. The store is not closed by the pipeline.
func NewPipeline(cfg PipelineConfig, reg Registry, store storage.Backend, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	ing := cfg.Ingestion.withDefaults()
	links := NewLinkResolver(store, ing.FallbackLinks, logger)
	return &Pipeline{
		projectID:     cfg.ProjectID,
		registry:      reg,
		store:         store,
		resolver:      NewResolver(ing),
		synchronizer:  NewSynchronizer(reg, store, links, logger),
		engine:        NewEngine(reg, store, ing.Workers, logger),
		checkpointMgr: NewCheckpointManager(cfg.CheckpointDir),
		logger:        logger,
	}
}

// SetProgress forwards engine events to fn.
func (p *Pipeline) SetProgress(fn ProgressFunc) {
	p.engine.SetProgress(fn)
}

// Running reports whether a mutating run currently holds the pipeline.
func (p *Pipeline) Running() bool {
	if p.running.TryLock() {
		p.running.Unlock()
		return false
	}
	return true
}

func (p *Pipeline) begin() (func(), error) {
	if !p.running.TryLock() {
		return nil, ErrRunInProgress
	}
	return p.running.Unlock, nil
}

// SynchronizeMetadata refreshes agencies, titles, links and version dates,
// optionally wiping the mirror first.
func (p *Pipeline) SynchronizeMetadata(ctx context.Context, reset bool) (*SyncResult, error) {
	done, err := p.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	start := time.Now()
	runID := NewRunID()
	p.logger.Info("pipeline.sync.start", "project_id", p.projectID, "run_id", runID, "reset", reset)

	res, err := p.synchronizer.Synchronize(ctx, reset)
	if reset && res.ResetPerformed {
		if cerr := p.checkpointMgr.ClearRuns(p.projectID); cerr != nil {
			p.logger.Warn("pipeline.runs.clear.error", "err", cerr)
		}
	}
	p.saveRun(&RunRecord{
		RunID:     runID,
		ProjectID: p.projectID,
		Kind:      RunSync,
		StartTime: start,
		EndTime:   time.Now(),
		Canceled:  res.Canceled,
		Errors:    len(res.Errors),
		Summary:   syncSummary(res, err),
		Sync:      res,
	})
	if err != nil {
		return res, err
	}
	p.logger.Info("pipeline.sync.done", "run_id", runID, "errors", len(res.Errors))
	return res, nil
}

// IngestSnapshots resolves req into a workload and loads the newest
// snapshots of each target title.
func (p *Pipeline) IngestSnapshots(ctx context.Context, req Request) (*IngestResult, error) {
	done, err := p.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	w := p.resolver.Resolve(req)
	for _, note := range w.Notes {
		p.logger.Info("pipeline.workload.note", "note", note)
	}

	start := time.Now()
	runID := NewRunID()
	p.logger.Info("pipeline.ingest.start",
		"project_id", p.projectID,
		"run_id", runID,
		"mode", w.Mode,
		"titles", w.Titles,
		"limit", w.SnapshotLimit,
	)

	res, err := p.engine.Ingest(ctx, w.Titles, w.SnapshotLimit)
	res.Mode = w.Mode
	res.SnapshotLimit = w.SnapshotLimit
	res.Notes = w.Notes
	p.recordIngest(runID, start, res)
	return res, err
}

// IngestDates loads the given dates of one title.
func (p *Pipeline) IngestDates(ctx context.Context, title int, dates []string) (*IngestResult, error) {
	done, err := p.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	start := time.Now()
	runID := NewRunID()
	p.logger.Info("pipeline.ingest.dates.start", "run_id", runID, "title", title, "dates", dates)

	res, err := p.engine.IngestDates(ctx, title, dates)
	p.recordIngest(runID, start, res)
	return res, err
}

func (p *Pipeline) recordIngest(runID string, start time.Time, res *IngestResult) {
	p.saveRun(&RunRecord{
		RunID:     runID,
		ProjectID: p.projectID,
		Kind:      RunIngest,
		StartTime: start,
		EndTime:   time.Now(),
		Canceled:  res.Canceled,
		Errors:    res.Failed,
		Summary:   res.SummaryMessage,
		Ingest:    res,
	})
	p.logger.Info("pipeline.ingest.done", "run_id", runID, "summary", res.SummaryMessage)
}

func (p *Pipeline) saveRun(rec *RunRecord) {
	if err := p.checkpointMgr.SaveRun(rec); err != nil {
		p.logger.Warn("pipeline.run.save.error", "kind", rec.Kind, "err", err)
	}
}

// LastRun returns the saved record of the most recent run of kind.
func (p *Pipeline) LastRun(kind RunKind) (*RunRecord, error) {
	return p.checkpointMgr.LoadRun(p.projectID, kind)
}

// ListCatalog returns every local title with known and loaded dates.
func (p *Pipeline) ListCatalog(ctx context.Context) ([]storage.CatalogEntry, error) {
	return p.store.ListCatalog(ctx)
}

// ListHistory returns the snapshot series of one title, oldest first.
func (p *Pipeline) ListHistory(ctx context.Context, title int) ([]storage.HistoryPoint, error) {
	return p.store.ListHistory(ctx, title)
}

// Dashboard aggregates the mirror for display.
func (p *Pipeline) Dashboard(ctx context.Context) (*Dashboard, error) {
	return BuildDashboard(ctx, p.store)
}

// RemoteDates asks the registry for a title's version dates without
// touching the store.
func (p *Pipeline) RemoteDates(ctx context.Context, title int) ([]string, error) {
	raw, err := p.registry.ListVersionDates(ctx, title)
	if err != nil {
		return nil, err
	}
	dates, _ := NormalizeDates(raw)
	return dates, nil
}

func syncSummary(res *SyncResult, err error) string {
	switch {
	case err != nil && !res.Canceled:
		return fmt.Sprintf("Synchronization failed: %v", err)
	case res.Canceled:
		return fmt.Sprintf("Synchronization canceled after %d agencies and %d titles", res.AgencyCount, res.TitleCount)
	case len(res.Errors) > 0:
		return fmt.Sprintf("Synchronization completed with %d errors: %d agencies, %d titles, %d links created",
			len(res.Errors), res.AgencyCount, res.TitleCount, res.Links.Created)
	default:
		return fmt.Sprintf("Synchronization completed cleanly: %d agencies, %d titles, %d links created",
			res.AgencyCount, res.TitleCount, res.Links.Created)
	}
}
