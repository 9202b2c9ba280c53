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

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/cfrscope/internal/bootstrap"
	"github.com/kraklabs/cfrscope/internal/errors"
	"github.com/kraklabs/cfrscope/pkg/ingestion"
	"github.com/kraklabs/cfrscope/pkg/registry"
	"github.com/kraklabs/cfrscope/pkg/storage"
)

// project bundles what a command needs to run against the local store.
type project struct {
	cfg      *Config
	logger   *slog.Logger
	store    *storage.SQLiteBackend
	pipeline *ingestion.Pipeline
}

func (p *project) Close() {
	if p.store != nil {
		_ = p.store.Close()
	}
}

// mustLoadConfig loads the configuration or exits with a config error.
func mustLoadConfig(globals GlobalFlags) *Config {
	cfg, err := LoadConfig(globals.ConfigPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load configuration",
			err.Error(),
			"Check .cfrscope/project.yaml or run 'cfrscope init'",
			err,
		), globals.JSON)
	}
	return cfg
}

// openProject loads the configuration, opens the store and wires a
// pipeline over the remote registry. Exits on failure.
func openProject(globals GlobalFlags) *project {
	cfg := mustLoadConfig(globals)
	logger := newLogger(globals)

	store, err := bootstrap.OpenProject(context.Background(), cfg.ProjectConfig(), logger)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open local store",
			err.Error(),
			"Run 'cfrscope init' to create the project store",
			err,
		), globals.JSON)
	}

	client := registry.NewClient(cfg.RegistryClientConfig(), logger)
	pipeline := ingestion.NewPipeline(ingestion.PipelineConfig{
		ProjectID:     cfg.ProjectID,
		Ingestion:     cfg.IngestionConfig(),
		CheckpointDir: runsDir(store),
	}, client, store, logger)

	return &project{cfg: cfg, logger: logger, store: store, pipeline: pipeline}
}

// runsDir keeps run records next to the database.
func runsDir(store *storage.SQLiteBackend) string {
	return filepath.Join(filepath.Dir(store.Path()), "runs")
}

// signalContext cancels on SIGINT/SIGTERM. The engine stops between items.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("shutdown.signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// startMetricsServer exposes Prometheus metrics on addr. Empty addr is a
// no-op.
func startMetricsServer(addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		logger.Info("metrics.http.start", "addr", addr, "path", "/metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics.http.error", "err", err)
		}
	}()
}

// fail converts a run failure into a user error and exits.
func fail(op string, err error, globals GlobalFlags) {
	errors.FatalError(errors.FromRun(op, err), globals.JSON)
}
