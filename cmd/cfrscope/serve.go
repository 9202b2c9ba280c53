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
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/cfrscope/internal/errors"
	"github.com/kraklabs/cfrscope/pkg/api"
)

const shutdownTimeout = 30 * time.Second

// runServe executes the 'serve' CLI command, exposing the admin HTTP API
// over the project store until interrupted.
//
// In-flight runs are canceled on SIGINT/SIGTERM; the server then drains.
//
// Examples:
//
//	cfrscope serve
//	cfrscope serve --addr :8080
func runServe(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "Listen address (default: server.addr from project.yaml)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cfrscope serve [options]

Starts the admin HTTP API:

  POST /admin/init       {"reset": bool, "confirm": bool}
  POST /admin/seed       {"mode": "demo"|"custom", "titles": "...", "limit": "..."}
  POST /admin/scrape     {"title": N, "dates": ["YYYY-MM-DD", ...]}
  GET  /admin/titles
  GET  /admin/dates?title=N
  GET  /history?title=N
  GET  /dashboard
  GET  /healthz
  GET  /metrics

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	p := openProject(globals)
	defer p.Close()

	listen := *addr
	if listen == "" {
		listen = p.cfg.Server.Addr
	}

	ctx, cancel := signalContext(p.logger)
	defer cancel()

	srv := &http.Server{
		Addr:              listen,
		Handler:           api.NewRouter(api.New(p.pipeline, p.logger)),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		p.logger.Info("server.start", "addr", listen, "project_id", p.cfg.ProjectID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			errors.FatalError(errors.NewNetworkError(
				"Cannot start server",
				err.Error(),
				"Choose another address with --addr",
				err,
			), globals.JSON)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		p.logger.Warn("server.shutdown.error", "err", err)
	}
	p.logger.Info("server.stopped")
}
