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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/cfrscope/pkg/ingestion"
	"github.com/kraklabs/cfrscope/pkg/registry"
	"github.com/kraklabs/cfrscope/pkg/storage"
)

const maxBodyBytes = 1 << 20

// Service is the pipeline surface the handler drives. *ingestion.Pipeline
// satisfies it.
type Service interface {
	SynchronizeMetadata(ctx context.Context, reset bool) (*ingestion.SyncResult, error)
	IngestSnapshots(ctx context.Context, req ingestion.Request) (*ingestion.IngestResult, error)
	IngestDates(ctx context.Context, title int, dates []string) (*ingestion.IngestResult, error)
	ListCatalog(ctx context.Context) ([]storage.CatalogEntry, error)
	ListHistory(ctx context.Context, title int) ([]storage.HistoryPoint, error)
	Dashboard(ctx context.Context) (*ingestion.Dashboard, error)
	RemoteDates(ctx context.Context, title int) ([]string, error)
	Running() bool
}

var _ Service = (*ingestion.Pipeline)(nil)

// Handler serves the admin routes.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// New creates a Handler.
func New(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register registers the routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(Recovery(h.logger))
	router.Use(RequestLogger(h.logger))

	router.Route("/admin", func(r chi.Router) {
		r.Post("/init", h.handleInit)
		r.Post("/seed", h.handleSeed)
		r.Post("/scrape", h.handleScrape)
		r.Get("/titles", h.handleTitles)
		r.Get("/dates", h.handleDates)
	})
	router.Get("/history", h.handleHistory)
	router.Get("/dashboard", h.handleDashboard)
	router.Get("/healthz", h.handleHealth)
	router.Handle("/metrics", promhttp.Handler())

	r.Mount("/", router)
}

// NewRouter returns a root router with the handler registered.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

type initRequest struct {
	Reset   bool `json:"reset"`
	Confirm bool `json:"confirm"`
}

type seedRequest struct {
	Mode   string          `json:"mode"`
	Titles json.RawMessage `json:"titles"`
	Limit  json.RawMessage `json:"limit"`
}

type scrapeRequest struct {
	Title int      `json:"title"`
	Dates []string `json:"dates"`
}

func (h *Handler) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Reset && !req.Confirm {
		writeError(w, http.StatusBadRequest, "reset deletes every stored row; resend with \"confirm\": true")
		return
	}

	res, err := h.svc.SynchronizeMetadata(r.Context(), req.Reset)
	if err != nil {
		h.writeRunError(w, r, "init", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	var req seedRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.IngestSnapshots(r.Context(), ingestion.Request{
		Mode:   req.Mode,
		Titles: looseString(req.Titles),
		Limit:  looseString(req.Limit),
	})
	if err != nil {
		h.writeRunError(w, r, "seed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title < 1 || len(req.Dates) == 0 {
		writeError(w, http.StatusBadRequest, "title and dates are required")
		return
	}

	res, err := h.svc.IngestDates(r.Context(), req.Title, req.Dates)
	if err != nil {
		h.writeRunError(w, r, "scrape", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleTitles(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.svc.ListCatalog(r.Context())
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	if catalog == nil {
		catalog = []storage.CatalogEntry{}
	}
	writeJSON(w, http.StatusOK, catalog)
}

func (h *Handler) handleDates(w http.ResponseWriter, r *http.Request) {
	title, ok := titleParam(w, r)
	if !ok {
		return
	}
	dates, err := h.svc.RemoteDates(r.Context(), title)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"title": title, "dates": dates})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	title, ok := titleParam(w, r)
	if !ok {
		return
	}
	history, err := h.svc.ListHistory(r.Context(), title)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": h.svc.Running(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeRunError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ingestion.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrResetFailed):
		h.logger.ErrorContext(r.Context(), "api.run.reset_failed", "op", op, "err", err)
		writeError(w, http.StatusInternalServerError, "reset failed; the catalog was left unchanged")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.WarnContext(r.Context(), "api.run.canceled", "op", op, "err", err)
		writeError(w, http.StatusServiceUnavailable, "run canceled before completion")
	default:
		h.logger.ErrorContext(r.Context(), "api.run.error", "op", op, "err", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed", op))
	}
}

func (h *Handler) writeReadError(w http.ResponseWriter, r *http.Request, err error) {
	var re *registry.Error
	switch {
	case errors.As(err, &re) && re.Category == registry.ErrorNotFound:
		writeError(w, http.StatusNotFound, "title not found in registry")
	case errors.As(err, &re):
		h.logger.WarnContext(r.Context(), "api.registry.error", "category", re.Category, "err", err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("registry error (%s)", re.Category))
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.logger.ErrorContext(r.Context(), "api.read.error", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func titleParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("title"))
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "query parameter title must be a positive integer")
		return 0, false
	}
	return n, true
}

// decodeBody decodes an optional JSON body; an empty body leaves v zero.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// looseString accepts a JSON string or a bare number and returns its text.
func looseString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
