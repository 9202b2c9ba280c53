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

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kraklabs/cfrscope/internal/contract"
)

const (
	// DefaultBaseURL is the public eCFR API root.
	DefaultBaseURL = "https://www.ecfr.gov/api"

	// DefaultTimeout bounds a single round-trip. Full-title XML documents are
	// large, so this is generous.
	DefaultTimeout = 2 * time.Minute

	// DefaultUserAgent identifies the mirror to the registry operators.
	DefaultUserAgent = "cfrscope/1.0 (+https://github.com/kraklabs/cfrscope)"

	dateLayout = "2006-01-02"
)

// Config configures a Client. Zero values take the defaults above.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	RequestInterval  time.Duration
	Burst            int
	UserAgent        string
	MaxDocumentBytes int64

	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client

	// Gate overrides the request pacing. When nil a Gate is built from
	// RequestInterval and Burst.
	Gate *Gate
}

// Client reads agencies, titles, version dates and full-text documents from
// the registry. Every method is a single round-trip with no retries.
type Client struct {
	baseURL     string
	http        *http.Client
	gate        *Gate
	userAgent   string
	maxDocBytes int64
	logger      *slog.Logger
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = contract.MaxDocumentBytes()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	gate := cfg.Gate
	if gate == nil {
		gate = NewGate(cfg.RequestInterval, cfg.Burst)
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		http:        httpClient,
		gate:        gate,
		userAgent:   cfg.UserAgent,
		maxDocBytes: cfg.MaxDocumentBytes,
		logger:      logger,
	}
}

// BaseURL returns the registry root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListAgencies returns every agency with its cross-references. Entries with
// neither a name nor a short name are dropped and logged.
func (c *Client) ListAgencies(ctx context.Context) ([]Agency, error) {
	const op = "list_agencies"

	var env agenciesEnvelope
	if err := c.getJSON(ctx, op, "/admin/v1/agencies.json", &env); err != nil {
		return nil, err
	}
	if env.Agencies == nil {
		return nil, newError(ErrorBadData, op, `payload has no "agencies" array`, nil)
	}

	agencies := make([]Agency, 0, len(*env.Agencies))
	dropped := 0
	for _, raw := range *env.Agencies {
		a, d, err := normalizeAgency(raw)
		dropped += d
		if err != nil {
			dropped++
			c.logger.Warn("registry.agency.invalid", "err", err)
			continue
		}
		agencies = append(agencies, a)
	}
	if dropped > 0 {
		c.logger.Warn("registry.agencies.dropped", "count", dropped)
	}
	return agencies, nil
}

// ListTitles returns the registry's title catalog.
func (c *Client) ListTitles(ctx context.Context) ([]Title, error) {
	const op = "list_titles"

	var env titlesEnvelope
	if err := c.getJSON(ctx, op, "/versioner/v1/titles.json", &env); err != nil {
		return nil, err
	}
	if env.Titles == nil {
		return nil, newError(ErrorBadData, op, `payload has no "titles" array`, nil)
	}

	titles := make([]Title, 0, len(*env.Titles))
	for _, t := range *env.Titles {
		if err := validateTitle(t); err != nil {
			c.logger.Warn("registry.title.invalid", "err", err)
			continue
		}
		t.Name = strings.TrimSpace(t.Name)
		titles = append(titles, t)
	}
	return titles, nil
}

// ListVersionDates returns the raw issue dates of every content version of a
// title, as the registry lists them (duplicates and any order).
func (c *Client) ListVersionDates(ctx context.Context, titleNumber int) ([]string, error) {
	const op = "list_version_dates"

	if titleNumber < 1 {
		return nil, newError(ErrorBadData, op, fmt.Sprintf("invalid title number %d", titleNumber), nil)
	}

	var env versionsEnvelope
	path := fmt.Sprintf("/versioner/v1/versions/title-%d.json", titleNumber)
	if err := c.getJSON(ctx, op, path, &env); err != nil {
		return nil, err
	}
	if env.ContentVersions == nil {
		return nil, newError(ErrorBadData, op, `payload has no "content_versions" array`, nil)
	}

	dates := make([]string, 0, len(*env.ContentVersions))
	for i, v := range *env.ContentVersions {
		if strings.TrimSpace(v.IssueDate) == "" {
			return nil, newError(ErrorBadData, op, fmt.Sprintf("content version %d has no issue_date", i), nil)
		}
		dates = append(dates, v.IssueDate)
	}
	return dates, nil
}

// FetchDocument downloads the full XML text of a title as of date.
func (c *Client) FetchDocument(ctx context.Context, titleNumber int, date string) ([]byte, error) {
	const op = "fetch_document"

	if titleNumber < 1 {
		return nil, newError(ErrorBadData, op, fmt.Sprintf("invalid title number %d", titleNumber), nil)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, newError(ErrorBadData, op, fmt.Sprintf("invalid date %q", date), err)
	}

	path := fmt.Sprintf("/versioner/v1/full/%s/title-%d.xml", date, titleNumber)
	resp, err := c.do(ctx, op, path, "application/xml")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDocBytes+1))
	if err != nil {
		return nil, transportError(op, err)
	}
	if res := contract.ValidateDocumentSize(int64(len(body)), c.maxDocBytes); !res.OK {
		return nil, newError(ErrorBadData, op, res.Message, nil)
	}
	if len(body) == 0 {
		return nil, newError(ErrorBadData, op, "empty document", nil)
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, target any) error {
	resp, err := c.do(ctx, op, path, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	dec := json.NewDecoder(io.LimitReader(resp.Body, contract.MaxPayloadBytes))
	if err := dec.Decode(target); err != nil {
		if ctx.Err() != nil {
			return transportError(op, ctx.Err())
		}
		return newError(ErrorBadData, op, "decode payload", err)
	}
	return nil
}

// do waits on the gate and performs one GET. Non-2xx responses are closed
// and returned as categorized errors.
func (c *Client) do(ctx context.Context, op, path, accept string) (*http.Response, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return nil, transportError(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, newError(ErrorInternal, op, "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	c.logger.Debug("registry.request",
		"op", op,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, statusError(op, resp.StatusCode)
	}
	return resp, nil
}
