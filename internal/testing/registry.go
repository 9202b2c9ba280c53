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

package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/kraklabs/cfrscope/pkg/registry"
)

// Registry API paths served by FakeRegistry.
const (
	AgenciesPath = "/admin/v1/agencies.json"
	TitlesPath   = "/versioner/v1/titles.json"
)

// VersionsPath is the version listing path of a title.
func VersionsPath(title int) string {
	return fmt.Sprintf("/versioner/v1/versions/title-%d.json", title)
}

// DocumentPath is the full-document path of a title at date.
func DocumentPath(title int, date string) string {
	return fmt.Sprintf("/versioner/v1/full/%s/title-%d.xml", date, title)
}

// FakeRegistry is an in-process eCFR stand-in.
type FakeRegistry struct {
	server *httptest.Server

	mu        sync.Mutex
	agencies  []registry.Agency
	titles    []registry.Title
	versions  map[int][]string
	documents map[string]string
	failures  map[string]int
	hits      map[string]int
}

// NewFakeRegistry starts a fake registry closed at test cleanup.
func NewFakeRegistry(t *testing.T) *FakeRegistry {
	t.Helper()

	f := &FakeRegistry{
		agencies:  []registry.Agency{},
		titles:    []registry.Title{},
		versions:  make(map[int][]string),
		documents: make(map[string]string),
		failures:  make(map[string]int),
		hits:      make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL is the base URL to hand to registry.Config.
func (f *FakeRegistry) URL() string {
	return f.server.URL
}

// Client returns an unpaced registry client pointed at the fake.
func (f *FakeRegistry) Client() *registry.Client {
	return registry.NewClient(registry.Config{BaseURL: f.server.URL}, nil)
}

// AddAgency appends an agency to the listing.
func (f *FakeRegistry) AddAgency(a registry.Agency) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agencies = append(f.agencies, a)
}

// AddTitle appends a title to the listing.
func (f *FakeRegistry) AddTitle(number int, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, registry.Title{Number: number, Name: name})
}

// SetVersions sets the raw issue dates a title reports, in the given order.
func (f *FakeRegistry) SetVersions(title int, dates ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[title] = append([]string(nil), dates...)
}

// SetDocument sets the XML body served for title at date.
func (f *FakeRegistry) SetDocument(title int, date, xml string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents[DocumentPath(title, date)] = xml
}

// FailPath answers path with status until cleared with status 0.
func (f *FakeRegistry) FailPath(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.failures, path)
		return
	}
	f.failures[path] = status
}

// Hits reports how often path was requested.
func (f *FakeRegistry) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// DocumentHits sums requests across every full-document path.
func (f *FakeRegistry) DocumentHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for p, c := range f.hits {
		if strings.HasPrefix(p, "/versioner/v1/full/") {
			n += c
		}
	}
	return n
}

func (f *FakeRegistry) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	path := r.URL.Path
	f.hits[path]++
	status, failing := f.failures[path]
	f.mu.Unlock()

	if failing {
		http.Error(w, http.StatusText(status), status)
		return
	}

	switch {
	case path == AgenciesPath:
		f.mu.Lock()
		body := map[string]any{"agencies": append([]registry.Agency{}, f.agencies...)}
		f.mu.Unlock()
		writeJSON(w, body)
	case path == TitlesPath:
		f.mu.Lock()
		body := map[string]any{"titles": append([]registry.Title{}, f.titles...)}
		f.mu.Unlock()
		writeJSON(w, body)
	case strings.HasPrefix(path, "/versioner/v1/versions/"):
		var title int
		if _, err := fmt.Sscanf(strings.TrimPrefix(path, "/versioner/v1/versions/"), "title-%d.json", &title); err != nil {
			http.NotFound(w, r)
			return
		}
		f.mu.Lock()
		dates, ok := f.versions[title]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		versions := make([]registry.ContentVersion, 0, len(dates))
		for _, d := range dates {
			versions = append(versions, registry.ContentVersion{Date: d, IssueDate: d, Identifier: "1.1"})
		}
		writeJSON(w, map[string]any{"content_versions": versions})
	case strings.HasPrefix(path, "/versioner/v1/full/"):
		f.mu.Lock()
		doc, ok := f.documents[path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(doc))
	default:
		http.NotFound(w, r)
	}
}

// RequestedPaths lists every path requested at least once, sorted.
func (f *FakeRegistry) RequestedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.hits))
	for p := range f.hits {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
