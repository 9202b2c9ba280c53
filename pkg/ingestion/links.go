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

	"github.com/kraklabs/cfrscope/pkg/registry"
	"github.com/kraklabs/cfrscope/pkg/storage"
)

// LinkPair is an explicit agency-title association.
type LinkPair struct {
	Agency string `yaml:"agency" json:"agency"`
	Title  int    `yaml:"title" json:"title"`
}

// LinkResult counts what one resolution pass did.
type LinkResult struct {
	Created         int  `json:"created"`
	Existing        int  `json:"existing"`
	InvalidRefs     int  `json:"invalid_refs"`
	UnknownTitles   int  `json:"unknown_titles"`
	UnknownAgencies int  `json:"unknown_agencies"`
	Failed          int  `json:"failed"`
	FallbackApplied bool `json:"fallback_applied"`
}

// Resolved is the number of links that exist after the pass.
func (r LinkResult) Resolved() int {
	return r.Created + r.Existing
}

// LinkResolver derives agency-title links from registry cross-references.
type LinkResolver struct {
	store    storage.Backend
	fallback []LinkPair
	logger   *slog.Logger
}

// NewLinkResolver builds a resolver. fallback may be empty.
func NewLinkResolver(store storage.Backend, fallback []LinkPair, logger *slog.Logger) *LinkResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkResolver{store: store, fallback: fallback, logger: logger}
}

// Resolve upserts a link for every well-formed cross-reference whose title
// exists locally. Agencies and their children must already be stored.
// When nothing resolves, the condition is logged at Warn and the configured
// fallback pairs (if any) are applied.
func (r *LinkResolver) Resolve(ctx context.Context, agencies []registry.Agency) (LinkResult, error) {
	var res LinkResult

	titles, err := r.store.ListTitles(ctx)
	if err != nil {
		return res, fmt.Errorf("list local titles: %w", err)
	}
	known := make(map[int]struct{}, len(titles))
	for _, t := range titles {
		known[t.Number] = struct{}{}
	}

	type key struct {
		agency int64
		title  int
	}
	seen := make(map[key]struct{})

	for _, agency := range flattenAgencies(agencies) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if len(agency.CFRReferences) == 0 {
			continue
		}

		stored, err := r.store.GetAgencyByName(ctx, agency.Name)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				res.UnknownAgencies++
				continue
			}
			return res, fmt.Errorf("get agency %q: %w", agency.Name, err)
		}

		for _, ref := range agency.CFRReferences {
			if !ref.Title.Valid() {
				res.InvalidRefs++
				r.logger.Debug("links.ref.invalid", "agency", agency.Name, "title", ref.Title.Raw)
				continue
			}
			if _, ok := known[ref.Title.Number]; !ok {
				res.UnknownTitles++
				continue
			}
			k := key{stored.ID, ref.Title.Number}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}

			r.link(ctx, &res, stored, ref.Title.Number)
		}
	}

	if res.Resolved() == 0 {
		r.logger.Warn("links.resolve.empty",
			"detail", "no agency-title links resolved from registry cross-references",
			"agencies", len(agencies),
			"invalid_refs", res.InvalidRefs,
			"unknown_titles", res.UnknownTitles,
			"fallback_pairs", len(r.fallback),
		)
		if len(r.fallback) > 0 {
			r.applyFallback(ctx, &res, known)
		}
	}

	recordLinksCreated(res.Created)
	r.logger.Info("links.resolve.done",
		"created", res.Created,
		"existing", res.Existing,
		"invalid_refs", res.InvalidRefs,
		"unknown_titles", res.UnknownTitles,
		"fallback_applied", res.FallbackApplied,
	)
	return res, nil
}

func (r *LinkResolver) link(ctx context.Context, res *LinkResult, agency storage.Agency, title int) {
	created, err := r.store.UpsertAgencyTitle(ctx, agency.ID, title)
	if err != nil {
		res.Failed++
		r.logger.Warn("links.upsert.error", "agency", agency.Name, "title", title, "err", err)
		return
	}
	if created {
		res.Created++
	} else {
		res.Existing++
	}
}

func (r *LinkResolver) applyFallback(ctx context.Context, res *LinkResult, known map[int]struct{}) {
	res.FallbackApplied = true
	for _, pair := range r.fallback {
		if _, ok := known[pair.Title]; !ok {
			r.logger.Warn("links.fallback.skip", "agency", pair.Agency, "title", pair.Title, "reason", "unknown title")
			continue
		}
		agency, err := r.store.GetAgencyByName(ctx, pair.Agency)
		if err != nil {
			r.logger.Warn("links.fallback.skip", "agency", pair.Agency, "title", pair.Title, "err", err)
			continue
		}
		r.link(ctx, res, agency, pair.Title)
		r.logger.Warn("links.fallback.applied", "agency", pair.Agency, "title", pair.Title)
	}
}

// flattenAgencies lists parents before their children, depth first.
func flattenAgencies(agencies []registry.Agency) []registry.Agency {
	var out []registry.Agency
	var walk func([]registry.Agency)
	walk = func(list []registry.Agency) {
		for _, a := range list {
			out = append(out, a)
			walk(a.Children)
		}
	}
	walk(agencies)
	return out
}
