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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Agency is one entry of the registry's agency listing.
type Agency struct {
	Name          string         `json:"name"`
	ShortName     string         `json:"short_name"`
	DisplayName   string         `json:"display_name"`
	SortableName  string         `json:"sortable_name"`
	Slug          string         `json:"slug"`
	Children      []Agency       `json:"children"`
	CFRReferences []CFRReference `json:"cfr_references"`
}

// CFRReference points an agency at a title (and optionally a chapter).
type CFRReference struct {
	Title    TitleRef `json:"title"`
	Chapter  string   `json:"chapter,omitempty"`
	Subtitle string   `json:"subtitle,omitempty"`
}

// TitleRef is a cross-referenced title number. The registry emits it as a
// number, but older payloads carry numeric strings; anything else decodes
// without error and reports Valid() == false.
type TitleRef struct {
	Raw    string
	Number int
}

// UnmarshalJSON accepts a JSON number or a string.
func (r *TitleRef) UnmarshalJSON(data []byte) error {
	*r = TitleRef{}
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	r.Raw = s
	if n, err := strconv.Atoi(s); err == nil {
		r.Number = n
	}
	return nil
}

// MarshalJSON writes the number when valid and the raw text otherwise.
func (r TitleRef) MarshalJSON() ([]byte, error) {
	if r.Valid() {
		return []byte(strconv.Itoa(r.Number)), nil
	}
	return json.Marshal(r.Raw)
}

// Valid reports whether the reference is a positive integer.
func (r TitleRef) Valid() bool {
	return r.Number >= 1
}

// Title is one entry of the registry's title listing.
type Title struct {
	Number          int    `json:"number"`
	Name            string `json:"name"`
	LatestAmendedOn string `json:"latest_amended_on,omitempty"`
	LatestIssueDate string `json:"latest_issue_date,omitempty"`
	UpToDateAsOf    string `json:"up_to_date_as_of,omitempty"`
	Reserved        bool   `json:"reserved"`
}

// ContentVersion is one entry of a title's version listing. IssueDate is the
// version date used everywhere else.
type ContentVersion struct {
	Date          string `json:"date"`
	AmendmentDate string `json:"amendment_date"`
	IssueDate     string `json:"issue_date"`
	Identifier    string `json:"identifier"`
	Name          string `json:"name"`
	Substantive   bool   `json:"substantive"`
	Removed       bool   `json:"removed"`
	Type          string `json:"type"`
}

type agenciesEnvelope struct {
	Agencies *[]Agency `json:"agencies"`
}

type titlesEnvelope struct {
	Titles *[]Title `json:"titles"`
}

type versionsEnvelope struct {
	ContentVersions *[]ContentVersion `json:"content_versions"`
}

// normalizeAgency applies the name fallback and validates the entry and its
// children. Invalid children are dropped; an invalid parent is an error.
func normalizeAgency(a Agency) (Agency, int, error) {
	if strings.TrimSpace(a.Name) == "" {
		a.Name = a.ShortName
	}
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return a, 0, fmt.Errorf("agency without name or short_name (slug %q)", a.Slug)
	}
	dropped := 0
	children := make([]Agency, 0, len(a.Children))
	for _, child := range a.Children {
		c, d, err := normalizeAgency(child)
		dropped += d
		if err != nil {
			dropped++
			continue
		}
		children = append(children, c)
	}
	a.Children = children
	return a, dropped, nil
}

func validateTitle(t Title) error {
	if t.Number < 1 {
		return fmt.Errorf("title number %d is not positive", t.Number)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("title %d has no name", t.Number)
	}
	return nil
}
