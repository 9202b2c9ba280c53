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

// Package textmetrics derives reproducible metrics from registry documents.
//
// A fetched XML document is first flattened into a normalized text string
// (Normalize), then scored by four pure functions:
//
//	text, err := textmetrics.Normalize(bytes.NewReader(doc))
//	m := textmetrics.Compute(text)
//	// m.Checksum, m.WordCount, m.RestrictionCount, m.DensityScore
//
// The same normalized text always yields the same metrics, so the checksum
// can be compared across runs to detect changed content.
package textmetrics

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// restrictionPattern matches the binding-obligation lexicon as whole words,
// case-insensitively. "may not" tolerates any whitespace run between words.
var restrictionPattern = regexp.MustCompile(`(?i)\b(shall|must|may\s+not|required|prohibited)\b`)

// Metrics is the derived scoring of one normalized document.
type Metrics struct {
	Checksum         string  `json:"checksum"`
	WordCount        int     `json:"word_count"`
	RestrictionCount int     `json:"restriction_count"`
	DensityScore     float64 `json:"restriction_density_score"`
}

// Checksum returns the hex SHA-256 of text. It is a change detector, not a
// security primitive.
func Checksum(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// WordCount counts whitespace-delimited tokens. Blank input has zero words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// RestrictionCount counts lexicon matches. Matches never overlap; adjacent
// matches each count once.
func RestrictionCount(text string) int {
	return len(restrictionPattern.FindAllStringIndex(text, -1))
}

// DensityScore is restrictions per thousand words, 0 when there are no words.
func DensityScore(wordCount, restrictionCount int) float64 {
	if wordCount <= 0 {
		return 0
	}
	return float64(restrictionCount) / float64(wordCount) * 1000
}

// Compute applies all four functions to already-normalized text.
func Compute(text string) Metrics {
	words := WordCount(text)
	restrictions := RestrictionCount(text)
	return Metrics{
		Checksum:         Checksum(text),
		WordCount:        words,
		RestrictionCount: restrictions,
		DensityScore:     DensityScore(words, restrictions),
	}
}
