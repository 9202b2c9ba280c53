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

package textmetrics

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrMalformedDocument is returned when a document cannot be parsed as XML
// or carries no root element.
var ErrMalformedDocument = errors.New("malformed document")

// Normalize flattens an XML document into a single line of text.
//
// Character data is kept in document order. Every element boundary acts as
// a word separator, whitespace runs collapse to one space, and the result is
// NFC-normalized so equivalent Unicode spellings hash the same way.
// Attributes, comments and processing instructions are ignored.
func Normalize(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity

	var (
		buf      strings.Builder
		elements int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			elements++
			buf.WriteByte(' ')
		case xml.EndElement:
			buf.WriteByte(' ')
		case xml.CharData:
			buf.Write(t)
		}
	}
	if elements == 0 {
		return "", fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}

	collapsed := strings.Join(strings.Fields(buf.String()), " ")
	return norm.NFC.String(collapsed), nil
}

// Analyze normalizes a document and computes its metrics.
func Analyze(r io.Reader) (Metrics, string, error) {
	text, err := Normalize(r)
	if err != nil {
		return Metrics{}, "", err
	}
	return Compute(text), text, nil
}
