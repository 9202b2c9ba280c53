// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyPoint struct {
	EffectiveDate string  `json:"effectiveDate"`
	WordCount     int     `json:"wordCount"`
	Density       float64 `json:"restrictionDensityScore"`
}

func TestJSONTo(t *testing.T) {
	var buf bytes.Buffer
	points := []historyPoint{
		{EffectiveDate: "2023-01-01", WordCount: 1200, Density: 4.17},
		{EffectiveDate: "2024-01-01", WordCount: 1350, Density: 5.93},
	}
	require.NoError(t, JSONTo(&buf, points))

	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "]\n"), "missing trailing newline: %q", out)
	assert.Contains(t, out, "\n    \"effectiveDate\": \"2023-01-01\"")

	var back []historyPoint
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, points, back)
}

func TestJSONToKeepsAmpersands(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONTo(&buf, map[string]string{"agency": "Food & Drug Administration"}))
	assert.Contains(t, buf.String(), "Food & Drug Administration")
}

func TestJSONToUnencodable(t *testing.T) {
	var buf bytes.Buffer
	err := JSONTo(&buf, map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JSON encoding failed")
}
