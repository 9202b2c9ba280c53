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

package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

// plain disables colors and captures Out for the duration of a test.
func plain(t *testing.T) *bytes.Buffer {
	t.Helper()
	origColor, origOut := color.NoColor, Out
	t.Cleanup(func() { color.NoColor, Out = origColor, origOut })

	color.NoColor = true
	var buf bytes.Buffer
	Out = &buf
	return &buf
}

func TestInitColors(t *testing.T) {
	original := color.NoColor
	defer func() { color.NoColor = original }()

	InitColors(true)
	assert.True(t, color.NoColor)
	InitColors(false)
	assert.False(t, color.NoColor)
}

func TestMessages(t *testing.T) {
	buf := plain(t)

	Success("Store ready")
	Successf("Created %s", ".cfrscope/project.yaml")
	Warning("Synchronization canceled before completion")
	Warningf("%d items failed", 3)
	Info("No links resolved from the registry")

	assert.Equal(t,
		"✓ Store ready\n"+
			"✓ Created .cfrscope/project.yaml\n"+
			"⚠ Synchronization canceled before completion\n"+
			"⚠ 3 items failed\n"+
			"ℹ No links resolved from the registry\n",
		buf.String())
}

func TestHeaders(t *testing.T) {
	buf := plain(t)

	Header("Ingestion")
	SubHeader("Trends")
	assert.Equal(t, "Ingestion\n=========\nTrends\n", buf.String())
}

func TestInlineStyles(t *testing.T) {
	plain(t)

	assert.Equal(t, "Project ID:", Label("Project ID:"))
	assert.Equal(t, "/tmp/registry.db", DimText("/tmp/registry.db"))
	assert.Equal(t, "42", CountText(42))
}

func TestDensityText(t *testing.T) {
	plain(t)

	tests := []struct {
		score float64
		want  string
	}{
		{0, "0.00"},
		{9.999, "10.00"},
		{10, "10.00"},
		{20, "20.00"},
		{181.8181, "181.82"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DensityText(tt.score))
	}
}

func TestDensityTextBands(t *testing.T) {
	original := color.NoColor
	defer func() { color.NoColor = original }()
	color.NoColor = false

	assert.Equal(t, Green.Sprint("9.99"), DensityText(9.99))
	assert.Equal(t, Yellow.Sprint("10.00"), DensityText(10))
	assert.Equal(t, Red.Sprint("20.00"), DensityText(20))
}

func TestStatusText(t *testing.T) {
	original := color.NoColor
	defer func() { color.NoColor = original }()
	color.NoColor = false

	assert.Equal(t, Green.Sprint("COMPLETED"), StatusText("COMPLETED"))
	assert.Equal(t, Yellow.Sprint("PENDING"), StatusText("PENDING"))
	assert.Equal(t, Dim.Sprint("UNKNOWN"), StatusText("UNKNOWN"))
}
