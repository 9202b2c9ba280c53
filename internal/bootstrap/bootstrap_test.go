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

package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProjectIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	cfg := ProjectConfig{ProjectID: "demo", DataDir: dir}

	info, err := InitProject(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "demo", info.ProjectID)
	assert.Equal(t, filepath.Join(dir, "registry.db"), info.DatabasePath)

	_, err = InitProject(ctx, cfg, nil)
	require.NoError(t, err)

	backend, err := OpenProject(ctx, cfg, nil)
	require.NoError(t, err)
	defer func() { _ = backend.Close() }()

	stats, err := backend.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Titles)
}

func TestOpenProjectMissing(t *testing.T) {
	_, err := OpenProject(context.Background(), ProjectConfig{ProjectID: "x", DataDir: t.TempDir()}, nil)
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.Contains(t, err.Error(), "cfrscope init")
}

func TestProjectIDRequired(t *testing.T) {
	_, err := InitProject(context.Background(), ProjectConfig{}, nil)
	assert.ErrorContains(t, err, "project_id")

	_, err = OpenProject(context.Background(), ProjectConfig{DataDir: t.TempDir()}, nil)
	assert.ErrorContains(t, err, "project_id")
}

func TestDefaultDataDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	info, err := InitProject(context.Background(), ProjectConfig{ProjectID: "ecfr"}, nil)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".cfrscope", "data", "ecfr"), info.DataDir)
	assert.FileExists(t, info.DatabasePath)
}
