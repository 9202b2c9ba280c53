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

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cfrscope/pkg/ingestion"
	"github.com/kraklabs/cfrscope/pkg/registry"
)

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CFRSCOPE_REGISTRY_URL",
		"CFRSCOPE_REQUEST_INTERVAL",
		"CFRSCOPE_DATA_DIR",
		"CFRSCOPE_SERVER_ADDR",
		"CFRSCOPE_WORKERS",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), configDirName, configFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("regs")

	assert.Equal(t, "regs", cfg.ProjectID)
	assert.Equal(t, registry.DefaultBaseURL, cfg.Registry.BaseURL)
	assert.Equal(t, registry.DefaultRequestInterval, cfg.Registry.RequestInterval)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, cfg.Ingestion.DemoTitles)
	assert.Equal(t, 5, cfg.Ingestion.DemoLimit)
	assert.Equal(t, 3, cfg.Ingestion.DefaultLimit)
	assert.Equal(t, 1, cfg.Ingestion.Workers)
	assert.Empty(t, cfg.Links.Fallback)
	assert.NoError(t, cfg.validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
project_id: regs
registry:
  base_url: http://localhost:9999/api
  request_interval: 250ms
  timeout: 30s
ingestion:
  default_limit: 7
  workers: 3
links:
  fallback:
    - agency: Department of Transportation
      title: 49
server:
  addr: ":9090"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "regs", cfg.ProjectID)
	assert.Equal(t, "http://localhost:9999/api", cfg.Registry.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Registry.RequestInterval)
	assert.Equal(t, 30*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, 7, cfg.Ingestion.DefaultLimit)
	assert.Equal(t, 3, cfg.Ingestion.Workers)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, []int{1, 2, 3, 4, 5}, cfg.Ingestion.DemoTitles)
	assert.Equal(t, 5, cfg.Ingestion.DemoLimit)

	ing := cfg.IngestionConfig()
	assert.Equal(t, []ingestion.LinkPair{{Agency: "Department of Transportation", Title: 49}}, ing.FallbackLinks)
	assert.Equal(t, 3, ing.Workers)

	rc := cfg.RegistryClientConfig()
	assert.Equal(t, 250*time.Millisecond, rc.RequestInterval)
	assert.Equal(t, "http://localhost:9999/api", rc.BaseURL)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "project_id: regs\n")

	t.Setenv("CFRSCOPE_REGISTRY_URL", "http://mirror.internal/api")
	t.Setenv("CFRSCOPE_REQUEST_INTERVAL", "2s")
	t.Setenv("CFRSCOPE_DATA_DIR", "/var/lib/cfrscope")
	t.Setenv("CFRSCOPE_SERVER_ADDR", "0.0.0.0:8081")
	t.Setenv("CFRSCOPE_WORKERS", "6")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://mirror.internal/api", cfg.Registry.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Registry.RequestInterval)
	assert.Equal(t, "/var/lib/cfrscope", cfg.Storage.DataDir)
	assert.Equal(t, "0.0.0.0:8081", cfg.Server.Addr)
	assert.Equal(t, 6, cfg.Ingestion.Workers)
	assert.Equal(t, "/var/lib/cfrscope", cfg.ProjectConfig().DataDir)
}

func TestLoadConfigBadEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "project_id: regs\n")
	t.Setenv("CFRSCOPE_WORKERS", "many")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingExplicitPath(t *testing.T) {
	clearEnv(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigMissingDefaultUsesDirectoryName(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), cfg.ProjectID)
	assert.Equal(t, registry.DefaultBaseURL, cfg.Registry.BaseURL)
}

func TestLoadConfigInvalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "project_id: [unclosed\n"},
		{"empty project id", "project_id: \"\"\n"},
		{"negative interval", "project_id: regs\nregistry:\n  request_interval: -1s\n"},
		{"fallback without agency", "project_id: regs\nlinks:\n  fallback:\n    - title: 4\n"},
		{"fallback with bad title", "project_id: regs\nlinks:\n  fallback:\n    - agency: EPA\n      title: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestSaveConfigThenLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), configDirName, configFileName)

	cfg := DefaultConfig("regs")
	cfg.Registry.RequestInterval = 500 * time.Millisecond
	cfg.Links.Fallback = []ingestion.LinkPair{{Agency: "EPA", Title: 40}}
	require.NoError(t, SaveConfig(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "request_interval: 500ms")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
