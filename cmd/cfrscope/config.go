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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/kraklabs/cfrscope/internal/bootstrap"
	"github.com/kraklabs/cfrscope/pkg/ingestion"
	"github.com/kraklabs/cfrscope/pkg/registry"
)

const (
	configDirName  = ".cfrscope"
	configFileName = "project.yaml"
	configVersion  = "1"

	defaultRegistryURL = registry.DefaultBaseURL
	defaultServerAddr  = "127.0.0.1:8080"
)

// Config is the on-disk project configuration.
type Config struct {
	Version   string          `yaml:"version"`
	ProjectID string          `yaml:"project_id"`
	Registry  RegistryConfig  `yaml:"registry"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Links     LinksConfig     `yaml:"links"`
	Server    ServerConfig    `yaml:"server"`
}

// RegistryConfig configures the remote eCFR client.
type RegistryConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout,omitempty"`
	RequestInterval  time.Duration `yaml:"request_interval"`
	Burst            int           `yaml:"burst,omitempty"`
	UserAgent        string        `yaml:"user_agent,omitempty"`
	MaxDocumentBytes int64         `yaml:"max_document_bytes,omitempty"`
}

// StorageConfig locates the local store. An empty DataDir means
// ~/.cfrscope/data/<project_id>.
type StorageConfig struct {
	DataDir string `yaml:"data_dir,omitempty"`
}

// IngestionConfig shapes the demo and custom workloads.
type IngestionConfig struct {
	DemoTitles   []int `yaml:"demo_titles"`
	DemoLimit    int   `yaml:"demo_limit"`
	DefaultLimit int   `yaml:"default_limit"`
	Workers      int   `yaml:"workers"`
}

// LinksConfig holds the agency-title pairs applied when a synchronization
// resolves no links at all.
type LinksConfig struct {
	Fallback []ingestion.LinkPair `yaml:"fallback,omitempty"`
}

// ServerConfig configures 'cfrscope serve'.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// envOverrides are applied on top of the file. Zero values leave the file
// setting alone.
type envOverrides struct {
	RegistryURL     string        `env:"CFRSCOPE_REGISTRY_URL"`
	RequestInterval time.Duration `env:"CFRSCOPE_REQUEST_INTERVAL"`
	DataDir         string        `env:"CFRSCOPE_DATA_DIR"`
	ServerAddr      string        `env:"CFRSCOPE_SERVER_ADDR"`
	Workers         int           `env:"CFRSCOPE_WORKERS"`
}

// DefaultConfig returns the configuration written by 'cfrscope init'.
func DefaultConfig(projectID string) *Config {
	ing := ingestion.DefaultConfig()
	return &Config{
		Version:   configVersion,
		ProjectID: projectID,
		Registry: RegistryConfig{
			BaseURL:         defaultRegistryURL,
			RequestInterval: registry.DefaultRequestInterval,
		},
		Ingestion: IngestionConfig{
			DemoTitles:   ing.DemoTitles,
			DemoLimit:    ing.DemoLimit,
			DefaultLimit: ing.DefaultLimit,
			Workers:      ing.Workers,
		},
		Server: ServerConfig{Addr: defaultServerAddr},
	}
}

// ConfigDir returns the configuration directory under root.
func ConfigDir(root string) string {
	return filepath.Join(root, configDirName)
}

// ConfigPath returns the project file path under root.
func ConfigPath(root string) string {
	return filepath.Join(ConfigDir(root), configFileName)
}

// LoadConfig reads the project file and applies environment overrides.
//
// With an empty path the file is looked up in the current directory. A
// missing default file is not an error: the defaults are used with the
// directory name as project id. A missing explicit path is an error.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		path = ConfigPath(cwd)
	}

	cfg, err := readConfig(path)
	switch {
	case err == nil:
	case os.IsNotExist(err) && !explicit:
		cwd, _ := os.Getwd()
		cfg = DefaultConfig(filepath.Base(cwd))
	default:
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

func readConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the user's project file
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if ov.RegistryURL != "" {
		cfg.Registry.BaseURL = ov.RegistryURL
	}
	if ov.RequestInterval > 0 {
		cfg.Registry.RequestInterval = ov.RequestInterval
	}
	if ov.DataDir != "" {
		cfg.Storage.DataDir = ov.DataDir
	}
	if ov.ServerAddr != "" {
		cfg.Server.Addr = ov.ServerAddr
	}
	if ov.Workers > 0 {
		cfg.Ingestion.Workers = ov.Workers
	}
	return nil
}

func (c *Config) validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if c.Registry.RequestInterval < 0 {
		return fmt.Errorf("registry.request_interval must not be negative")
	}
	for _, p := range c.Links.Fallback {
		if p.Agency == "" || p.Title < 1 {
			return fmt.Errorf("links.fallback: invalid pair %q/%d", p.Agency, p.Title)
		}
	}
	return nil
}

// SaveConfig writes cfg as YAML, creating the directory if needed.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	header := []byte("# cfrscope project configuration\n")
	return os.WriteFile(path, append(header, data...), 0600)
}

// RegistryClientConfig converts the registry section.
func (c *Config) RegistryClientConfig() registry.Config {
	return registry.Config{
		BaseURL:          c.Registry.BaseURL,
		Timeout:          c.Registry.Timeout,
		RequestInterval:  c.Registry.RequestInterval,
		Burst:            c.Registry.Burst,
		UserAgent:        c.Registry.UserAgent,
		MaxDocumentBytes: c.Registry.MaxDocumentBytes,
	}
}

// IngestionConfig converts the ingestion and links sections.
func (c *Config) IngestionConfig() ingestion.Config {
	return ingestion.Config{
		DemoTitles:    c.Ingestion.DemoTitles,
		DemoLimit:     c.Ingestion.DemoLimit,
		DefaultLimit:  c.Ingestion.DefaultLimit,
		Workers:       c.Ingestion.Workers,
		FallbackLinks: c.Links.Fallback,
	}
}

// ProjectConfig converts to the bootstrap layout.
func (c *Config) ProjectConfig() bootstrap.ProjectConfig {
	return bootstrap.ProjectConfig{
		ProjectID: c.ProjectID,
		DataDir:   c.Storage.DataDir,
	}
}
