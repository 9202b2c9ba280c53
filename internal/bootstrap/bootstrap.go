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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/cfrscope/pkg/storage"
)

// ErrNotInitialized is returned by OpenProject when the project has no
// database yet.
var ErrNotInitialized = errors.New("project not initialized")

// ProjectConfig locates a project's mirror. DataDir defaults to
// ~/.cfrscope/data/<project_id>.
type ProjectConfig struct {
	ProjectID string
	DataDir   string
}

// ProjectInfo describes an initialized project.
type ProjectInfo struct {
	ProjectID    string
	DataDir      string
	DatabasePath string
}

func (c ProjectConfig) resolve() (ProjectConfig, error) {
	if c.ProjectID == "" {
		return c, errors.New("project_id is required")
	}
	if c.DataDir != "" {
		return c, nil
	}
	dir, err := storage.DefaultDataDir(c.ProjectID)
	if err != nil {
		return c, err
	}
	c.DataDir = dir
	return c, nil
}

// migrate opens the backend and applies pending migrations. The backend is
// closed again on failure.
func migrate(ctx context.Context, cfg ProjectConfig) (*storage.SQLiteBackend, error) {
	backend, err := storage.NewSQLiteBackend(storage.SQLiteConfig{
		DataDir:   cfg.DataDir,
		ProjectID: cfg.ProjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := backend.EnsureSchema(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return backend, nil
}

// InitProject creates the data directory and database and applies every
// migration. Running it again on an initialized project only applies
// migrations added since.
func InitProject(ctx context.Context, config ProjectConfig, logger *slog.Logger) (*ProjectInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := config.resolve()
	if err != nil {
		return nil, err
	}

	backend, err := migrate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = backend.Close() }()

	logger.Info("bootstrap.init", "project_id", cfg.ProjectID, "database", backend.Path())
	return &ProjectInfo{
		ProjectID:    cfg.ProjectID,
		DataDir:      cfg.DataDir,
		DatabasePath: backend.Path(),
	}, nil
}

// OpenProject opens an initialized project, migrating it if the binary is
// newer than the database. The caller closes the returned backend.
func OpenProject(ctx context.Context, config ProjectConfig, logger *slog.Logger) (*storage.SQLiteBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := config.resolve()
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(cfg.DataDir, storage.DatabaseFile)
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no database at %s (run 'cfrscope init' first)", ErrNotInitialized, dbPath)
	}

	logger.Debug("bootstrap.open", "project_id", cfg.ProjectID, "database", dbPath)
	return migrate(ctx, cfg)
}
