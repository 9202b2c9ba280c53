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

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/kraklabs/cfrscope/pkg/storage/migrations"
)

// DatabaseFile is the SQLite file name inside a project data directory.
const DatabaseFile = "registry.db"

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// DataDir is the directory holding registry.db.
	// Defaults to ~/.cfrscope/data/<project_id>
	DataDir string

	// ProjectID is used to namespace the default data directory.
	ProjectID string
}

// SQLiteBackend implements Backend on a local SQLite file.
type SQLiteBackend struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	closed bool
}

// DefaultDataDir returns ~/.cfrscope/data/<projectID>.
func DefaultDataDir(projectID string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(homeDir, ".cfrscope", "data")
	if projectID != "" {
		dir = filepath.Join(dir, projectID)
	}
	return dir, nil
}

// NewSQLiteBackend opens (creating if needed) the project database.
// Call EnsureSchema before first use.
func NewSQLiteBackend(config SQLiteConfig) (*SQLiteBackend, error) {
	if config.DataDir == "" {
		dir, err := DefaultDataDir(config.ProjectID)
		if err != nil {
			return nil, err
		}
		config.DataDir = dir
	}

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(filepath.Clean(config.DataDir), DatabaseFile)
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single connection so pragmas and transactions share one handle.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	return &SQLiteBackend{db: db, path: dbPath}, nil
}

// NewSQLiteBackendFromDB wraps an already-open handle. Used by tests that
// drive the backend through a mock driver.
func NewSQLiteBackendFromDB(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

// EnsureSchema applies the embedded migrations. It is idempotent.
func (b *SQLiteBackend) EnsureSchema(ctx context.Context) error {
	release, err := b.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := applyMigrations(ctx, b.db, migrations.FS, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Path returns the database file path ("" for wrapped handles).
func (b *SQLiteBackend) Path() string {
	return b.path
}

// DB returns the underlying handle for advanced operations.
// Use with caution - prefer the Backend interface methods.
func (b *SQLiteBackend) DB() *sql.DB {
	return b.db
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// acquire takes the read side of the lifecycle lock and checks ctx.
func (b *SQLiteBackend) acquire(ctx context.Context) (func(), error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		b.mu.RUnlock()
		return nil, err
	}
	return b.mu.RUnlock, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func sqliteCode(err error) (int, bool) {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code(), true
	}
	return 0, false
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok {
		switch code {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

var _ Backend = (*SQLiteBackend)(nil)
