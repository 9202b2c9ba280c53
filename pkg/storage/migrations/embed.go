// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package migrations

import "embed"

// FS contains the embedded SQLite migrations for the registry mirror.
//
//go:embed *.sql
var FS embed.FS
