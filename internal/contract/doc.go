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

// Package contract holds the size limits applied to registry downloads.
//
// # Document Size Limits
//
// cfrscope refuses documents larger than a configurable ceiling so a
// misbehaving registry cannot exhaust memory:
//
//	limit := contract.MaxDocumentBytes() // 512 MiB by default
//
//	if res := contract.ValidateDocumentSize(int64(len(body)), limit); !res.OK {
//	    return errors.New(res.Message)
//	}
//
// # Configuration via Environment
//
//	export CFRSCOPE_MAX_DOCUMENT_BYTES=268435456  # 256 MiB
//
// Invalid or non-positive values are ignored.
package contract
