// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultMaxDocumentBytes is the baseline ceiling for one downloaded
	// title document. The largest titles run to a few hundred MiB of XML.
	DefaultMaxDocumentBytes int64 = 512 << 20 // 512 MiB

	// MaxPayloadBytes caps JSON listing responses (agencies, titles, versions).
	MaxPayloadBytes int64 = 32 << 20 // 32 MiB
)

// MaxDocumentBytes returns the effective document size ceiling.
// Controlled via env CFRSCOPE_MAX_DOCUMENT_BYTES; falls back to DefaultMaxDocumentBytes.
func MaxDocumentBytes() int64 {
	if v := os.Getenv("CFRSCOPE_MAX_DOCUMENT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxDocumentBytes
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateDocumentSize checks a downloaded document length against limit.
// A non-positive limit means MaxDocumentBytes().
func ValidateDocumentSize(size, limit int64) *ValidationResult {
	if limit <= 0 {
		limit = MaxDocumentBytes()
	}
	if size > limit {
		return &ValidationResult{
			OK:      false,
			Message: fmt.Sprintf("document exceeds %d bytes", limit),
		}
	}
	return &ValidationResult{OK: true}
}
