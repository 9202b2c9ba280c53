// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxDocumentBytes(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int64
	}{
		{"unset", "", DefaultMaxDocumentBytes},
		{"override", "1024", 1024},
		{"garbage", "lots", DefaultMaxDocumentBytes},
		{"negative", "-5", DefaultMaxDocumentBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CFRSCOPE_MAX_DOCUMENT_BYTES", tt.env)
			assert.Equal(t, tt.want, MaxDocumentBytes())
		})
	}
}

func TestValidateDocumentSize(t *testing.T) {
	assert.True(t, ValidateDocumentSize(10, 10).OK)

	res := ValidateDocumentSize(11, 10)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "10 bytes")

	t.Setenv("CFRSCOPE_MAX_DOCUMENT_BYTES", "100")
	assert.False(t, ValidateDocumentSize(101, 0).OK)
	assert.True(t, ValidateDocumentSize(100, 0).OK)
}
