// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/kraklabs/cfrscope/pkg/ingestion"
	"github.com/kraklabs/cfrscope/pkg/registry"
	"github.com/kraklabs/cfrscope/pkg/storage"
)

func TestFromRun(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCode     int
		wantCategory string
	}{
		{"canceled", fmt.Errorf("sync: %w", context.Canceled), ExitInterrupted, ""},
		{"reset failed", fmt.Errorf("reset catalog: %w", storage.ErrResetFailed), ExitDatabase, ""},
		{"run in progress", ingestion.ErrRunInProgress, ExitDatabase, ""},
		{"registry 404", &registry.Error{Category: registry.ErrorNotFound}, ExitNotFound, "not_found"},
		{"registry outage", &registry.Error{Category: registry.ErrorProviderOutage}, ExitNetwork, "provider_outage"},
		{"registry rate limited", fmt.Errorf("list agencies: %w", &registry.Error{Category: registry.ErrorRateLimited}), ExitNetwork, "rate_limited"},
		{"store closed", storage.ErrClosed, ExitDatabase, ""},
		{"unknown", stderrors.New("boom"), ExitInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ue := FromRun("ingest snapshots", tt.err)
			if ue == nil {
				t.Fatal("FromRun returned nil")
			}
			if ue.ExitCode != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d", ue.ExitCode, tt.wantCode)
			}
			if ue.Op != "ingest snapshots" {
				t.Errorf("Op = %q, want %q", ue.Op, "ingest snapshots")
			}
			if ue.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", ue.Category, tt.wantCategory)
			}
			if ue.Message != "Cannot ingest snapshots" && tt.wantCode != ExitInterrupted {
				t.Errorf("Message = %q", ue.Message)
			}
			if !stderrors.Is(ue, tt.err) {
				t.Errorf("UserError does not wrap %v", tt.err)
			}
		})
	}
}

func TestFromRunPassThrough(t *testing.T) {
	if FromRun("x", nil) != nil {
		t.Error("FromRun(nil) should be nil")
	}
	in := NewInputError("bad", "cause", "fix")
	if got := FromRun("x", fmt.Errorf("wrapped: %w", in)); got != in {
		t.Errorf("FromRun did not pass through UserError: %v", got)
	}
}
