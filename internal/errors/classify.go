// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package errors

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/kraklabs/cfrscope/pkg/ingestion"
	"github.com/kraklabs/cfrscope/pkg/registry"
	"github.com/kraklabs/cfrscope/pkg/storage"
)

// FromRun converts an error returned by a pipeline operation into a
// UserError. op is a short verb phrase such as "synchronize metadata".
// Existing UserErrors pass through unchanged.
func FromRun(op string, err error) *UserError {
	if err == nil {
		return nil
	}
	var ue *UserError
	if stderrors.As(err, &ue) {
		return ue
	}

	ue = classify(op, err)
	ue.Op = op
	return ue
}

func classify(op string, err error) *UserError {
	msg := fmt.Sprintf("Cannot %s", op)
	var re *registry.Error
	switch {
	case stderrors.Is(err, context.Canceled):
		return &UserError{
			Message:  fmt.Sprintf("Interrupted while trying to %s", op),
			Cause:    "The run was canceled before it finished",
			Fix:      "Re-run the command; stored snapshots are kept and skipped",
			ExitCode: ExitInterrupted,
			Err:      err,
		}
	case stderrors.Is(err, storage.ErrResetFailed):
		return NewDatabaseError(msg,
			"The destructive reset failed and was rolled back",
			"Check disk space and file permissions, then run: cfrscope reset --yes",
			err)
	case stderrors.Is(err, ingestion.ErrRunInProgress):
		return NewDatabaseError(msg,
			"Another synchronization or ingestion run is in progress",
			"Wait for it to finish and try again",
			err)
	case stderrors.As(err, &re):
		return registryError(msg, re)
	case stderrors.Is(err, storage.ErrClosed), stderrors.Is(err, storage.ErrNotFound):
		return NewDatabaseError(msg, err.Error(), "Run 'cfrscope init' and 'cfrscope sync'", err)
	default:
		return NewInternalError(msg, err.Error(),
			"This is a bug. Please report it at github.com/kraklabs/cfrscope/issues", err)
	}
}

func registryError(msg string, re *registry.Error) *UserError {
	ue := registryCause(msg, re)
	ue.Category = string(re.Category)
	return ue
}

func registryCause(msg string, re *registry.Error) *UserError {
	switch re.Category {
	case registry.ErrorNotFound:
		return &UserError{
			Message:  msg,
			Cause:    "The registry has no such resource",
			Fix:      "Check the title number with: cfrscope catalog",
			ExitCode: ExitNotFound,
			Err:      re,
		}
	case registry.ErrorRateLimited:
		return NewNetworkError(msg, "The registry is rate limiting requests",
			"Increase registry.request_interval in .cfrscope/project.yaml and retry", re)
	case registry.ErrorTimeout:
		return NewNetworkError(msg, "The registry did not answer in time",
			"Retry later or raise registry.timeout", re)
	case registry.ErrorBadData:
		return NewNetworkError(msg, "The registry answered with data that does not match the expected schema",
			"Retry later; if it persists the registry API may have changed", re)
	default:
		return NewNetworkError(msg, re.Error(), "Check your network connection and try again", re)
	}
}
