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

package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCategory is the normalized failure taxonomy for registry calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the registry took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the registry returned a payload that does not
	// match the expected schema.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorNotFound indicates the requested resource does not exist.
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates the registry rejected the request with 429.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorProviderOutage indicates a 5xx response or an unreachable host.
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorInternal covers everything else.
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps a registry failure with its category.
type Error struct {
	Category   ErrorCategory
	Op         string
	StatusCode int
	Message    string
	Underlying error
	Retryable  bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("registry %s [%s]: %s", e.Op, e.Category, e.Message)
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

// Unwrap supports errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, op, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Op:         op,
		Message:    message,
		Underlying: underlying,
		Retryable: category == ErrorTimeout ||
			category == ErrorProviderOutage ||
			category == ErrorRateLimited,
	}
}

// statusError maps a non-success HTTP status to a categorized error.
func statusError(op string, status int) *Error {
	var category ErrorCategory
	switch {
	case status == http.StatusNotFound:
		category = ErrorNotFound
	case status == http.StatusTooManyRequests:
		category = ErrorRateLimited
	case status >= 500:
		category = ErrorProviderOutage
	default:
		category = ErrorInternal
	}
	e := newError(category, op, fmt.Sprintf("unexpected status %d", status), nil)
	e.StatusCode = status
	return e
}

// transportError classifies a failed round-trip.
func transportError(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrorTimeout, op, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(ErrorTimeout, op, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return newError(ErrorInternal, op, "request canceled", err)
	}
	return newError(ErrorProviderOutage, op, "request failed", err)
}

// IsRetryable reports whether err is a registry failure worth retrying.
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// CategoryOf extracts the category from err, or ErrorInternal.
func CategoryOf(err error) ErrorCategory {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ErrorInternal
}

// IsNotFound reports whether the registry answered 404.
func IsNotFound(err error) bool {
	return CategoryOf(err) == ErrorNotFound
}
