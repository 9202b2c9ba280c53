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
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestInterval is the minimum spacing between two registry requests.
const DefaultRequestInterval = 100 * time.Millisecond

// Gate paces outbound registry requests with a token bucket.
// A single Gate is shared by every caller of a Client, so the ceiling holds
// across worker goroutines.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate allows one request per interval with the given burst.
// A non-positive interval disables pacing.
func NewGate(interval time.Duration, burst int) *Gate {
	if burst < 1 {
		burst = 1
	}
	if interval <= 0 {
		return &Gate{limiter: rate.NewLimiter(rate.Inf, burst)}
	}
	return &Gate{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

// Wait blocks until a request may proceed or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}
