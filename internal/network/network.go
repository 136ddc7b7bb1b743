// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package network

// In this file: rate limited retry wrapper for Discord REST calls.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// defNumAttempts is the default number of retry attempts.
const defNumAttempts = 3

var (
	// maxAllowedWaitTime is the maximum time to wait for a transient error.
	// The wait time for a transient error depends on the current retry
	// attempt number and is calculated as: (attempt+2)^3 seconds, capped at
	// maxAllowedWaitTime.
	maxAllowedWaitTime = 5 * time.Minute
	// waitFn returns the amount of time to wait before retrying depending on
	// the current attempt.  This variable exists to reduce the test time.
	waitFn    = cubicWait
	netWaitFn = expWait
)

// ErrRetryFailed is returned if number of retry attempts exceeded the retry
// attempts limit and function wasn't able to complete without errors.
var ErrRetryFailed = errors.New("callback was unable to complete without errors within the allowed number of retries")

// WithRetry will run the callback function fn.  If the function returns
// *discordgo.RateLimitError, it will delay for the advertised retry-after,
// and then call it again up to maxAttempts times.  It will return an error
// if it runs out of attempts.
func WithRetry(ctx context.Context, lim *rate.Limiter, maxAttempts int, fn func() error) error {
	var ok bool
	if maxAttempts == 0 {
		maxAttempts = defNumAttempts
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return err
		}

		cbErr := fn()
		if cbErr == nil {
			ok = true
			break
		}

		slog.DebugContext(ctx, "WithRetry: callback error", "error", cbErr, "attempt", attempt+1)
		var (
			rle *discordgo.RateLimitError
			re  *discordgo.RESTError
			ne  *net.OpError
		)
		switch {
		case errors.As(cbErr, &rle):
			slog.DebugContext(ctx, "got rate limited", "retry_after", rle.RetryAfter)
			time.Sleep(rle.RetryAfter)
			continue
		case errors.As(cbErr, &re):
			if re.Response != nil && isRecoverable(re.Response.StatusCode) {
				// possibly transient error
				delay := waitFn(attempt)
				slog.DebugContext(ctx, "got server error", "status_code", re.Response.StatusCode, "sleeping", delay)
				time.Sleep(delay)
				continue
			}
		case errors.As(cbErr, &ne):
			if ne.Op == "read" || ne.Op == "write" {
				// possibly transient error
				delay := netWaitFn(attempt)
				slog.DebugContext(ctx, "got network error", "op", ne.Op, "sleeping", delay)
				time.Sleep(delay)
				continue
			}
		}

		return fmt.Errorf("callback error: %w", cbErr)
	}
	if !ok {
		return ErrRetryFailed
	}
	return nil
}

// isRecoverable returns true if the status code is a recoverable error.
func isRecoverable(statusCode int) bool {
	return (statusCode >= http.StatusInternalServerError && statusCode <= 599 && statusCode != 501) || statusCode == 408
}

// cubicWait is the wait time function.  Time is calculated as (x+2)^3 seconds,
// where x is the current attempt number. The maximum wait time is capped at 5
// minutes.
func cubicWait(attempt int) time.Duration {
	x := attempt + 2 // this is to ensure that we sleep at least 8 seconds.
	delay := time.Duration(x*x*x) * time.Second
	if delay > maxAllowedWaitTime {
		return maxAllowedWaitTime
	}
	return delay
}

func expWait(attempt int) time.Duration {
	delay := time.Duration(2<<uint(attempt)) * time.Second
	if delay > maxAllowedWaitTime {
		return maxAllowedWaitTime
	}
	return delay
}

// SetMaxAllowedWaitTime sets the maximum time to wait for a transient error.
func SetMaxAllowedWaitTime(d time.Duration) {
	maxAllowedWaitTime = d
}
