// Copyright 2025 Coverwire Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/coverwire/curator/core"
)

// maxBackoff caps the computed delay between attempts. A provider-supplied
// rate-limit wait is honored as-is and is not subject to the cap.
const maxBackoff = 30 * time.Second

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry, ±25% jitter)
// Only transient and rate-limit errors are retried; anything else returns
// immediately. Rate-limit errors wait the provider-specified interval
// instead of the computed backoff.
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil // Success
		}

		rl, rateLimited := core.AsRateLimit(lastErr)
		if !rateLimited && !core.IsTransient(lastErr) {
			return lastErr // Permanent failure, retrying cannot help
		}

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		delay := backoffDelay(baseDelay, attempt)
		if rateLimited {
			if rl.RetryAfter > 0 {
				delay = rl.RetryAfter
			}
			slog.Debug("provider rate limited, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "wait", delay, "err", lastErr)
		} else {
			slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "wait", delay, "err", lastErr)
		}

		// Sleep with context awareness
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Continue to next attempt
		}
	}

	return lastErr
}

// backoffDelay computes baseDelay * 2^(attempt-1), capped at maxBackoff,
// with ±25% jitter so concurrent workers do not retry in lockstep.
func backoffDelay(baseDelay time.Duration, attempt int) time.Duration {
	delay := baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}

	jitter := time.Duration(float64(delay) * 0.25 * (rand.Float64()*2 - 1))
	return delay + jitter
}
