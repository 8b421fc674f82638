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


package openai

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/coverwire/curator/core"
)

// classifyProviderError sorts provider failures into the pipeline's error
// taxonomy. The langchaingo client surfaces HTTP failures as opaque error
// strings, so classification falls back to status-code substrings when no
// typed error is available.
//
// Auth and bad-request failures stay unwrapped: retrying them wastes
// provider quota. Everything else is worth one more attempt under the
// caller's bounded retry policy.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.NewTransientError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return core.NewTransientError(err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"):
		// Wait duration is unknown at this boundary; the retry policy
		// substitutes its own backoff when RetryAfter is zero.
		return core.NewRateLimitError(err, 0)
	case strings.Contains(msg, "status code: 401"),
		strings.Contains(msg, "status code: 403"),
		strings.Contains(msg, "status code: 400"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "invalid api key"):
		return err
	default:
		return core.NewTransientError(err)
	}
}
