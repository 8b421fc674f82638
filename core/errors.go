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


package core

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Domain validation errors
var (
	// ErrInvalidCandidate indicates a CandidateItem failed validation.
	ErrInvalidCandidate = errors.New("invalid candidate item")

	// ErrInvalidStagingItem indicates a StagingItem failed validation.
	ErrInvalidStagingItem = errors.New("invalid staging item")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrEmptySourceURL indicates the SourceURL field is empty.
	ErrEmptySourceURL = errors.New("source URL cannot be empty")

	// ErrEmptyFingerprint indicates the content fingerprint is missing.
	ErrEmptyFingerprint = errors.New("content fingerprint cannot be empty")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrInvalidScore indicates a score outside the 0-100 range.
	ErrInvalidScore = errors.New("score must be between 0 and 100")

	// ErrUnknownStatus indicates an unrecognized lifecycle status value.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrUnknownEvent indicates an unrecognized transition event value.
	ErrUnknownEvent = errors.New("unknown event")
)

// TransientError wraps a temporary failure (network, timeout, overloaded
// provider) that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// RateLimitError reports that a provider throttled the call. It is retried
// after the provider-specified wait and counted separately from generic
// transient failures.
type RateLimitError struct {
	RetryAfter time.Duration
	err        error
}

func (e *RateLimitError) Error() string {
	return e.err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.err
}

// NewRateLimitError wraps an error as a rate limit with a suggested wait.
func NewRateLimitError(err error, retryAfter time.Duration) error {
	return &RateLimitError{RetryAfter: retryAfter, err: err}
}

// IsRateLimit returns true if the error chain contains a RateLimitError.
func IsRateLimit(err error) bool {
	_, ok := AsRateLimit(err)
	return ok
}

// AsRateLimit extracts a RateLimitError from an error chain.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// MalformedResponseError reports that a provider returned output the
// pipeline could not parse. It carries the raw response for inspection.
// Handled conservatively: never retried, never allowed to abort a batch.
type MalformedResponseError struct {
	Raw string
	err error
}

func (e *MalformedResponseError) Error() string {
	return e.err.Error()
}

func (e *MalformedResponseError) Unwrap() error {
	return e.err
}

// NewMalformedResponseError wraps a parse failure with the raw provider output.
func NewMalformedResponseError(err error, raw string) error {
	return &MalformedResponseError{Raw: raw, err: err}
}

// IsMalformed returns true if the error chain contains a MalformedResponseError.
func IsMalformed(err error) bool {
	var malformed *MalformedResponseError
	return errors.As(err, &malformed)
}

// InvalidTransitionError reports a forbidden status transition. The item is
// left in its prior state.
type InvalidTransitionError struct {
	Id    ID
	From  Status
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: item %d cannot apply %q from %q", e.Id, e.Event, e.From)
}

// IsInvalidTransition returns true if the error chain contains an
// InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var invalid *InvalidTransitionError
	return errors.As(err, &invalid)
}

// ConfigurationError reports missing or contradictory configuration. It is
// fatal at startup; the pipeline refuses to run.
type ConfigurationError struct {
	Field string
	err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.err
}

// NewConfigurationError wraps a startup configuration failure for a field.
func NewConfigurationError(field string, err error) error {
	return &ConfigurationError{Field: field, err: err}
}

// IsConfiguration returns true if the error chain contains a ConfigurationError.
func IsConfiguration(err error) bool {
	var config *ConfigurationError
	return errors.As(err, &config)
}

// ClassifyHTTPStatus maps an HTTP response status onto the error taxonomy:
// 429 becomes a RateLimitError carrying the provider-specified wait, 408 and
// 5xx become TransientError, other non-2xx statuses are permanent failures.
// Returns nil for 2xx.
func ClassifyHTTPStatus(statusCode int, retryAfter time.Duration, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	detail := string(body)
	if len(detail) > 200 {
		detail = detail[:200] + "..."
	}
	err := fmt.Errorf("http status %d: %s", statusCode, detail)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitError(err, retryAfter)
	case statusCode == http.StatusRequestTimeout || statusCode >= 500:
		return NewTransientError(err)
	default:
		return err
	}
}
