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
	"fmt"
	"time"
)

// ValidateCandidate validates a CandidateItem according to domain rules.
//
// Validation rules:
//   - Title must not be empty
//   - SourceURL must not be empty
//   - Fingerprint must not be empty
//   - FetchedAt must not be in the future
//
// NOT validated:
//   - PublishedAt (some feeds emit slightly-future publication times)
//   - Summary (headline-only items are legitimate candidates)
//   - Category (the scorer assigns one when the source omits it)
func ValidateCandidate(candidate *CandidateItem) error {
	if candidate == nil {
		return fmt.Errorf("%w: candidate is nil", ErrInvalidCandidate)
	}

	if candidate.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrEmptyTitle)
	}

	if candidate.SourceURL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrEmptySourceURL)
	}

	if candidate.Fingerprint == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrEmptyFingerprint)
	}

	if !IsValidTimestamp(candidate.FetchedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateScore validates that a heuristic score is within the 0-100 range.
func ValidateScore(score int) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("%w: value %d", ErrInvalidScore, score)
	}
	return nil
}

// ValidateStagingItem validates a StagingItem according to domain rules.
//
// Validation rules:
//   - Fingerprint must not be empty
//   - Id must match the fingerprint derivation
//   - Title must not be empty
//   - Status must be a known lifecycle state
//
// NOT validated:
//   - Vector (empty when the dedup check failed open without an embedding)
//   - ResolvedAt/PublishedAt (zero until the corresponding transition)
func ValidateStagingItem(item *StagingItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidStagingItem)
	}

	if item.Fingerprint == "" {
		return fmt.Errorf("%w: %w", ErrInvalidStagingItem, ErrEmptyFingerprint)
	}

	if item.Id != IDFromFingerprint(item.Fingerprint) {
		return fmt.Errorf("%w: id %d does not match fingerprint %s", ErrInvalidStagingItem, item.Id, item.Fingerprint)
	}

	if item.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidStagingItem, ErrEmptyTitle)
	}

	if !item.Status.IsValid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidStagingItem, ErrUnknownStatus, item.Status)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
