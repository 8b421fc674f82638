package pipeline

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrCheckerRequired is returned when a duplicate checker is not provided.
	ErrCheckerRequired = errors.New("duplicate checker required")

	// ErrProviderRequired is returned when an AI provider is not provided.
	ErrProviderRequired = errors.New("AI provider required")

	// ErrStagingRequired is returned when a staging repository is not provided.
	ErrStagingRequired = errors.New("staging repository required")

	// ErrSourcesRequired is returned when a source-state repository is not provided.
	ErrSourcesRequired = errors.New("source state repository required")

	// ErrSubmitterRequired is returned when a review submitter is not provided.
	ErrSubmitterRequired = errors.New("review submitter required")
)
