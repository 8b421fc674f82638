package ai

import "context"

// Embedder generates vector embeddings from text for semantic duplicate
// detection. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Validator judges whether a borderline-scored candidate deserves
// enrichment. It is invoked only for candidates inside the validator band
// of the admission gate. Implementations must be thread-safe.
type Validator interface {
	// Validate returns the provider's verdict for a candidate. A malformed
	// provider response surfaces as a MalformedResponseError so the caller
	// can reject conservatively instead of aborting the batch.
	Validate(ctx context.Context, req ValidationRequest) (ValidationResult, error)
}

// Writer drafts the final long-form article for an admitted candidate.
// Implementations must be thread-safe.
type Writer interface {
	// Write returns a complete draft for the candidate. Transient provider
	// failures surface as TransientError or RateLimitError for the caller's
	// retry policy.
	Write(ctx context.Context, req WriteRequest) (Draft, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder, Validator
// and Writer instances, ensuring they share configuration and resources.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Validator returns the candidate validation service.
	// The returned Validator is safe for concurrent use.
	Validator() Validator

	// Writer returns the article drafting service.
	// The returned Writer is safe for concurrent use.
	Writer() Writer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
