// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Validator,
// ai.Writer and ai.Provider for use in unit tests. The mocks allow tests to
// run without external AI service dependencies and enable controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockValidator := mock.NewMockValidator()
//	mockValidator.ValidateFunc = func(ctx context.Context, req ai.ValidationRequest) (ai.ValidationResult, error) {
//	    return ai.ValidationResult{Approved: false, Notes: "rejected"}, nil
//	}
//
//	// Check call counts
//	count := mockValidator.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockValidator: Approves every candidate without overrides
//   - MockWriter: Builds a minimal draft from the request fields
//   - MockProvider: Aggregates the three mock services
package mock
