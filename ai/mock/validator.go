package mock

import (
	"context"
	"sync"

	"github.com/coverwire/curator/ai"
)

// MockValidator is a test double for ai.Validator.
// It allows custom behavior injection via function fields.
type MockValidator struct {
	// ValidateFunc is called by Validate if set.
	// If nil, every candidate is approved without overrides.
	ValidateFunc func(ctx context.Context, req ai.ValidationRequest) (ai.ValidationResult, error)

	mu        sync.Mutex
	callCount int
}

// NewMockValidator creates a mock validator with default approve-all behavior.
// Note: Returns concrete type to allow test assertions via CallCount().
func NewMockValidator() *MockValidator {
	return &MockValidator{}
}

// Validate returns the injected verdict, or approves the candidate by default.
func (m *MockValidator) Validate(ctx context.Context, req ai.ValidationRequest) (ai.ValidationResult, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, req)
	}

	return ai.ValidationResult{
		Approved: true,
		Notes:    "approved by mock validator",
	}, nil
}

// CallCount returns the number of times Validate was called.
func (m *MockValidator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockValidator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ValidateFunc = nil
}
