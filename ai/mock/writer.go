package mock

import (
	"context"
	"sync"

	"github.com/coverwire/curator/ai"
)

// MockWriter is a test double for ai.Writer.
// It allows custom behavior injection via function fields.
type MockWriter struct {
	// WriteFunc is called by Write if set.
	// If nil, uses default deterministic drafting.
	WriteFunc func(ctx context.Context, req ai.WriteRequest) (ai.Draft, error)

	mu        sync.Mutex
	callCount int
}

// NewMockWriter creates a mock writer with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via CallCount().
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write returns the injected draft, or builds a minimal deterministic draft
// from the request fields.
func (m *MockWriter) Write(ctx context.Context, req ai.WriteRequest) (ai.Draft, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, req)
	}

	body := "# " + req.Title + "\n\n" + req.Summary + "\n\nSource: " + req.SourceName
	tags := []string{}
	if req.Category != "" {
		tags = append(tags, req.Category)
	}

	return ai.Draft{
		Headline: req.Title,
		Body:     body,
		Tags:     tags,
	}, nil
}

// CallCount returns the number of times Write was called.
func (m *MockWriter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.WriteFunc = nil
}
