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


package mock

import "github.com/coverwire/curator/ai"

// MockProvider is a test double for ai.Provider.
// It aggregates mock embedder, validator and writer instances.
type MockProvider struct {
	embedder  *MockEmbedder
	validator *MockValidator
	writer    *MockWriter
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockValidator()/GetMockWriter() to access
// concrete types for test assertions.
func NewMockProvider() ai.Provider {
	return &MockProvider{
		embedder:  NewMockEmbedder(),
		validator: NewMockValidator(),
		writer:    NewMockWriter(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(embedder *MockEmbedder, validator *MockValidator, writer *MockWriter) ai.Provider {
	return &MockProvider{
		embedder:  embedder,
		validator: validator,
		writer:    writer,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Validator returns the mock validator.
func (p *MockProvider) Validator() ai.Validator {
	return p.validator
}

// Writer returns the mock writer.
func (p *MockProvider) Writer() ai.Writer {
	return p.writer
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockValidator returns the underlying mock validator for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockValidator() *MockValidator {
	return p.validator
}

// GetMockWriter returns the underlying mock writer for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockWriter() *MockWriter {
	return p.writer
}
