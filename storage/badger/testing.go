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


package badger

import "github.com/coverwire/curator/storage"

// MemoryStore bundles every repository over one in-memory backend.
// Intended for tests; callers must Close it when done.
type MemoryStore struct {
	Staging     storage.StagingRepository
	Dedup       storage.DedupRepository
	Published   storage.PublishedRepository
	SourceState storage.SourceStateRepository
	Backend     *Backend
}

// NewMemoryStore creates in-memory repositories for testing.
func NewMemoryStore() (*MemoryStore, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	staging, err := NewStagingRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	dedup, err := NewDedupRepository(backend)
	if err != nil {
		staging.Close()
		backend.Close()
		return nil, err
	}

	return &MemoryStore{
		Staging:     staging,
		Dedup:       dedup,
		Published:   NewPublishedRepository(backend),
		SourceState: NewSourceStateRepository(backend),
		Backend:     backend,
	}, nil
}

// Close closes all repositories and the backend.
func (s *MemoryStore) Close() error {
	s.SourceState.Close()
	s.Published.Close()
	s.Dedup.Close()
	s.Staging.Close()
	return s.Backend.Close()
}
