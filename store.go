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


package curator

import (
	"log/slog"

	"github.com/coverwire/curator/ai"
	"github.com/coverwire/curator/ai/openai"
	"github.com/coverwire/curator/dedup"
	"github.com/coverwire/curator/notify"
	"github.com/coverwire/curator/pipeline"
	"github.com/coverwire/curator/publish"
	"github.com/coverwire/curator/review"
	"github.com/coverwire/curator/storage"
	"github.com/coverwire/curator/storage/badger"
)

// Store bundles the Badger backend, its repositories and the AI provider
// behind a single open/close lifecycle.
type Store struct {
	backend   *badger.Backend
	staging   storage.StagingRepository
	dedup     storage.DedupRepository
	published storage.PublishedRepository
	sources   storage.SourceStateRepository
	provider  ai.Provider
	logger    *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	aiConfig *ai.Config
}

// WithAIConfig sets the provider configuration used when opening the store.
func WithAIConfig(cfg *ai.Config) StoreOption {
	return func(o *storeOptions) {
		o.aiConfig = cfg
	}
}

// Open opens the curator store at filePath and connects the AI provider.
func Open(filePath string, opts ...StoreOption) (*Store, error) {
	options := &storeOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	stagingRepo, err := badger.NewStagingRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	dedupRepo, err := badger.NewDedupRepository(backend)
	if err != nil {
		stagingRepo.Close()
		backend.Close()
		return nil, err
	}

	publishedRepo := badger.NewPublishedRepository(backend)
	sourceRepo := badger.NewSourceStateRepository(backend)

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		dedupRepo.Close()
		stagingRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Store{
		backend:   backend,
		staging:   stagingRepo,
		dedup:     dedupRepo,
		published: publishedRepo,
		sources:   sourceRepo,
		provider:  provider,
		logger:    slog.Default(),
	}, nil
}

func (s *Store) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	if err := s.dedup.Close(); err != nil {
		s.logger.Error("error closing dedup repository", "err", err)
		return err
	}
	if err := s.staging.Close(); err != nil {
		s.logger.Error("error closing staging repository", "err", err)
		return err
	}

	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (s *Store) Staging() storage.StagingRepository {
	return s.staging
}

func (s *Store) Dedup() storage.DedupRepository {
	return s.dedup
}

func (s *Store) Published() storage.PublishedRepository {
	return s.published
}

func (s *Store) SourceStates() storage.SourceStateRepository {
	return s.sources
}

func (s *Store) Provider() ai.Provider {
	return s.provider
}

// NewDeduplicator builds the semantic duplicate checker over the store's
// similarity index and the provider's embedder.
func (s *Store) NewDeduplicator(opts ...dedup.Option) (*dedup.Deduplicator, error) {
	return dedup.NewDeduplicator(s.provider.Embedder(), s.dedup, opts...)
}

// NewReviewService builds the human-review service over the store's
// repositories, sending previews through notifier.
func (s *Store) NewReviewService(notifier notify.Notifier, opts ...review.Option) (*review.Service, error) {
	return review.NewService(s.staging, s.dedup, notifier, opts...)
}

// NewPublisher builds the idempotent publisher for the downstream endpoint.
func (s *Store) NewPublisher(endpoint string, opts ...publish.Option) (*publish.Publisher, error) {
	return publish.NewPublisher(endpoint, s.published, s.staging, opts...)
}

// NewPipeline builds the batch pipeline over the store's repositories and
// provider. The caller supplies the duplicate checker and the review
// submitter so notification wiring stays in its hands.
func (s *Store) NewPipeline(checker pipeline.DuplicateChecker, submitter pipeline.Submitter, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	return pipeline.NewPipeline(checker, s.provider, s.staging, s.sources, submitter, opts...)
}
