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

import (
	"context"
	"time"

	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/storage"
	"github.com/dgraph-io/badger/v4"
)

// PublishedRepository implements storage.PublishedRepository for BadgerDB.
type PublishedRepository struct {
	backend *Backend
}

var _ storage.PublishedRepository = (*PublishedRepository)(nil)

// NewPublishedRepository creates a new PublishedRepository.
func NewPublishedRepository(backend *Backend) *PublishedRepository {
	return &PublishedRepository{
		backend: backend,
	}
}

// Close releases resources. PublishedRepository has no resources to release.
func (r *PublishedRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *PublishedRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Record persists a published-ledger entry for a fingerprint.
func (r *PublishedRepository) Record(ctx context.Context, record *core.PublishedRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if record.PublishedAt.IsZero() {
			record.PublishedAt = time.Now().UTC()
		}
		key := makePublishedKey(record.Fingerprint)
		if err := tx.Set(key, storage.MarshalPublishedRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a ledger entry by fingerprint.
func (r *PublishedRepository) Get(ctx context.Context, fp core.Fingerprint) (*core.PublishedRecord, error) {
	var record *core.PublishedRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makePublishedKey(fp)
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			record, unmarshalErr = storage.UnmarshalPublishedRecord(val)
			return unmarshalErr
		})
	}, false)

	return record, err
}

// Exists reports whether a fingerprint has a ledger entry.
func (r *PublishedRepository) Exists(ctx context.Context, fp core.Fingerprint) (bool, error) {
	var found bool
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makePublishedKey(fp))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return nil
	}, false)

	return found, err
}
