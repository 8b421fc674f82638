package badger

import (
	"context"
	"time"

	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/storage"
	"github.com/dgraph-io/badger/v4"
)

// SourceStateRepository implements storage.SourceStateRepository for BadgerDB.
type SourceStateRepository struct {
	backend *Backend
}

var _ storage.SourceStateRepository = (*SourceStateRepository)(nil)

// NewSourceStateRepository creates a new SourceStateRepository.
func NewSourceStateRepository(backend *Backend) *SourceStateRepository {
	return &SourceStateRepository{
		backend: backend,
	}
}

// Close releases resources. SourceStateRepository has no resources to release.
func (r *SourceStateRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *SourceStateRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Get retrieves the tracked state for a source URL.
func (r *SourceStateRepository) Get(ctx context.Context, sourceURL string) (*core.SourceState, error) {
	var state *core.SourceState
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSourceStateKey(sourceURL)
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			state, unmarshalErr = storage.UnmarshalSourceState(val)
			return unmarshalErr
		})
	}, false)

	return state, err
}

// Put stores the state for a source URL, stamping LastSeenAt.
func (r *SourceStateRepository) Put(ctx context.Context, state *core.SourceState) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		state.LastSeenAt = time.Now().UTC()
		key := makeSourceStateKey(state.SourceURL)
		if err := tx.Set(key, storage.MarshalSourceState(state)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
