package badger

import (
	"context"
	"slices"
	"time"

	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/storage"
	"github.com/dgraph-io/badger/v4"
)

// StagingRepository implements storage.StagingRepository for BadgerDB.
type StagingRepository struct {
	backend *Backend
}

var _ storage.StagingRepository = (*StagingRepository)(nil)

// NewStagingRepository creates a new StagingRepository.
func NewStagingRepository(backend *Backend) (*StagingRepository, error) {
	return &StagingRepository{
		backend: backend,
	}, nil
}

// Close releases resources. StagingRepository has no resources to release.
func (r *StagingRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *StagingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Create persists a staging item, deriving its ID from the fingerprint.
// The ID lookup and the write happen in one transaction, so two racing
// creates for the same fingerprint resolve to a single stored item.
func (r *StagingRepository) Create(ctx context.Context, item *core.StagingItem) (*core.StagingItem, bool, error) {
	if item.Id == 0 {
		item.Id = core.IDFromFingerprint(item.Fingerprint)
	}
	if item.Status == "" {
		item.Status = core.StatusPending
	}

	var (
		stored  *core.StagingItem
		created bool
	)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeStagingKey(item.Id)
		existing, err := readStagingItem(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			stored = existing
			return nil
		}

		item.InsertedAt = time.Now().UTC()
		item.UpdatedAt = item.InsertedAt

		if err := tx.Set(key, storage.MarshalStagingItem(item)); err != nil {
			return err
		}

		// Update status index
		statusKey := makeStagingStatusKey(item.Status, item.Id)
		if err := tx.Set(statusKey, storage.MarshalID(item.Id)); err != nil {
			return err
		}

		stored = item
		created = true
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, false, err
	}

	return stored, created, nil
}

// Get retrieves a single staging item by ID.
func (r *StagingRepository) Get(ctx context.Context, id core.ID) (*core.StagingItem, error) {
	var result *core.StagingItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeStagingKey(id)
		var err error
		result, err = readStagingItem(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetByFingerprint retrieves a staging item by its content fingerprint.
// The ID is derived from the fingerprint, so this is a direct key lookup.
func (r *StagingRepository) GetByFingerprint(ctx context.Context, fp core.Fingerprint) (*core.StagingItem, error) {
	return r.Get(ctx, core.IDFromFingerprint(fp))
}

// ListByStatus retrieves all items in the given status, newest first.
func (r *StagingRepository) ListByStatus(ctx context.Context, status core.Status) ([]*core.StagingItem, error) {
	return r.listByStatus(ctx, status, "")
}

// ListByStatusAndType retrieves items in the given status filtered by
// staging type, newest first.
func (r *StagingRepository) ListByStatusAndType(ctx context.Context, status core.Status, stagingType core.StagingType) ([]*core.StagingItem, error) {
	return r.listByStatus(ctx, status, stagingType)
}

func (r *StagingRepository) listByStatus(ctx context.Context, status core.Status, stagingType core.StagingType) ([]*core.StagingItem, error) {
	var results []*core.StagingItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialStagingStatusKey(status)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			// Read the ID from the index
			var itemID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				itemID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			// Look up the full item
			item, err := readStagingItem(tx, makeStagingKey(itemID))
			if err != nil {
				return err
			}
			if item == nil {
				continue
			}
			if stagingType != "" && item.Type != stagingType {
				continue
			}
			results = append(results, item)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by detection time descending
	slices.SortFunc(results, func(a, b *core.StagingItem) int {
		return b.DetectedAt.Compare(a.DetectedAt)
	})

	return results, nil
}

// Update overwrites mutable fields of an existing item.
// Status, InsertedAt and lifecycle timestamps are preserved from the
// stored item; status changes must go through Transition.
func (r *StagingRepository) Update(ctx context.Context, item *core.StagingItem) (*core.StagingItem, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeStagingKey(item.Id)

		old, err := readStagingItem(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		item.Status = old.Status
		item.InsertedAt = old.InsertedAt
		item.ResolvedAt = old.ResolvedAt
		item.PublishedAt = old.PublishedAt
		item.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalStagingItem(item)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Transition applies a lifecycle event to an item and persists the result.
// A forbidden event returns InvalidTransitionError and writes nothing.
func (r *StagingRepository) Transition(ctx context.Context, id core.ID, event core.Event, notes string) (*core.StagingItem, error) {
	var updated *core.StagingItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeStagingKey(id)

		item, err := readStagingItem(tx, key)
		if err != nil {
			return err
		}
		if item == nil {
			return storage.ErrNotFound
		}

		next, ok := item.Status.Next(event)
		if !ok {
			return &core.InvalidTransitionError{Id: id, From: item.Status, Event: event}
		}

		now := time.Now().UTC()
		prev := item.Status
		item.Status = next
		item.UpdatedAt = now
		if notes != "" {
			item.ReviewNotes = notes
		}
		if next.IsTerminal() && item.ResolvedAt.IsZero() {
			item.ResolvedAt = now
		}
		if event == core.EventPublish && item.PublishedAt.IsZero() {
			item.PublishedAt = now
		}

		if err := tx.Set(key, storage.MarshalStagingItem(item)); err != nil {
			return err
		}

		// Update status index if the status changed
		if prev != next {
			if err := tx.Delete(makeStagingStatusKey(prev, id)); err != nil {
				return err
			}
			if err := tx.Set(makeStagingStatusKey(next, id), storage.MarshalID(id)); err != nil {
				return err
			}
		}

		updated = item
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Helper methods

// readStagingItem reads a staging item from the transaction.
func readStagingItem(tx *badger.Txn, key []byte) (*core.StagingItem, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.StagingItem
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalStagingItem(val)
		return unmarshalErr
	})
	return record, err
}
