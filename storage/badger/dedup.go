package badger

import (
	"context"
	"slices"
	"time"

	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/storage"
	"github.com/dgraph-io/badger/v4"
)

// DedupRepository implements storage.DedupRepository for BadgerDB.
type DedupRepository struct {
	backend *Backend
}

var _ storage.DedupRepository = (*DedupRepository)(nil)

// NewDedupRepository creates a new DedupRepository.
func NewDedupRepository(backend *Backend) (*DedupRepository, error) {
	return &DedupRepository{
		backend: backend,
	}, nil
}

// Close releases resources. DedupRepository has no resources to release.
func (r *DedupRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DedupRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Upsert stores a dedup record keyed by fingerprint. An existing record
// for the fingerprint is returned unchanged, so concurrent writes for the
// same fingerprint resolve to the first stored record.
func (r *DedupRepository) Upsert(ctx context.Context, record *core.DedupRecord) (*core.DedupRecord, bool, error) {
	var (
		stored  *core.DedupRecord
		created bool
	)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDedupKey(record.Fingerprint)
		existing, err := readDedupRecord(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			stored = existing
			return nil
		}

		record.StoredAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalDedupRecord(record)); err != nil {
			return err
		}

		// Update date index. Records without a source publication time are
		// indexed at their store time so the window still bounds them.
		indexTime := record.PublishedAt
		if indexTime.IsZero() {
			indexTime = record.StoredAt
		}
		dateKey := makeDedupDateKey(indexTime, record.Fingerprint)
		if err := tx.Set(dateKey, []byte(record.Fingerprint)); err != nil {
			return err
		}

		stored = record
		created = true
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, false, err
	}

	return stored, created, nil
}

// Get retrieves a dedup record by fingerprint.
func (r *DedupRepository) Get(ctx context.Context, fp core.Fingerprint) (*core.DedupRecord, error) {
	var result *core.DedupRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDedupKey(fp)
		var err error
		result, err = readDedupRecord(tx, key)
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

// QueryNearest finds records similar to the given vector among those
// published at or after since. The date index bounds the scan, so only
// records inside the window are scored.
func (r *DedupRepository) QueryNearest(ctx context.Context, vector []float32, since time.Time, minScore float32, limit int) ([]*core.DuplicateMatch, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.DuplicateMatch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialDedupDateKey(since)
		prefix := []byte(dedupDatePrefix + ":")

		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			// Read the fingerprint from the index
			var fp core.Fingerprint
			if err := iter.Item().Value(func(val []byte) error {
				fp = core.Fingerprint(val)
				return nil
			}); err != nil {
				return err
			}

			// Look up the full record
			record, err := readDedupRecord(tx, makeDedupKey(fp))
			if err != nil {
				return err
			}
			if record == nil || len(record.Vector) == 0 {
				continue
			}

			// Cosine similarity (dot product for normalized vectors)
			score := dotProduct(vector, record.Vector)
			if score >= minScore {
				results = append(results, &core.DuplicateMatch{
					Fingerprint: record.Fingerprint,
					Score:       score,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *core.DuplicateMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Prune removes records published before the cutoff, along with their
// date index entries. Returns the number of records removed.
func (r *DedupRepository) Prune(ctx context.Context, before time.Time) (int, error) {
	var pruned int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		type doomedEntry struct {
			indexKey []byte
			fp       core.Fingerprint
		}
		var doomed []doomedEntry

		endKey := makePartialDedupDateKey(before)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(dedupDatePrefix + ":")
		iter := tx.NewIterator(opts)

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().KeyCopy(nil)
			if slices.Compare(key, endKey) >= 0 {
				break
			}

			var fp core.Fingerprint
			if err := iter.Item().Value(func(val []byte) error {
				fp = core.Fingerprint(val)
				return nil
			}); err != nil {
				iter.Close()
				return err
			}

			doomed = append(doomed, doomedEntry{indexKey: key, fp: fp})
		}
		iter.Close()

		for _, entry := range doomed {
			if err := tx.Delete(makeDedupKey(entry.fp)); err != nil {
				return err
			}
			if err := tx.Delete(entry.indexKey); err != nil {
				return err
			}
		}

		pruned = len(doomed)
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return pruned, nil
}

// Helper methods

// readDedupRecord reads a dedup record from the transaction.
func readDedupRecord(tx *badger.Txn, key []byte) (*core.DedupRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.DedupRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalDedupRecord(val)
		return unmarshalErr
	})
	return record, err
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
