package storage

import (
	"context"
	"time"

	"github.com/coverwire/curator/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the repository and releases resources.
	Close() error
}

// StagingRepository provides operations for managing staging items.
type StagingRepository interface {
	Repository
	// Create persists a staging item, deriving its ID from the fingerprint.
	// Create is idempotent on fingerprint: if an item for the fingerprint
	// already exists, the stored item is returned unchanged with created=false.
	// Sets InsertedAt/UpdatedAt and defaults Status to pending.
	Create(ctx context.Context, item *core.StagingItem) (*core.StagingItem, bool, error)

	// Get retrieves a single staging item by ID.
	// Returns ErrNotFound if the item doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.StagingItem, error)

	// GetByFingerprint retrieves a staging item by its content fingerprint.
	// Returns ErrNotFound if no item exists for the fingerprint.
	GetByFingerprint(ctx context.Context, fp core.Fingerprint) (*core.StagingItem, error)

	// ListByStatus retrieves all items in the given status, newest first.
	ListByStatus(ctx context.Context, status core.Status) ([]*core.StagingItem, error)

	// ListByStatusAndType retrieves items in the given status filtered by
	// staging type, newest first.
	ListByStatusAndType(ctx context.Context, status core.Status, stagingType core.StagingType) ([]*core.StagingItem, error)

	// Update overwrites mutable fields of an existing item and stamps
	// UpdatedAt. Status is not touched; use Transition for that.
	// Returns ErrNotFound if the item doesn't exist.
	Update(ctx context.Context, item *core.StagingItem) (*core.StagingItem, error)

	// Transition applies a lifecycle event to an item and persists the
	// resulting status. Returns InvalidTransitionError and leaves the item
	// untouched when the transition table forbids the event. Stamps
	// ResolvedAt on first entry into a terminal status and PublishedAt on
	// the publish event.
	Transition(ctx context.Context, id core.ID, event core.Event, notes string) (*core.StagingItem, error)
}

// DedupRepository provides operations for the time-windowed similarity index.
type DedupRepository interface {
	Repository
	// Upsert stores a dedup record keyed by fingerprint. Idempotent if
	// present: an existing record for the fingerprint is returned unchanged
	// with created=false. Sets StoredAt on new records.
	Upsert(ctx context.Context, record *core.DedupRecord) (*core.DedupRecord, bool, error)

	// Get retrieves a dedup record by fingerprint.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, fp core.Fingerprint) (*core.DedupRecord, error)

	// QueryNearest finds records similar to the given vector among those
	// published at or after since. Returns matches with similarity >=
	// minScore, up to limit results, ordered by similarity (highest first).
	QueryNearest(ctx context.Context, vector []float32, since time.Time, minScore float32, limit int) ([]*core.DuplicateMatch, error)

	// Prune removes records published before the cutoff.
	// Returns the number of records removed.
	Prune(ctx context.Context, before time.Time) (int, error)
}

// PublishedRepository provides operations for the local published ledger.
type PublishedRepository interface {
	Repository
	// Record persists a published-ledger entry for a fingerprint.
	Record(ctx context.Context, record *core.PublishedRecord) error

	// Get retrieves a ledger entry by fingerprint.
	// Returns ErrNotFound if the fingerprint was never published.
	Get(ctx context.Context, fp core.Fingerprint) (*core.PublishedRecord, error)

	// Exists reports whether a fingerprint has a ledger entry.
	Exists(ctx context.Context, fp core.Fingerprint) (bool, error)
}

// SourceStateRepository tracks the last content hash seen per source URL.
type SourceStateRepository interface {
	Repository
	// Get retrieves the tracked state for a source URL.
	// Returns ErrNotFound if the source was never seen.
	Get(ctx context.Context, sourceURL string) (*core.SourceState, error)

	// Put stores the state for a source URL, stamping LastSeenAt.
	Put(ctx context.Context, state *core.SourceState) error
}
