package badger

import (
	"context"
	"testing"

	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceStatePutAndGet(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	sourceURL := "https://esma.europa.eu/press-news"

	_, err = store.SourceState.Get(ctx, sourceURL)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	state := &core.SourceState{
		SourceURL:   sourceURL,
		ContentHash: core.ContentHash("ESMA launches CSA", "Joint supervisory action"),
	}
	require.NoError(t, store.SourceState.Put(ctx, state))
	assert.False(t, state.LastSeenAt.IsZero(), "Put must stamp LastSeenAt")

	retrieved, err := store.SourceState.Get(ctx, sourceURL)
	require.NoError(t, err)
	assert.Equal(t, state.ContentHash, retrieved.ContentHash)

	// A new hash for the same source overwrites the tracked state
	state.ContentHash = core.ContentHash("ESMA launches CSA", "Updated press release body")
	require.NoError(t, store.SourceState.Put(ctx, state))

	retrieved, err = store.SourceState.Get(ctx, sourceURL)
	require.NoError(t, err)
	assert.Equal(t, state.ContentHash, retrieved.ContentHash)
}
