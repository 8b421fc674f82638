package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coverwire/curator/ai/mock"
	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/storage"
	"github.com/coverwire/curator/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeduplicator(t *testing.T, embedder *mock.MockEmbedder, opts ...Option) (*Deduplicator, *badger.MemoryStore) {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	d, err := NewDeduplicator(embedder, store.Dedup, opts...)
	require.NoError(t, err)
	return d, store
}

func fixedEmbedder(vector []float32) *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
	return embedder
}

func TestCheckNoDuplicates(t *testing.T) {
	d, _ := newTestDeduplicator(t, mock.NewMockEmbedder())

	candidate := core.NewCandidateItem(
		"EBA updates outsourcing guidelines",
		"The guidelines revise supervisory expectations.",
		"https://eba.europa.eu/news/1", "EBA", "banking",
		time.Now().UTC().Add(-time.Hour), time.Now().UTC(),
	)

	result, err := d.Check(context.Background(), candidate)
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.False(t, result.Skipped)
	assert.NotEmpty(t, result.Vector, "the computed embedding must be carried on the result")
}

func TestCheckFlagsNearDuplicate(t *testing.T) {
	// Unit vectors with a dot product of 0.95, above the 0.88 threshold
	stored := []float32{1.0, 0.0, 0.0}
	similar := []float32{0.95, 0.31225, 0.0}

	d, store := newTestDeduplicator(t, fixedEmbedder(similar))

	original := core.NewFingerprint("ECB consults on digital euro", "https://ecb.europa.eu/press/1")
	_, _, err := store.Dedup.Upsert(context.Background(), &core.DedupRecord{
		Fingerprint: original,
		Vector:      stored,
		Category:    "payments",
		PublishedAt: time.Now().UTC().Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	candidate := core.NewCandidateItem(
		"ECB launches digital euro consultation",
		"The central bank asks for feedback on the rulebook.",
		"https://fintechdaily.example/ecb-digital-euro", "Fintech Daily", "payments",
		time.Now().UTC().Add(-2*time.Hour), time.Now().UTC(),
	)

	result, err := d.Check(context.Background(), candidate)
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, original, result.MatchedFingerprint)
	assert.InDelta(t, 0.95, float64(result.Similarity), 0.01)
	assert.NotEmpty(t, result.Vector)
}

func TestCheckWindowExcludesOldMatches(t *testing.T) {
	identical := []float32{1.0, 0.0, 0.0}
	d, store := newTestDeduplicator(t, fixedEmbedder(identical))

	// Same vector, but published outside the 5-day window
	_, _, err := store.Dedup.Upsert(context.Background(), &core.DedupRecord{
		Fingerprint: core.NewFingerprint("Old story", "https://example.org/old"),
		Vector:      identical,
		PublishedAt: time.Now().UTC().Add(-10 * 24 * time.Hour),
	})
	require.NoError(t, err)

	candidate := core.NewCandidateItem(
		"Old story resurfaces", "Same content again.",
		"https://example.org/new", "Example", "",
		time.Now().UTC().Add(-time.Hour), time.Now().UTC(),
	)

	result, err := d.Check(context.Background(), candidate)
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate, "matches outside the window must not count")
}

func TestCheckBelowThreshold(t *testing.T) {
	stored := []float32{1.0, 0.0, 0.0}
	unrelated := []float32{0.5, 0.866, 0.0} // dot product 0.5

	d, store := newTestDeduplicator(t, fixedEmbedder(unrelated))

	_, _, err := store.Dedup.Upsert(context.Background(), &core.DedupRecord{
		Fingerprint: core.NewFingerprint("Stored story", "https://example.org/stored"),
		Vector:      stored,
		PublishedAt: time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)

	candidate := core.NewCandidateItem(
		"Different story", "Unrelated content.",
		"https://example.org/different", "Example", "",
		time.Now().UTC().Add(-time.Hour), time.Now().UTC(),
	)

	result, err := d.Check(context.Background(), candidate)
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
}

func TestCheckNeverWritesIndex(t *testing.T) {
	d, store := newTestDeduplicator(t, mock.NewMockEmbedder())

	candidate := core.NewCandidateItem(
		"FCA statement on crypto promotions", "New rules apply.",
		"https://fca.org.uk/news/2", "FCA", "",
		time.Now().UTC().Add(-time.Hour), time.Now().UTC(),
	)

	_, err := d.Check(context.Background(), candidate)
	require.NoError(t, err)

	// The check must not have persisted anything for this fingerprint
	_, err = store.Dedup.Get(context.Background(), candidate.Fingerprint)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCheckFailsOpenOnEmbedderError(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}
	d, _ := newTestDeduplicator(t, embedder)

	candidate := core.NewCandidateItem(
		"Some title", "Some summary.",
		"https://example.org/x", "Example", "",
		time.Now().UTC(), time.Now().UTC(),
	)

	result, err := d.Check(context.Background(), candidate)
	require.NoError(t, err, "fail-open must not surface the dependency error")
	assert.True(t, result.Skipped)
	assert.False(t, result.IsDuplicate)
}

// failingIndex wraps a DedupRepository and fails every query.
type failingIndex struct {
	storage.DedupRepository
}

func (f *failingIndex) QueryNearest(ctx context.Context, vector []float32, since time.Time, minScore float32, limit int) ([]*core.DuplicateMatch, error) {
	return nil, errors.New("index unreachable")
}

func TestCheckFailsOpenOnIndexError(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	d, err := NewDeduplicator(mock.NewMockEmbedder(), &failingIndex{store.Dedup})
	require.NoError(t, err)

	candidate := core.NewCandidateItem(
		"Some title", "Some summary.",
		"https://example.org/y", "Example", "",
		time.Now().UTC(), time.Now().UTC(),
	)

	result, err := d.Check(context.Background(), candidate)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.NotEmpty(t, result.Vector, "the embedding is still carried when only the index fails")
}

func TestCheckFailClosed(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}
	d, _ := newTestDeduplicator(t, embedder, WithFailClosed(true))

	candidate := core.NewCandidateItem(
		"Some title", "Some summary.",
		"https://example.org/z", "Example", "",
		time.Now().UTC(), time.Now().UTC(),
	)

	_, err := d.Check(context.Background(), candidate)
	assert.Error(t, err, "fail-closed must surface the dependency error")
}

func TestDeduplicatorOptions(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	embedder := mock.NewMockEmbedder()

	t.Run("defaults", func(t *testing.T) {
		d, err := NewDeduplicator(embedder, store.Dedup)
		require.NoError(t, err)
		assert.InDelta(t, DefaultThreshold, float64(d.Threshold()), 0.0001)
		assert.Equal(t, DefaultWindow, d.Window())
	})

	t.Run("custom threshold and window", func(t *testing.T) {
		d, err := NewDeduplicator(embedder, store.Dedup, WithThreshold(0.75), WithWindow(48*time.Hour))
		require.NoError(t, err)
		assert.InDelta(t, 0.75, float64(d.Threshold()), 0.0001)
		assert.Equal(t, 48*time.Hour, d.Window())
	})

	t.Run("invalid threshold", func(t *testing.T) {
		_, err := NewDeduplicator(embedder, store.Dedup, WithThreshold(1.5))
		assert.Error(t, err)

		_, err = NewDeduplicator(embedder, store.Dedup, WithThreshold(0))
		assert.Error(t, err)
	})

	t.Run("invalid window", func(t *testing.T) {
		_, err := NewDeduplicator(embedder, store.Dedup, WithWindow(0))
		assert.Error(t, err)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := NewDeduplicator(nil, store.Dedup)
		assert.Error(t, err)

		_, err = NewDeduplicator(embedder, nil)
		assert.Error(t, err)
	})
}

func TestNormalizeVector(t *testing.T) {
	t.Run("unit output", func(t *testing.T) {
		v := NormalizeVector([]float32{3.0, 4.0})
		assert.InDelta(t, 0.6, float64(v[0]), 0.0001)
		assert.InDelta(t, 0.8, float64(v[1]), 0.0001)
	})

	t.Run("zero vector", func(t *testing.T) {
		v := NormalizeVector([]float32{0.0, 0.0, 0.0})
		assert.Equal(t, []float32{0.0, 0.0, 0.0}, v)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, NormalizeVector(nil))
	})
}
