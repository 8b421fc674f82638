package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coverwire/curator/ai"
	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/storage"
)

const (
	// DefaultThreshold is the cosine similarity at which a candidate
	// counts as a duplicate.
	DefaultThreshold = 0.88
	// DefaultWindow bounds how far back the similarity query looks.
	DefaultWindow = 5 * 24 * time.Hour

	// queryLimit caps how many index matches a check retrieves. Only the
	// nearest decides, the rest feed the debug log.
	queryLimit = 3
)

// Result is the outcome of a duplicate check. Vector carries the
// candidate's embedding so later stages can persist it without paying
// for a second embedding call.
type Result struct {
	IsDuplicate        bool
	MatchedFingerprint core.Fingerprint
	Similarity         float32
	Vector             []float32
	// Skipped is true when the check failed open: the embedder or index
	// was unavailable and the candidate proceeds unchecked.
	Skipped bool
}

// Deduplicator flags candidates that are semantically near-identical to
// recently processed content. It never writes to the index; records are
// persisted only when an item reaches a terminal review decision.
type Deduplicator struct {
	embedder   ai.Embedder
	index      storage.DedupRepository
	threshold  float32
	window     time.Duration
	failClosed bool
	logger     *slog.Logger
}

// Option configures a Deduplicator.
type Option func(*Deduplicator) error

// WithThreshold sets the duplicate similarity threshold in (0, 1].
func WithThreshold(threshold float32) Option {
	return func(d *Deduplicator) error {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("threshold must be in (0, 1], got %f", threshold)
		}
		d.threshold = threshold
		return nil
	}
}

// WithWindow sets how far back the similarity query looks.
func WithWindow(window time.Duration) Option {
	return func(d *Deduplicator) error {
		if window <= 0 {
			return fmt.Errorf("window must be positive, got %v", window)
		}
		d.window = window
		return nil
	}
}

// WithFailClosed makes index or embedder failures abort the candidate
// instead of skipping the check.
func WithFailClosed(failClosed bool) Option {
	return func(d *Deduplicator) error {
		d.failClosed = failClosed
		return nil
	}
}

// NewDeduplicator creates a Deduplicator over an embedder and an index.
func NewDeduplicator(embedder ai.Embedder, index storage.DedupRepository, opts ...Option) (*Deduplicator, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if index == nil {
		return nil, fmt.Errorf("index is required")
	}

	d := &Deduplicator{
		embedder:  embedder,
		index:     index,
		threshold: DefaultThreshold,
		window:    DefaultWindow,
		logger:    slog.Default().With("component", "dedup"),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Threshold returns the configured duplicate similarity threshold.
func (d *Deduplicator) Threshold() float32 {
	return d.threshold
}

// Window returns the configured lookback window.
func (d *Deduplicator) Window() time.Duration {
	return d.window
}

// Check embeds the candidate and queries the index for near duplicates
// inside the window. A failing embedder or index fails open by default:
// the candidate proceeds with a logged warning and Skipped set, so one
// unavailable dependency does not stall the whole batch.
func (d *Deduplicator) Check(ctx context.Context, candidate core.CandidateItem) (Result, error) {
	text := core.NormalizeContent(candidate.Title + " " + candidate.Summary)

	vector, err := d.embedder.EmbedText(ctx, text)
	if err != nil {
		if d.failClosed {
			return Result{}, fmt.Errorf("dedup embedding: %w", err)
		}
		d.logger.Warn("duplicate check skipped, embedder unavailable",
			"fingerprint", candidate.Fingerprint, "err", err)
		return Result{Skipped: true}, nil
	}
	vector = NormalizeVector(vector)

	since := time.Now().UTC().Add(-d.window)
	matches, err := d.index.QueryNearest(ctx, vector, since, d.threshold, queryLimit)
	if err != nil {
		if d.failClosed {
			return Result{}, fmt.Errorf("dedup query: %w", err)
		}
		d.logger.Warn("duplicate check skipped, index unavailable",
			"fingerprint", candidate.Fingerprint, "err", err)
		return Result{Vector: vector, Skipped: true}, nil
	}

	if len(matches) == 0 {
		return Result{Vector: vector}, nil
	}

	nearest := matches[0]
	d.logger.Debug("duplicate detected",
		"fingerprint", candidate.Fingerprint,
		"matched", nearest.Fingerprint,
		"similarity", nearest.Score,
		"candidates", len(matches))

	return Result{
		IsDuplicate:        true,
		MatchedFingerprint: nearest.Fingerprint,
		Similarity:         nearest.Score,
		Vector:             vector,
	}, nil
}
