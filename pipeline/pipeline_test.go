package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverwire/curator/ai"
	"github.com/coverwire/curator/ai/mock"
	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/dedup"
	"github.com/coverwire/curator/review"
	"github.com/coverwire/curator/storage"
	"github.com/coverwire/curator/storage/badger"
	"github.com/coverwire/curator/triage"
)

// stubChecker is a controllable DuplicateChecker.
type stubChecker struct {
	mu     sync.Mutex
	result dedup.Result
	err    error
	calls  int
}

func (c *stubChecker) Check(ctx context.Context, candidate core.CandidateItem) (dedup.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return dedup.Result{}, c.err
	}
	return c.result, nil
}

func (c *stubChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// captureNotifier records preview sends and can be forced to fail.
type captureNotifier struct {
	mu   sync.Mutex
	sent []core.ID
	err  error
}

func (n *captureNotifier) SendPreview(ctx context.Context, item *core.StagingItem) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return "", n.err
	}
	n.sent = append(n.sent, item.Id)
	return fmt.Sprintf("tg:9:%d", len(n.sent)), nil
}

func (n *captureNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *captureNotifier) setErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// testRules makes scores a pure function of title keywords and source:
// "directive" in the title is 60 points, "briefing" 30, and the source
// "regulator" adds 25. Recency stays zero because the fixtures are fetched
// long after publication.
func testRules() triage.Ruleset {
	return triage.Ruleset{
		Keywords:            map[string]int{"directive": 30, "briefing": 15},
		SourceWeights:       map[string]int{"regulator": 25},
		UnknownSourceWeight: 0,
	}
}

func testCandidate(title, sourceName, sourceURL string) core.CandidateItem {
	published := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)
	return core.NewCandidateItem(title, "weekly market summary", sourceURL, sourceName, "", published, published.Add(240*time.Hour))
}

// autoCandidate scores 85: straight to enrichment with the default gate.
func autoCandidate() core.CandidateItem {
	return testCandidate("Directive on liquidity buffers", "Regulator", "https://example.org/directive-liquidity")
}

// borderCandidate scores 60: inside the validator band of the default gate.
func borderCandidate() core.CandidateItem {
	return testCandidate("Directive commentary roundup", "Newswire", "https://example.org/commentary")
}

// lowCandidate scores 30: below the default gate minimum of 40.
func lowCandidate() core.CandidateItem {
	return testCandidate("Briefing notes for the week", "Newswire", "https://example.org/briefing")
}

type testPipeline struct {
	pipe     *Pipeline
	store    *badger.MemoryStore
	checker  *stubChecker
	provider *mock.MockProvider
	notifier *captureNotifier
}

func newTestPipeline(t *testing.T, opts ...Option) *testPipeline {
	t.Helper()

	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider := mock.NewMockProvider().(*mock.MockProvider)
	notifier := &captureNotifier{}

	svc, err := review.NewService(store.Staging, store.Dedup, notifier)
	require.NoError(t, err)

	checker := &stubChecker{result: dedup.Result{Vector: []float32{0.6, 0.8, 0}}}

	base := []Option{
		WithPoolSize(2),
		WithScorer(triage.NewScorerWithRules(testRules())),
		WithRetry(2, time.Millisecond),
		WithStageTimeout(2 * time.Second),
	}
	pipe, err := NewPipeline(checker, provider, store.Staging, store.SourceState, svc, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(pipe.Release)

	return &testPipeline{
		pipe:     pipe,
		store:    store,
		checker:  checker,
		provider: provider,
		notifier: notifier,
	}
}

func TestRunStagesHighScoreWithoutValidator(t *testing.T) {
	tp := newTestPipeline(t)
	candidate := autoCandidate()

	result := tp.pipe.Run(context.Background(), []core.CandidateItem{candidate})

	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Staged)
	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 0, tp.provider.GetMockValidator().CallCount(), "auto-approved candidates never reach the validator")
	assert.Equal(t, 1, tp.provider.GetMockWriter().CallCount())

	item, err := tp.store.Staging.GetByFingerprint(context.Background(), candidate.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, item.Status, "auto-approve skips the validator, not human review")
	assert.Equal(t, 85, item.Score)
	assert.Equal(t, core.DetectionNew, item.DetectionType)
	assert.Equal(t, core.TypeNews, item.Type)
	assert.Equal(t, []float32{0.6, 0.8, 0}, item.Vector, "embedding from the duplicate check is carried onto the item")
	assert.NotEmpty(t, item.NotificationRef)
	assert.NotEmpty(t, item.Body)
}

func TestRunRejectsBelowMinScore(t *testing.T) {
	tp := newTestPipeline(t)
	candidate := lowCandidate()

	result := tp.pipe.Run(context.Background(), []core.CandidateItem{candidate})

	assert.Equal(t, 1, result.ScoreRejected)
	assert.Equal(t, 0, result.Staged)
	assert.Equal(t, 0, tp.provider.GetMockValidator().CallCount(), "no provider call below the gate minimum")
	assert.Equal(t, 0, tp.provider.GetMockWriter().CallCount())

	_, err := tp.store.Staging.GetByFingerprint(context.Background(), candidate.Fingerprint)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunRoutesBorderlineThroughValidator(t *testing.T) {
	tp := newTestPipeline(t)
	tp.provider.GetMockValidator().ValidateFunc = func(ctx context.Context, req ai.ValidationRequest) (ai.ValidationResult, error) {
		return ai.ValidationResult{Approved: true, Category: "payments", Priority: "critical", Notes: "relevant"}, nil
	}
	candidate := borderCandidate()

	result := tp.pipe.Run(context.Background(), []core.CandidateItem{candidate})

	assert.Equal(t, 1, result.Staged)
	assert.Equal(t, 1, tp.provider.GetMockValidator().CallCount())
	assert.Equal(t, 1, tp.provider.GetMockWriter().CallCount())

	item, err := tp.store.Staging.GetByFingerprint(context.Background(), candidate.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, "payments", item.Category, "validator category override applies")
	assert.Equal(t, core.PriorityCritical, item.Priority, "validator priority override applies")
}

func TestRunValidatorRejects(t *testing.T) {
	tp := newTestPipeline(t)
	tp.provider.GetMockValidator().ValidateFunc = func(ctx context.Context, req ai.ValidationRequest) (ai.ValidationResult, error) {
		return ai.ValidationResult{Approved: false, Notes: "routine market chatter"}, nil
	}
	candidate := borderCandidate()

	result := tp.pipe.Run(context.Background(), []core.CandidateItem{candidate})

	assert.Equal(t, 1, result.ValidatorRejected)
	assert.Equal(t, 0, result.Staged)
	assert.Equal(t, 0, tp.provider.GetMockWriter().CallCount(), "rejected candidates are never enriched")
	assert.Equal(t, "routine market chatter", result.Items[0].Detail)

	_, err := tp.store.Staging.GetByFingerprint(context.Background(), candidate.Fingerprint)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunValidatorMalformedRejectsConservatively(t *testing.T) {
	tp := newTestPipeline(t)
	tp.provider.GetMockValidator().ValidateFunc = func(ctx context.Context, req ai.ValidationRequest) (ai.ValidationResult, error) {
		return ai.ValidationResult{}, core.NewMalformedResponseError(errors.New("no json found"), "I think this is fine")
	}

	result := tp.pipe.Run(context.Background(), []core.CandidateItem{borderCandidate()})

	assert.Equal(t, 1, result.ValidatorRejected)
	assert.Equal(t, 0, result.Failed, "a malformed verdict is a rejection, not a failure")
	assert.Equal(t, 1, tp.provider.GetMockValidator().CallCount(), "malformed responses are not retried")
	assert.Equal(t, 0, tp.provider.GetMockWriter().CallCount())
}

func TestRunValidatorRetriesTransient(t *testing.T) {
	tp := newTestPipeline(t)
	validator := tp.provider.GetMockValidator()
	validator.ValidateFunc = func(ctx context.Context, req ai.ValidationRequest) (ai.ValidationResult, error) {
		if validator.CallCount() == 1 {
			return ai.ValidationResult{}, core.NewTransientError(errors.New("upstream timeout"))
		}
		return ai.ValidationResult{Approved: true}, nil
	}

	result := tp.pipe.Run(context.Background(), []core.CandidateItem{borderCandidate()})

	assert.Equal(t, 1, result.Staged)
	assert.Equal(t, 2, validator.CallCount(), "one retry after a transient failure")
}

func TestRunValidatorExhaustionRejectsConservatively(t *testing.T) {
	tp := newTestPipeline(t)
	tp.provider.GetMockValidator().ValidateFunc = func(ctx context.Context, req ai.ValidationRequest) (ai.ValidationResult, error) {
		return ai.ValidationResult{}, core.NewTransientError(errors.New("upstream down"))
	}

	result := tp.pipe.Run(context.Background(), []core.CandidateItem{borderCandidate()})

	assert.Equal(t, 1, result.ValidatorRejected)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, tp.provider.GetMockValidator().CallCount())
	assert.Equal(t, 0, tp.provider.GetMockWriter().CallCount())
}

func TestRunDuplicateSkipsAllProviders(t *testing.T) {
	tp := newTestPipeline(t)
	tp.checker.result = dedup.Result{
		IsDuplicate:        true,
		MatchedFingerprint: core.Fingerprint("aabbccddeeff0011"),
		Similarity:         0.95,
		Vector:             []float32{1, 0, 0},
	}
	candidate := autoCandidate()

	result := tp.pipe.Run(context.Background(), []core.CandidateItem{candidate})

	assert.Equal(t, 1, result.Deduped)
	assert.Equal(t, 0, result.Staged)
	assert.Equal(t, 0, tp.provider.GetMockValidator().CallCount(), "duplicates never reach a provider")
	assert.Equal(t, 0, tp.provider.GetMockWriter().CallCount())
	assert.Equal(t, 0, tp.notifier.sentCount())
	assert.Contains(t, result.Items[0].Detail, "aabbccddeeff0011")

	_, err := tp.store.Staging.GetByFingerprint(context.Background(), candidate.Fingerprint)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunEnrichmentExhaustionLeavesNoTrace(t *testing.T) {
	tp := newTestPipeline(t)
	tp.provider.GetMockWriter().WriteFunc = func(ctx context.Context, req ai.WriteRequest) (ai.Draft, error) {
		return ai.Draft{}, core.NewTransientError(errors.New("model overloaded"))
	}
	candidate := autoCandidate()

	result := tp.pipe.Run(context.Background(), []core.CandidateItem{candidate})

	assert.Equal(t, 1, result.EnrichmentFailed)
	assert.Equal(t, 0, result.Staged)
	assert.Equal(t, 2, tp.provider.GetMockWriter().CallCount(), "the retry budget is two attempts")
	assert.Equal(t, "enrich", result.Items[0].Stage)

	// Nothing durable exists, so a later run can retry the candidate.
	_, err := tp.store.Staging.GetByFingerprint(context.Background(), candidate.Fingerprint)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = tp.store.Dedup.Get(context.Background(), candidate.Fingerprint)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunDetectsUpdatedContent(t *testing.T) {
	tp := newTestPipeline(t)
	candidate := autoCandidate()

	err := tp.store.SourceState.Put(context.Background(), &core.SourceState{
		SourceURL:   candidate.SourceURL,
		ContentHash: core.ContentHash("an earlier headline", "an earlier summary"),
	})
	require.NoError(t, err)

	result := tp.pipe.Run(context.Background(), []core.CandidateItem{candidate})
	require.Equal(t, 1, result.Staged)

	item, err := tp.store.Staging.GetByFingerprint(context.Background(), candidate.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, core.DetectionUpdated, item.DetectionType)
	assert.Equal(t, core.TypeRegulationUpdate, item.Type)

	state, err := tp.store.SourceState.Get(context.Background(), candidate.SourceURL)
	require.NoError(t, err)
	assert.Equal(t, core.ContentHash(candidate.Title, candidate.Summary), state.ContentHash, "tracker advances to the staged content")
}

func TestRunRepeatedBatchIsIdempotent(t *testing.T) {
	tp := newTestPipeline(t)
	candidate := autoCandidate()

	first := tp.pipe.Run(context.Background(), []core.CandidateItem{candidate})
	require.Equal(t, 1, first.Staged)
	require.Equal(t, 1, first.Notified)

	second := tp.pipe.Run(context.Background(), []core.CandidateItem{candidate})
	assert.Equal(t, 1, second.Staged)
	assert.Equal(t, 0, second.Notified, "an already notified item is not re-sent")
	assert.Equal(t, "already staged", second.Items[0].Detail)
	assert.Equal(t, 1, tp.notifier.sentCount())

	items, err := tp.store.Staging.ListByStatus(context.Background(), core.StatusPending)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRunRetriesNotificationOnNextBatch(t *testing.T) {
	tp := newTestPipeline(t)
	tp.notifier.setErr(errors.New("telegram unreachable"))
	candidate := autoCandidate()

	first := tp.pipe.Run(context.Background(), []core.CandidateItem{candidate})
	assert.Equal(t, 1, first.Staged, "a failed preview never blocks staging")
	assert.Equal(t, 0, first.Notified)

	item, err := tp.store.Staging.GetByFingerprint(context.Background(), candidate.Fingerprint)
	require.NoError(t, err)
	assert.Empty(t, item.NotificationRef)

	tp.notifier.setErr(nil)

	second := tp.pipe.Run(context.Background(), []core.CandidateItem{candidate})
	assert.Equal(t, 1, second.Staged)
	assert.Equal(t, 1, second.Notified, "the missing preview goes out on the next batch")

	item, err = tp.store.Staging.GetByFingerprint(context.Background(), candidate.Fingerprint)
	require.NoError(t, err)
	assert.NotEmpty(t, item.NotificationRef)
}

func TestRunBatchDeadlineSkipsUnstarted(t *testing.T) {
	tp := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	candidates := []core.CandidateItem{autoCandidate(), borderCandidate(), lowCandidate()}
	result := tp.pipe.Run(ctx, candidates)

	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, 0, result.Staged)
	assert.Equal(t, 0, tp.checker.callCount(), "skipped candidates never start a stage")
	assert.Equal(t, 0, tp.provider.GetMockValidator().CallCount())
	assert.Equal(t, 0, tp.provider.GetMockWriter().CallCount())
}

func TestRunIsolatesCheckerFailure(t *testing.T) {
	tp := newTestPipeline(t)
	tp.checker.err = errors.New("index unavailable")

	candidates := []core.CandidateItem{autoCandidate()}
	result := tp.pipe.Run(context.Background(), candidates)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "dedup", result.Items[0].Stage)
	assert.Equal(t, 0, result.Staged)
}

func TestRunMixedBatch(t *testing.T) {
	tp := newTestPipeline(t)

	candidates := []core.CandidateItem{autoCandidate(), borderCandidate(), lowCandidate()}
	result := tp.pipe.Run(context.Background(), candidates)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Staged, "auto-approved and validator-approved both stage")
	assert.Equal(t, 1, result.ScoreRejected)
	assert.Equal(t, 2, result.Notified)
	assert.Equal(t, 1, tp.provider.GetMockValidator().CallCount(), "only the borderline candidate consults the validator")
	assert.Equal(t, 2, tp.provider.GetMockWriter().CallCount())
	assert.Len(t, result.Items, 3)
	assert.Positive(t, result.Elapsed)
}

func TestNewPipelineValidation(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider := mock.NewMockProvider()
	notifier := &captureNotifier{}
	svc, err := review.NewService(store.Staging, store.Dedup, notifier)
	require.NoError(t, err)
	checker := &stubChecker{}

	_, err = NewPipeline(nil, provider, store.Staging, store.SourceState, svc)
	assert.ErrorIs(t, err, ErrCheckerRequired)

	_, err = NewPipeline(checker, nil, store.Staging, store.SourceState, svc)
	assert.ErrorIs(t, err, ErrProviderRequired)

	_, err = NewPipeline(checker, provider, nil, store.SourceState, svc)
	assert.ErrorIs(t, err, ErrStagingRequired)

	_, err = NewPipeline(checker, provider, store.Staging, nil, svc)
	assert.ErrorIs(t, err, ErrSourcesRequired)

	_, err = NewPipeline(checker, provider, store.Staging, store.SourceState, nil)
	assert.ErrorIs(t, err, ErrSubmitterRequired)
}

func TestPipelineOptionValidation(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider := mock.NewMockProvider()
	notifier := &captureNotifier{}
	svc, err := review.NewService(store.Staging, store.Dedup, notifier)
	require.NoError(t, err)
	checker := &stubChecker{}

	build := func(opts ...Option) error {
		p, buildErr := NewPipeline(checker, provider, store.Staging, store.SourceState, svc, opts...)
		if p != nil {
			p.Release()
		}
		return buildErr
	}

	assert.NoError(t, build(WithPoolSize(0)), "pool size clamps to 1")
	assert.Error(t, build(WithStageTimeout(0)))
	assert.ErrorIs(t, build(WithRetry(0, time.Second)), ErrInvalidMaxAttempts)
	assert.Error(t, build(WithRetry(2, 0)))
	assert.Error(t, build(WithGate(nil)))
	assert.Error(t, build(WithScorer(nil)))
	assert.NoError(t, build(WithLogger(nil)), "nil logger falls back to the default")
}
