// Package pipeline orchestrates one batch of candidates through duplicate
// detection, heuristic triage, provider validation, enrichment, staging
// and review submission. Workers process candidates concurrently; within
// one candidate the stages run strictly in order, and every per-item
// failure converts to a per-item outcome rather than aborting the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/coverwire/curator/ai"
	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/dedup"
	"github.com/coverwire/curator/storage"
	"github.com/coverwire/curator/triage"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"
)

const (
	// DefaultStageTimeout bounds each per-item stage, retries included.
	DefaultStageTimeout = 30 * time.Second

	// DefaultRetryAttempts bounds enrichment attempts per candidate.
	DefaultRetryAttempts = 2

	// DefaultRetryBaseDelay seeds the backoff between retry attempts.
	DefaultRetryBaseDelay = 2 * time.Second

	// validatorAttempts is fixed: one retry after a transient failure,
	// then the candidate is rejected conservatively.
	validatorAttempts = 2
)

// DuplicateChecker flags candidates semantically near-identical to
// recently processed content. Satisfied by dedup.Deduplicator.
type DuplicateChecker interface {
	Check(ctx context.Context, candidate core.CandidateItem) (dedup.Result, error)
}

// Submitter sends a staged item out for human review and records the
// notification ref on it. Satisfied by review.Service.
type Submitter interface {
	SubmitForReview(ctx context.Context, item *core.StagingItem) (string, error)
}

// Pipeline carries candidates from source adapters into the staging
// store. It owns a bounded worker pool and per-provider rate limiters;
// storage and provider clients are shared and owned by the caller.
type Pipeline struct {
	checker   DuplicateChecker
	scorer    *triage.Scorer
	gate      *triage.Gate
	validator ai.Validator
	writer    ai.Writer
	staging   storage.StagingRepository
	sources   storage.SourceStateRepository
	submitter Submitter

	pool           *ants.Pool
	reasonLimiter  *rate.Limiter
	embedLimiter   *rate.Limiter
	stageTimeout   time.Duration
	retryAttempts  int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithGate overrides the default admission gate.
func WithGate(gate *triage.Gate) Option {
	return func(p *Pipeline) error {
		if gate == nil {
			return errors.New("gate must not be nil")
		}
		p.gate = gate
		return nil
	}
}

// WithScorer overrides the default scoring ruleset.
func WithScorer(scorer *triage.Scorer) Option {
	return func(p *Pipeline) error {
		if scorer == nil {
			return errors.New("scorer must not be nil")
		}
		p.scorer = scorer
		return nil
	}
}

// WithStageTimeout bounds each per-item stage, retries included.
func WithStageTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout <= 0 {
			return fmt.Errorf("stage timeout must be positive, got %v", timeout)
		}
		p.stageTimeout = timeout
		return nil
	}
}

// WithRetry sets the enrichment retry budget and the base backoff delay
// shared by all retried stages.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		if baseDelay <= 0 {
			return fmt.Errorf("base delay must be positive, got %v", baseDelay)
		}
		p.retryAttempts = maxAttempts
		p.retryBaseDelay = baseDelay
		return nil
	}
}

// WithRateLimiters installs per-provider token buckets. Every validator
// and writer call waits on reasoning; every dedup embedding call waits on
// embedding. A nil limiter leaves that provider ungated.
func WithRateLimiters(reasoning, embedding *rate.Limiter) Option {
	return func(p *Pipeline) error {
		if reasoning != nil {
			p.reasonLimiter = reasoning
		}
		if embedding != nil {
			p.embedLimiter = embedding
		}
		return nil
	}
}

// NewPipeline creates a batch orchestrator over the given stages.
func NewPipeline(
	checker DuplicateChecker,
	provider ai.Provider,
	staging storage.StagingRepository,
	sources storage.SourceStateRepository,
	submitter Submitter,
	opts ...Option,
) (*Pipeline, error) {
	if checker == nil {
		return nil, ErrCheckerRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if staging == nil {
		return nil, ErrStagingRequired
	}
	if sources == nil {
		return nil, ErrSourcesRequired
	}
	if submitter == nil {
		return nil, ErrSubmitterRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	gate, err := triage.NewGate(triage.DefaultMinScore, triage.DefaultAutoApproveScore)
	if err != nil {
		pool.Release()
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		checker:        checker,
		scorer:         triage.NewScorer(),
		gate:           gate,
		validator:      provider.Validator(),
		writer:         provider.Writer(),
		staging:        staging,
		sources:        sources,
		submitter:      submitter,
		pool:           pool,
		reasonLimiter:  rate.NewLimiter(rate.Inf, 0),
		embedLimiter:   rate.NewLimiter(rate.Inf, 0),
		stageTimeout:   DefaultStageTimeout,
		retryAttempts:  DefaultRetryAttempts,
		retryBaseDelay: DefaultRetryBaseDelay,
		logger:         slog.Default().With("component", "pipeline"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Run carries every candidate through the pipeline and returns the batch
// summary. The batch deadline comes from ctx: candidates not yet started
// when it passes are recorded as skipped, while started candidates finish
// under their own stage timeouts.
func (p *Pipeline) Run(ctx context.Context, candidates []core.CandidateItem) *BatchResult {
	result := &BatchResult{
		RunId:   uuid.NewString(),
		Started: time.Now().UTC(),
		Total:   len(candidates),
	}

	logger := p.logger.With("runId", result.RunId)
	logger.Info("batch started", "candidates", len(candidates))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	record := func(item ItemResult) {
		mu.Lock()
		result.add(item)
		mu.Unlock()
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			record(ItemResult{
				Fingerprint: candidate.Fingerprint,
				Title:       candidate.Title,
				Outcome:     OutcomeSkipped,
				Detail:      "batch deadline reached before start",
			})
			continue
		}

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			record(p.processCandidate(ctx, logger, candidate))
		})
		if err != nil {
			wg.Done()
			record(ItemResult{
				Fingerprint: candidate.Fingerprint,
				Title:       candidate.Title,
				Outcome:     OutcomeFailed,
				Stage:       "submit",
				Detail:      err.Error(),
			})
		}
	}

	wg.Wait()
	result.Elapsed = time.Since(result.Started)

	logger.Info("batch complete",
		"total", result.Total,
		"staged", result.Staged,
		"notified", result.Notified,
		"deduped", result.Deduped,
		"scoreRejected", result.ScoreRejected,
		"validatorRejected", result.ValidatorRejected,
		"enrichmentFailed", result.EnrichmentFailed,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"elapsed", result.Elapsed)

	return result
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// stageContext derives a per-stage context. It survives batch
// cancellation so a started candidate always finishes under its own
// timeout.
func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), p.stageTimeout)
}

// processCandidate runs the per-item stage sequence on one worker.
func (p *Pipeline) processCandidate(ctx context.Context, logger *slog.Logger, candidate core.CandidateItem) ItemResult {
	res := ItemResult{Fingerprint: candidate.Fingerprint, Title: candidate.Title}

	// The worker may pick the candidate up after the batch deadline.
	if ctx.Err() != nil {
		res.Outcome = OutcomeSkipped
		res.Detail = "batch deadline reached before start"
		return res
	}

	logger = logger.With("fingerprint", candidate.Fingerprint)

	check, err := p.duplicateCheck(ctx, candidate)
	if err != nil {
		logger.Error("duplicate check failed", "err", err)
		res.Outcome = OutcomeFailed
		res.Stage = "dedup"
		res.Detail = err.Error()
		return res
	}
	if check.IsDuplicate {
		res.Outcome = OutcomeDeduped
		res.Detail = fmt.Sprintf("matches %s (similarity %.3f)", check.MatchedFingerprint, check.Similarity)
		return res
	}

	// Scoring and admission are local and synchronous.
	scored := p.scorer.Score(candidate)
	decision := p.gate.Admit(scored)
	logger.Debug("candidate scored", "score", scored.Score, "category", scored.Category, "decision", decision.String())

	if decision == triage.DecisionReject {
		res.Outcome = OutcomeScoreRejected
		res.Detail = fmt.Sprintf("score %d: %s", scored.Score, scored.Reason)
		return res
	}

	if decision == triage.DecisionSendToValidator {
		verdict := p.validate(ctx, logger, scored)
		if !verdict.Approved {
			res.Outcome = OutcomeValidatorRejected
			res.Detail = verdict.Notes
			return res
		}
		if verdict.CategoryOverride != "" {
			scored.Category = verdict.CategoryOverride
		}
		if verdict.PriorityOverride != "" {
			scored.Priority = verdict.PriorityOverride
		}
	}

	article, err := p.enrich(ctx, scored)
	if err != nil {
		logger.Warn("enrichment failed, candidate left for a later run", "err", err)
		res.Outcome = OutcomeEnrichmentFailed
		res.Stage = "enrich"
		res.Detail = err.Error()
		return res
	}

	item, created, err := p.stage(ctx, article, check.Vector)
	if err != nil {
		logger.Error("staging failed", "err", err)
		res.Outcome = OutcomeFailed
		res.Stage = "stage"
		res.Detail = err.Error()
		return res
	}

	res.Outcome = OutcomeStaged
	res.ItemId = item.Id
	if !created {
		res.Detail = "already staged"
	}
	logger.Info("candidate staged", "itemId", item.Id, "score", scored.Score, "priority", scored.Priority, "new", created)

	// Send the review preview unless an earlier run already did.
	if item.NotificationRef == "" {
		sctx, cancel := p.stageContext(ctx)
		_, err = p.submitter.SubmitForReview(sctx, item)
		cancel()
		if err == nil {
			res.Notified = true
		}
		// A failed send is already logged by the review service; the item
		// stays staged and reviewable through the API.
	}

	return res
}

// duplicateCheck embeds the candidate and queries the similarity index
// under the embedding provider's rate limit.
func (p *Pipeline) duplicateCheck(ctx context.Context, candidate core.CandidateItem) (dedup.Result, error) {
	sctx, cancel := p.stageContext(ctx)
	defer cancel()

	if err := p.embedLimiter.Wait(sctx); err != nil {
		return dedup.Result{}, err
	}
	return p.checker.Check(sctx, candidate)
}

// validate asks the reasoning provider for a verdict on a borderline
// candidate. Any provider failure comes back as a conservative
// rejection; validation never fails an item, let alone a batch. Only
// overrides naming a known category or priority survive into the
// decision.
func (p *Pipeline) validate(ctx context.Context, logger *slog.Logger, scored core.ScoredItem) core.ValidationDecision {
	sctx, cancel := p.stageContext(ctx)
	defer cancel()

	req := ai.ValidationRequest{
		Title:    scored.Candidate.Title,
		Summary:  scored.Candidate.Summary,
		Category: scored.Category,
		Score:    scored.Score,
		Reason:   scored.Reason,
	}

	var verdict ai.ValidationResult
	err := RetryWithBackoff(sctx, func() error {
		if lerr := p.reasonLimiter.Wait(sctx); lerr != nil {
			return lerr
		}
		v, verr := p.validator.Validate(sctx, req)
		if verr != nil {
			return verr
		}
		verdict = v
		return nil
	}, validatorAttempts, p.retryBaseDelay)

	if err != nil {
		if core.IsMalformed(err) {
			logger.Warn("validator response unparseable, rejecting conservatively", "err", err)
			return core.ValidationDecision{Notes: "validator response unparseable"}
		}
		logger.Warn("validator unavailable, rejecting conservatively", "err", err)
		return core.ValidationDecision{Notes: "validator unavailable: " + err.Error()}
	}

	decision := core.ValidationDecision{
		Approved: verdict.Approved,
		Notes:    verdict.Notes,
	}
	if verdict.Category != "" && ai.ValidCategory(verdict.Category) {
		decision.CategoryOverride = verdict.Category
	}
	if verdict.Priority != "" && ai.ValidPriority(verdict.Priority) {
		decision.PriorityOverride = core.Priority(verdict.Priority)
	}
	return decision
}

// enrich drafts the long-form article under the reasoning provider's
// rate limit, retrying transient failures within the stage timeout.
func (p *Pipeline) enrich(ctx context.Context, scored core.ScoredItem) (core.EnrichedArticle, error) {
	sctx, cancel := p.stageContext(ctx)
	defer cancel()

	req := ai.WriteRequest{
		Title:      scored.Candidate.Title,
		Summary:    scored.Candidate.Summary,
		Category:   scored.Category,
		SourceName: scored.Candidate.SourceName,
		SourceURL:  scored.Candidate.SourceURL,
	}

	var draft ai.Draft
	err := RetryWithBackoff(sctx, func() error {
		if lerr := p.reasonLimiter.Wait(sctx); lerr != nil {
			return lerr
		}
		d, werr := p.writer.Write(sctx, req)
		if werr != nil {
			return werr
		}
		draft = d
		return nil
	}, p.retryAttempts, p.retryBaseDelay)
	if err != nil {
		return core.EnrichedArticle{}, err
	}

	return core.EnrichedArticle{
		Scored:   scored,
		Headline: draft.Headline,
		Body:     draft.Body,
		Tags:     draft.Tags,
	}, nil
}

// stage persists the StagingItem and advances the source-state tracker.
func (p *Pipeline) stage(ctx context.Context, article core.EnrichedArticle, vector []float32) (*core.StagingItem, bool, error) {
	sctx, cancel := p.stageContext(ctx)
	defer cancel()

	candidate := article.Scored.Candidate
	hash := core.ContentHash(candidate.Title, candidate.Summary)
	detection, stagingType := p.detect(sctx, candidate, hash)

	item := &core.StagingItem{
		Fingerprint:     candidate.Fingerprint,
		Type:            stagingType,
		Title:           article.Headline,
		Body:            article.Body,
		Tags:            article.Tags,
		DetectionType:   detection,
		Score:           article.Scored.Score,
		Category:        article.Scored.Category,
		Priority:        article.Scored.Priority,
		SourceName:      candidate.SourceName,
		SourceURL:       candidate.SourceURL,
		Vector:          vector,
		PublishedSource: candidate.PublishedAt,
		DetectedAt:      time.Now().UTC(),
	}
	if item.Title == "" {
		item.Title = candidate.Title
	}

	stored, created, err := p.staging.Create(sctx, item)
	if err != nil {
		return nil, false, err
	}

	state := &core.SourceState{
		SourceURL:   candidate.SourceURL,
		ContentHash: hash,
	}
	if err := p.sources.Put(sctx, state); err != nil {
		// Detection metadata only; the staged item is already durable.
		p.logger.Warn("source state update failed", "sourceUrl", candidate.SourceURL, "err", err)
	}

	return stored, created, nil
}

// detect classifies the candidate against the source-state tracker: a
// URL never seen is NEW, a tracked URL whose content hash changed is
// UPDATED. Updates to tracked sources stage as regulation updates.
func (p *Pipeline) detect(ctx context.Context, candidate core.CandidateItem, hash string) (core.DetectionType, core.StagingType) {
	state, err := p.sources.Get(ctx, candidate.SourceURL)
	switch {
	case err == nil && state.ContentHash != hash:
		return core.DetectionUpdated, core.TypeRegulationUpdate
	case err == nil:
		return core.DetectionNew, core.TypeNews
	case errors.Is(err, storage.ErrNotFound):
		return core.DetectionNew, core.TypeNews
	default:
		p.logger.Warn("source state lookup failed, assuming new content", "sourceUrl", candidate.SourceURL, "err", err)
		return core.DetectionNew, core.TypeNews
	}
}
