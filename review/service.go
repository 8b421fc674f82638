// Package review runs the human approval workflow. It submits staged
// items to the reviewer channel and applies reviewer decisions to the
// staging store. The dedup record for an item is written here, exactly
// once, when the item first enters a terminal status.
package review

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/notify"
	"github.com/coverwire/curator/storage"
)

// PublishFunc triggers the immediate publish of a just-approved item.
// The reconciliation sweep covers missed triggers, so a failure here is
// logged and never reverts the approval.
type PublishFunc func(ctx context.Context, item *core.StagingItem) error

// Service coordinates review submissions and reviewer decisions.
type Service struct {
	staging  storage.StagingRepository
	dedup    storage.DedupRepository
	notifier notify.Notifier
	publish  PublishFunc
	logger   *slog.Logger
}

// Option adjusts service construction.
type Option func(*Service)

// WithPublishHook installs the immediate-publish trigger run after an
// approval.
func WithPublishHook(fn PublishFunc) Option {
	return func(s *Service) { s.publish = fn }
}

// NewService creates a review service.
func NewService(staging storage.StagingRepository, dedup storage.DedupRepository, notifier notify.Notifier, opts ...Option) (*Service, error) {
	if staging == nil {
		return nil, fmt.Errorf("staging repository required")
	}
	if dedup == nil {
		return nil, fmt.Errorf("dedup repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}

	s := &Service{
		staging:  staging,
		dedup:    dedup,
		notifier: notifier,
		logger:   slog.Default().With("component", "review"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SubmitForReview sends the reviewer preview for a staged item and
// records the notification ref on it. The send is fire-and-forget from
// the pipeline's point of view: on failure the item stays staged and
// reviewable, and the error is returned only so the caller can count it.
func (s *Service) SubmitForReview(ctx context.Context, item *core.StagingItem) (string, error) {
	ref, err := s.notifier.SendPreview(ctx, item)
	if err != nil {
		s.logger.Warn("review notification failed",
			"id", uint64(item.Id), "err", err)
		return "", fmt.Errorf("notify reviewer: %w", err)
	}

	item.NotificationRef = ref
	if _, err := s.staging.Update(ctx, item); err != nil {
		// The preview is already out; a missing ref only degrades tracing.
		s.logger.Warn("could not record notification ref",
			"id", uint64(item.Id), "ref", ref, "err", err)
	}

	s.logger.Info("submitted for review",
		"id", uint64(item.Id), "ref", ref, "priority", string(item.Priority))
	return ref, nil
}

// HandleReviewerAction applies a reviewer decision to an item. On first
// entry into a terminal status the item's dedup record is written; an
// approval additionally fires the immediate-publish hook.
func (s *Service) HandleReviewerAction(ctx context.Context, id core.ID, action, notes string) (*core.StagingItem, error) {
	event, err := core.ParseEvent(action)
	if err != nil {
		return nil, err
	}
	if event == core.EventPublish {
		// Publish is driven by the publisher, not by reviewers.
		return nil, fmt.Errorf("%w: %q is not a reviewer action", core.ErrUnknownEvent, action)
	}

	before, err := s.staging.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", uint64(id), err)
	}

	item, err := s.staging.Transition(ctx, id, event, notes)
	if err != nil {
		if core.IsInvalidTransition(err) {
			s.logger.Error("invalid reviewer transition",
				"id", uint64(id), "from", before.Status.String(), "action", action)
		}
		return nil, err
	}

	s.logger.Info("reviewer action applied",
		"id", uint64(id), "action", action,
		"from", before.Status.String(), "to", item.Status.String())

	// ResolvedAt is stamped by the store on first terminal entry only.
	if before.ResolvedAt.IsZero() && !item.ResolvedAt.IsZero() {
		s.writeDedupRecord(ctx, item)
	}

	if event == core.EventApprove && s.publish != nil {
		if err := s.publish(ctx, item); err != nil {
			// The sweep publishes it later; the approval stands.
			s.logger.Warn("immediate publish failed",
				"id", uint64(id), "err", err)
		} else if refreshed, err := s.staging.Get(ctx, id); err == nil {
			item = refreshed
		}
	}

	return item, nil
}

// PendingReviews lists items awaiting review, newest first.
func (s *Service) PendingReviews(ctx context.Context) ([]*core.StagingItem, error) {
	return s.staging.ListByStatus(ctx, core.StatusPending)
}

// ListByStatus lists items in a given lifecycle state, newest first,
// optionally filtered by staging type.
func (s *Service) ListByStatus(ctx context.Context, status core.Status, stagingType core.StagingType) ([]*core.StagingItem, error) {
	if stagingType != "" {
		return s.staging.ListByStatusAndType(ctx, status, stagingType)
	}
	return s.staging.ListByStatus(ctx, status)
}

// Item retrieves one staging item.
func (s *Service) Item(ctx context.Context, id core.ID) (*core.StagingItem, error) {
	return s.staging.Get(ctx, id)
}

// writeDedupRecord persists the similarity-index record for a resolved
// item. Writing only here keeps unresolved and failed items out of the
// index; the upsert is a no-op when the fingerprint is already present.
func (s *Service) writeDedupRecord(ctx context.Context, item *core.StagingItem) {
	if len(item.Vector) == 0 {
		// The dedup check was skipped for this item; there is no
		// embedding to index.
		s.logger.Warn("no embedding captured, dedup record skipped",
			"id", uint64(item.Id))
		return
	}

	publishedAt := item.PublishedSource
	if publishedAt.IsZero() {
		publishedAt = item.DetectedAt
	}

	_, created, err := s.dedup.Upsert(ctx, &core.DedupRecord{
		Fingerprint: item.Fingerprint,
		Vector:      item.Vector,
		Category:    item.Category,
		PublishedAt: publishedAt,
	})
	if err != nil {
		s.logger.Error("dedup record write failed",
			"id", uint64(item.Id), "fingerprint", string(item.Fingerprint), "err", err)
		return
	}
	if created {
		s.logger.Debug("dedup record written", "fingerprint", string(item.Fingerprint))
	}
}
