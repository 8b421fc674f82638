// Package notify delivers review previews for staged items to the
// reviewer channel. Sends are fire-and-forget from the pipeline's point
// of view: a failed delivery is reported to the caller for logging but
// must never roll back staging or dedup state.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/coverwire/curator/core"
)

// Notifier sends a review preview for a staged item and returns a
// channel-specific reference for the delivered message.
type Notifier interface {
	SendPreview(ctx context.Context, item *core.StagingItem) (string, error)
}

// NopNotifier logs previews instead of delivering them. It stands in
// when no channel is configured so batch runs still record a
// notification ref per staged item.
type NopNotifier struct {
	logger *slog.Logger
}

// NewNopNotifier creates a notifier that only logs.
func NewNopNotifier() *NopNotifier {
	return &NopNotifier{
		logger: slog.Default().With("component", "notify"),
	}
}

// SendPreview logs the preview and returns a synthetic reference.
func (n *NopNotifier) SendPreview(ctx context.Context, item *core.StagingItem) (string, error) {
	ref := "log:" + uuid.NewString()
	n.logger.Info("review preview",
		"ref", ref,
		"id", uint64(item.Id),
		"title", item.Title,
		"score", item.Score,
		"priority", string(item.Priority),
	)
	return ref, nil
}
