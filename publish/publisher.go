// Package publish pushes approved items to the knowledge-ingestion
// endpoint, keyed by content fingerprint. A local published ledger makes
// the operation idempotent regardless of server-side behavior, and a
// periodic sweep re-publishes approved items whose immediate publish was
// lost to a restart.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/storage"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 1 << 20
)

// Outcome reports how a publish call resolved.
type Outcome int

const (
	// Published means the item was pushed upstream and recorded in the ledger.
	Published Outcome = iota
	// AlreadyPublished means the ledger already held the fingerprint and
	// nothing was sent.
	AlreadyPublished
)

func (o Outcome) String() string {
	switch o {
	case Published:
		return "published"
	case AlreadyPublished:
		return "already_published"
	default:
		return "unknown"
	}
}

// document is the upsert body sent to the ingestion endpoint.
type document struct {
	Fingerprint string    `json:"fingerprint"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Tags        []string  `json:"tags,omitempty"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	SourceName  string    `json:"source_name"`
	SourceURL   string    `json:"source_url"`
	PublishedAt time.Time `json:"published_at"`
	Score       int       `json:"score"`
}

// ack is the endpoint's optional response to an upsert.
type ack struct {
	Ref string `json:"ref"`
}

// Publisher performs idempotent upserts against the ingestion endpoint
// and keeps the local ledger and staging stamps in step.
type Publisher struct {
	endpoint string
	client   *http.Client
	ledger   storage.PublishedRepository
	staging  storage.StagingRepository
	logger   *slog.Logger
}

// Option adjusts publisher construction.
type Option func(*Publisher) error

// WithHTTPClient substitutes the HTTP client used for upserts.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Publisher) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		p.client = client
		return nil
	}
}

// NewPublisher creates a publisher targeting the given endpoint base URL.
func NewPublisher(endpoint string, ledger storage.PublishedRepository, staging storage.StagingRepository, opts ...Option) (*Publisher, error) {
	if endpoint == "" {
		return nil, core.NewConfigurationError("publish.endpoint", errors.New("is required"))
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, core.NewConfigurationError("publish.endpoint", err)
	}
	if ledger == nil {
		return nil, errors.New("publish: ledger repository is required")
	}
	if staging == nil {
		return nil, errors.New("publish: staging repository is required")
	}

	p := &Publisher{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: defaultTimeout},
		ledger:   ledger,
		staging:  staging,
		logger:   slog.Default().With("component", "publish"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Publish pushes one approved item upstream. Publishing a fingerprint
// already present in the ledger is a no-op success. A missing staging
// stamp for a ledger entry is repaired here, which closes the crash
// window between the ledger write and the publish transition.
func (p *Publisher) Publish(ctx context.Context, item *core.StagingItem) (Outcome, error) {
	if item.Status != core.StatusApproved {
		return 0, fmt.Errorf("publish: item %d is %q, only approved items publish", uint64(item.Id), item.Status)
	}

	exists, err := p.ledger.Exists(ctx, item.Fingerprint)
	if err != nil {
		return 0, fmt.Errorf("check ledger: %w", err)
	}
	if exists {
		if item.PublishedAt.IsZero() {
			if _, err := p.staging.Transition(ctx, item.Id, core.EventPublish, ""); err != nil {
				p.logger.Warn("could not restamp published item",
					"id", uint64(item.Id), "err", err)
			}
		}
		return AlreadyPublished, nil
	}

	ackRef, err := p.upsert(ctx, item)
	if err != nil {
		return 0, err
	}

	if err := p.ledger.Record(ctx, &core.PublishedRecord{
		Fingerprint: item.Fingerprint,
		ItemId:      item.Id,
		PublishedAt: time.Now().UTC(),
		AckRef:      ackRef,
	}); err != nil {
		return 0, fmt.Errorf("record ledger entry: %w", err)
	}

	if _, err := p.staging.Transition(ctx, item.Id, core.EventPublish, ""); err != nil {
		// The upstream push and the ledger entry stand; the sweep
		// restamps on its next pass.
		p.logger.Error("publish succeeded but staging stamp failed",
			"id", uint64(item.Id), "err", err)
		return Published, nil
	}

	p.logger.Info("published",
		"id", uint64(item.Id),
		"fingerprint", string(item.Fingerprint),
		"ack", ackRef,
	)
	return Published, nil
}

// Close releases idle HTTP connections.
func (p *Publisher) Close() {
	p.client.CloseIdleConnections()
}

func (p *Publisher) upsert(ctx context.Context, item *core.StagingItem) (string, error) {
	body, err := json.Marshal(document{
		Fingerprint: string(item.Fingerprint),
		Title:       item.Title,
		Body:        item.Body,
		Tags:        item.Tags,
		Category:    item.Category,
		Type:        string(item.Type),
		SourceName:  item.SourceName,
		SourceURL:   item.SourceURL,
		PublishedAt: item.PublishedSource,
		Score:       item.Score,
	})
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	target := fmt.Sprintf("%s/documents/%s", p.endpoint, item.Fingerprint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", core.NewTransientError(fmt.Errorf("upsert %s: %w", item.Fingerprint, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", core.NewTransientError(fmt.Errorf("read upsert response: %w", err))
	}

	if err := core.ClassifyHTTPStatus(resp.StatusCode, retryAfterHint(resp.Header), respBody); err != nil {
		return "", fmt.Errorf("upsert %s: %w", item.Fingerprint, err)
	}

	var a ack
	if len(respBody) > 0 && json.Unmarshal(respBody, &a) == nil {
		return a.Ref, nil
	}
	return "", nil
}

// retryAfterHint reads Retry-After as a second count, zero when absent
// or unparseable.
func retryAfterHint(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
