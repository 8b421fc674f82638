package core

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for staged items. It is derived from the
// content fingerprint so that re-runs address the same record.
type ID uint64

// Fingerprint is the stable identity of a piece of content, derived from
// the normalized title and source URL. It is the dedup and idempotency
// key across staging, dedup records, and publishing.
type Fingerprint string

// NewFingerprint computes the fingerprint for a title and source URL using
// BLAKE2b hashing. Identical content always produces identical fingerprints.
func NewFingerprint(title, sourceURL string) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(NormalizeContent(title)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(sourceURL))))
	sum := h.Sum(nil)
	return Fingerprint(hex.EncodeToString(sum))
}

// IDFromFingerprint derives the staging item ID from a content fingerprint.
func IDFromFingerprint(fp Fingerprint) ID {
	raw, err := hex.DecodeString(string(fp))
	if err != nil || len(raw) != 8 {
		// Not a canonical fingerprint; fall back to hashing the raw text.
		h, _ := blake2b.New(8, nil)
		h.Write([]byte(fp))
		raw = h.Sum(nil)
	}
	return ID(binary.LittleEndian.Uint64(raw))
}

// ContentHash hashes a candidate's normalized title and summary. It backs
// NEW vs UPDATED detection: a tracked source URL whose content hash changed
// is an update rather than new content.
func ContentHash(title, summary string) string {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(NormalizeContent(title)))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeContent(summary)))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeContent lowercases text and collapses whitespace runs so that
// cosmetic differences do not change fingerprints or embeddings.
func NormalizeContent(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pending := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Priority expresses how urgently a staged item should be reviewed.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// StagingType classifies what kind of content a staged item carries.
type StagingType string

const (
	// TypeRegulationUpdate marks items tracking a change to a known regulation.
	TypeRegulationUpdate StagingType = "regulation-update"
	// TypeNews marks general industry news items.
	TypeNews StagingType = "news"
)

// DetectionType records whether a staged item is brand-new content or a
// change to previously tracked content.
type DetectionType string

const (
	DetectionNew     DetectionType = "NEW"
	DetectionUpdated DetectionType = "UPDATED"
)

// CandidateItem is a raw candidate document produced by a source adapter.
// It is immutable and consumed once per pipeline run.
type CandidateItem struct {
	Title       string
	Summary     string
	SourceURL   string
	SourceName  string
	Category    string
	PublishedAt time.Time // When the source published the item
	FetchedAt   time.Time // When the adapter fetched the item
	Fingerprint Fingerprint
}

// NewCandidateItem builds a candidate with its fingerprint computed from
// the title and source URL.
func NewCandidateItem(title, summary, sourceURL, sourceName, category string, publishedAt, fetchedAt time.Time) CandidateItem {
	return CandidateItem{
		Title:       title,
		Summary:     summary,
		SourceURL:   sourceURL,
		SourceName:  sourceName,
		Category:    category,
		PublishedAt: publishedAt,
		FetchedAt:   fetchedAt,
		Fingerprint: NewFingerprint(title, sourceURL),
	}
}

// ScoredItem is a candidate annotated by the heuristic scorer. Only the
// scorer produces it; it is terminal once scored.
type ScoredItem struct {
	Candidate CandidateItem
	Score     int // 0-100
	Reason    string
	Category  string
	Priority  Priority
}

// ValidationDecision is the validator's verdict on a borderline item.
// Produced at most once per item.
type ValidationDecision struct {
	Approved         bool
	CategoryOverride string   // empty = keep the scorer's category
	PriorityOverride Priority // empty = keep the scorer's priority
	Notes            string
}

// EnrichedArticle is the final long-form content for an admitted item.
type EnrichedArticle struct {
	Scored   ScoredItem
	Headline string
	Body     string // markdown
	Tags     []string
}

// DedupRecord lives in the time-windowed similarity index. It is written
// exactly once per terminal review decision for a fingerprint, never at
// check time.
type DedupRecord struct {
	Fingerprint Fingerprint
	Vector      []float32
	Category    string
	PublishedAt time.Time // Source publication time, bounds the dedup window
	StoredAt    time.Time
}

// DuplicateMatch is a near-duplicate hit from the similarity index.
type DuplicateMatch struct {
	Fingerprint Fingerprint
	Score       float32
}

// StagingItem is the durable record of a candidate that passed the
// admission gate. It is owned by the staging store and destroyed only by
// explicit archival.
type StagingItem struct {
	Id              ID
	Fingerprint     Fingerprint
	Type            StagingType
	Title           string
	Body            string
	Tags            []string
	Status          Status
	DetectionType   DetectionType
	Score           int
	Category        string
	Priority        Priority
	SourceName      string
	SourceURL       string
	Vector          []float32 // Embedding captured at dedup-check time
	PublishedSource time.Time // When the source published the underlying item
	DetectedAt      time.Time
	ResolvedAt      time.Time // Zero until a terminal decision
	PublishedAt     time.Time // Zero until publish succeeds
	ReviewNotes     string
	NotificationRef string // Message ref from the notification channel, empty if the send failed
	InsertedAt      time.Time
	UpdatedAt       time.Time
}

// PublishedRecord is the publisher's local ledger entry for a fingerprint.
// Its presence means the fingerprint has already been pushed upstream.
type PublishedRecord struct {
	Fingerprint Fingerprint
	ItemId      ID
	PublishedAt time.Time
	AckRef      string
}

// SourceState tracks the last content hash seen for a source URL. It
// drives NEW vs UPDATED detection for staged items.
type SourceState struct {
	SourceURL   string
	ContentHash string
	LastSeenAt  time.Time
}
