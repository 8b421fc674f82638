package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/storage"
)

func testStagingItem(title, sourceURL string, detectedAt time.Time) *core.StagingItem {
	return &core.StagingItem{
		Fingerprint:   core.NewFingerprint(title, sourceURL),
		Type:          core.TypeNews,
		Title:         title,
		Body:          "body for " + title,
		Status:        core.StatusPending,
		DetectionType: core.DetectionNew,
		Score:         55,
		Category:      "banking",
		Priority:      core.PriorityNormal,
		SourceName:    "Test Source",
		SourceURL:     sourceURL,
		DetectedAt:    detectedAt,
	}
}

func TestStagingCreateAndGet(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	item := testStagingItem("EBA updates outsourcing guidelines", "https://eba.europa.eu/news/1", time.Now().UTC())
	item.Status = "" // Create must default to pending

	stored, created, err := store.Staging.Create(ctx, item)
	if err != nil {
		t.Fatalf("Failed to create staging item: %v", err)
	}
	if !created {
		t.Fatal("Expected created=true for a new fingerprint")
	}
	if stored.Id != core.IDFromFingerprint(item.Fingerprint) {
		t.Fatalf("Expected ID derived from fingerprint, got %d", stored.Id)
	}
	if stored.Status != core.StatusPending {
		t.Fatalf("Expected pending status, got %q", stored.Status)
	}
	if stored.InsertedAt.IsZero() {
		t.Fatal("Expected InsertedAt to be set")
	}

	retrieved, err := store.Staging.Get(ctx, stored.Id)
	if err != nil {
		t.Fatalf("Failed to get staging item: %v", err)
	}
	if retrieved.Title != item.Title {
		t.Fatalf("Expected title %q, got %q", item.Title, retrieved.Title)
	}

	byFp, err := store.Staging.GetByFingerprint(ctx, item.Fingerprint)
	if err != nil {
		t.Fatalf("Failed to get by fingerprint: %v", err)
	}
	if byFp.Id != stored.Id {
		t.Fatalf("Expected same item by fingerprint, got ID %d", byFp.Id)
	}
}

func TestStagingCreateIdempotent(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	first := testStagingItem("FCA fines trading firm", "https://fca.org.uk/news/9", time.Now().UTC())
	first.Score = 80

	stored, created, err := store.Staging.Create(ctx, first)
	if err != nil {
		t.Fatalf("Failed to create first item: %v", err)
	}
	if !created {
		t.Fatal("Expected created=true on first create")
	}

	// Same fingerprint, different payload: the stored item wins
	second := testStagingItem("FCA fines trading firm", "https://fca.org.uk/news/9", time.Now().UTC())
	second.Score = 10
	second.Body = "a different body"

	existing, created, err := store.Staging.Create(ctx, second)
	if err != nil {
		t.Fatalf("Failed on second create: %v", err)
	}
	if created {
		t.Fatal("Expected created=false for an existing fingerprint")
	}
	if existing.Score != stored.Score {
		t.Fatalf("Expected stored score %d, got %d", stored.Score, existing.Score)
	}
	if existing.Body != stored.Body {
		t.Fatal("Expected stored body to be returned unchanged")
	}
}

func TestStagingGetMissing(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	_, err = store.Staging.Get(context.Background(), core.ID(12345))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestStagingListByStatus(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)

	older := testStagingItem("Older item", "https://example.org/a", base)
	newer := testStagingItem("Newer item", "https://example.org/b", base.Add(2*time.Hour))
	update := testStagingItem("Regulation change", "https://example.org/c", base.Add(time.Hour))
	update.Type = core.TypeRegulationUpdate

	for _, item := range []*core.StagingItem{older, newer, update} {
		if _, _, err := store.Staging.Create(ctx, item); err != nil {
			t.Fatalf("Failed to create item %q: %v", item.Title, err)
		}
	}

	// Move one out of pending
	if _, err := store.Staging.Transition(ctx, older.Id, core.EventApprove, ""); err != nil {
		t.Fatalf("Failed to approve item: %v", err)
	}

	pending, err := store.Staging.ListByStatus(ctx, core.StatusPending)
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending items, got %d", len(pending))
	}
	// Newest first
	if pending[0].Title != "Newer item" {
		t.Fatalf("Expected newest first, got %q", pending[0].Title)
	}

	approved, err := store.Staging.ListByStatus(ctx, core.StatusApproved)
	if err != nil {
		t.Fatalf("Failed to list approved: %v", err)
	}
	if len(approved) != 1 || approved[0].Title != "Older item" {
		t.Fatalf("Expected the approved item, got %v", approved)
	}

	updatesOnly, err := store.Staging.ListByStatusAndType(ctx, core.StatusPending, core.TypeRegulationUpdate)
	if err != nil {
		t.Fatalf("Failed to list by status and type: %v", err)
	}
	if len(updatesOnly) != 1 || updatesOnly[0].Title != "Regulation change" {
		t.Fatalf("Expected only the regulation update, got %v", updatesOnly)
	}
}

func TestStagingTransitionLifecycle(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	item := testStagingItem("ECB consults on digital euro", "https://ecb.europa.eu/press/1", time.Now().UTC())
	if _, _, err := store.Staging.Create(ctx, item); err != nil {
		t.Fatalf("Failed to create item: %v", err)
	}

	approved, err := store.Staging.Transition(ctx, item.Id, core.EventApprove, "looks good")
	if err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}
	if approved.Status != core.StatusApproved {
		t.Fatalf("Expected approved, got %q", approved.Status)
	}
	if approved.ResolvedAt.IsZero() {
		t.Fatal("Expected ResolvedAt on terminal transition")
	}
	if approved.ReviewNotes != "looks good" {
		t.Fatalf("Expected notes recorded, got %q", approved.ReviewNotes)
	}

	published, err := store.Staging.Transition(ctx, item.Id, core.EventPublish, "")
	if err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}
	if published.Status != core.StatusApproved {
		t.Fatalf("Expected approved after publish, got %q", published.Status)
	}
	if published.PublishedAt.IsZero() {
		t.Fatal("Expected PublishedAt after publish event")
	}

	// Terminal states admit no reviewer events
	_, err = store.Staging.Transition(ctx, item.Id, core.EventApprove, "")
	if !core.IsInvalidTransition(err) {
		t.Fatalf("Expected InvalidTransitionError, got %v", err)
	}

	// The failed transition left the item untouched
	current, err := store.Staging.Get(ctx, item.Id)
	if err != nil {
		t.Fatalf("Failed to re-read item: %v", err)
	}
	if current.Status != core.StatusApproved {
		t.Fatalf("Expected status unchanged, got %q", current.Status)
	}

	// Admin override still works from terminal states
	archived, err := store.Staging.Transition(ctx, item.Id, core.EventArchive, "")
	if err != nil {
		t.Fatalf("Failed to archive: %v", err)
	}
	if archived.Status != core.StatusArchived {
		t.Fatalf("Expected archived, got %q", archived.Status)
	}
}

func TestStagingTransitionReworkCycle(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	item := testStagingItem("MAS licensing update", "https://mas.gov.sg/news/3", time.Now().UTC())
	if _, _, err := store.Staging.Create(ctx, item); err != nil {
		t.Fatalf("Failed to create item: %v", err)
	}

	changes, err := store.Staging.Transition(ctx, item.Id, core.EventRequestChanges, "tighten the headline")
	if err != nil {
		t.Fatalf("Failed to request changes: %v", err)
	}
	if changes.Status != core.StatusChangesRequested {
		t.Fatalf("Expected changes_requested, got %q", changes.Status)
	}
	if !changes.ResolvedAt.IsZero() {
		t.Fatal("changes_requested is not terminal, ResolvedAt must stay zero")
	}

	back, err := store.Staging.Transition(ctx, item.Id, core.EventResubmit, "")
	if err != nil {
		t.Fatalf("Failed to resubmit: %v", err)
	}
	if back.Status != core.StatusPending {
		t.Fatalf("Expected pending after resubmit, got %q", back.Status)
	}
}

func TestStagingTransitionMissing(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	_, err = store.Staging.Transition(context.Background(), core.ID(999), core.EventApprove, "")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestStagingUpdatePreservesLifecycle(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	item := testStagingItem("BoE stress test results", "https://bankofengland.co.uk/news/5", time.Now().UTC())
	stored, _, err := store.Staging.Create(ctx, item)
	if err != nil {
		t.Fatalf("Failed to create item: %v", err)
	}
	insertedAt := stored.InsertedAt

	if _, err := store.Staging.Transition(ctx, stored.Id, core.EventApprove, ""); err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}

	edited := *stored
	edited.Body = "revised body"
	edited.Status = core.StatusPending // must be ignored

	updated, err := store.Staging.Update(ctx, &edited)
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if updated.Body != "revised body" {
		t.Fatalf("Expected updated body, got %q", updated.Body)
	}
	if updated.Status != core.StatusApproved {
		t.Fatalf("Update must not change status, got %q", updated.Status)
	}
	if !updated.InsertedAt.Equal(insertedAt) {
		t.Fatal("Update must preserve InsertedAt")
	}
	if updated.ResolvedAt.IsZero() {
		t.Fatal("Update must preserve ResolvedAt")
	}
}

func TestStagingUpdateMissing(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ghost := testStagingItem("Ghost", "https://example.org/ghost", time.Now().UTC())
	ghost.Id = core.IDFromFingerprint(ghost.Fingerprint)

	_, err = store.Staging.Update(context.Background(), ghost)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
