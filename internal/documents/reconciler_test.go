package documents

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedPending(t *testing.T, repo *MemoryRepo) Document {
	t.Helper()
	doc := Document{
		ID:          "doc-1",
		OwnerEmail:  "a@example.com",
		DisplayName: "report.pdf",
		StorageKey:  "key-1-report.pdf",
		Status:      StatusPending,
		UploadedAt:  time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return doc
}

func TestReconcilerMarkSuccessPublishesAfterWrite(t *testing.T) {
	repo := NewMemoryRepo()
	hub := NewHub()
	rec := &Reconciler{Repo: repo, Updates: hub}
	doc := seedPending(t, repo)

	updates, cancel := hub.Subscribe(doc.OwnerEmail)
	defer cancel()

	if err := rec.MarkSuccess(context.Background(), doc.StorageKey); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}

	got, err := repo.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", got.Status)
	}

	select {
	case update := <-updates:
		if update.DocumentID != doc.ID || update.Status != StatusSuccess {
			t.Fatalf("unexpected update: %+v", update)
		}
		// By the time the update is visible, the record is already written.
		stored, err := repo.GetByStorageKey(context.Background(), update.StorageKey)
		if err != nil {
			t.Fatalf("GetByStorageKey: %v", err)
		}
		if stored.Status != update.Status {
			t.Fatalf("update published before write: record %s, update %s", stored.Status, update.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a status update")
	}
}

func TestReconcilerTerminalStatusIsSticky(t *testing.T) {
	repo := NewMemoryRepo()
	hub := NewHub()
	rec := &Reconciler{Repo: repo, Updates: hub}
	doc := seedPending(t, repo)

	if err := rec.MarkError(context.Background(), doc.StorageKey); err != nil {
		t.Fatalf("MarkError: %v", err)
	}

	updates, cancel := hub.Subscribe(doc.OwnerEmail)
	defer cancel()

	// A late success must not overwrite the terminal state or publish.
	if err := rec.MarkSuccess(context.Background(), doc.StorageKey); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}

	got, err := repo.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusError {
		t.Fatalf("expected error status to stick, got %s", got.Status)
	}

	select {
	case update := <-updates:
		t.Fatalf("unexpected update for no-op transition: %+v", update)
	default:
	}
}

func TestReconcilerUnknownStorageKey(t *testing.T) {
	rec := &Reconciler{Repo: NewMemoryRepo(), Updates: NewHub()}

	err := rec.MarkSuccess(context.Background(), "missing-key")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
