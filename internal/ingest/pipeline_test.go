package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"docsearch-backend/internal/documents"
	"docsearch-backend/internal/search"
	"docsearch-backend/internal/shared/resilience"
	"docsearch-backend/internal/shared/storage/object"
)

// fakeStore is a map-backed object store for pipeline tests.
type fakeStore struct {
	objects map[string][]byte
	// openFailures fails the first N Open calls with a generic error.
	openFailures int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if f.openFailures > 0 {
		f.openFailures--
		return nil, errors.New("connection reset")
	}
	data, ok := f.objects[storageKey]
	if !ok {
		return nil, object.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) Put(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.objects[storageKey] = data
	return int64(len(data)), nil
}

func (f *fakeStore) Delete(ctx context.Context, storageKey string) error {
	delete(f.objects, storageKey)
	return nil
}

func (f *fakeStore) PresignPut(ctx context.Context, storageKey, contentType string, expires time.Duration) (string, error) {
	return "http://store.test/put/" + storageKey, nil
}

func (f *fakeStore) PresignGet(ctx context.Context, storageKey string, expires time.Duration) (string, error) {
	return "http://store.test/get/" + storageKey, nil
}

// failingIndex fails the first N upserts, then delegates.
type failingIndex struct {
	*search.MemoryIndex
	failures int
}

func (f *failingIndex) Upsert(ctx context.Context, documentID string, entry search.Entry) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("cluster unavailable")
	}
	return f.MemoryIndex.Upsert(ctx, documentID, entry)
}

func buildDocx(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	xml := fmt.Sprintf(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:body></w:document>`, text)
	if _, err := w.Write([]byte(xml)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

type pipelineFixture struct {
	store *fakeStore
	repo  *documents.MemoryRepo
	index *search.MemoryIndex
	hub   *documents.Hub
	pipe  *Pipeline
}

func newPipelineFixture() *pipelineFixture {
	store := newFakeStore()
	repo := documents.NewMemoryRepo()
	index := search.NewMemoryIndex()
	hub := documents.NewHub()
	return &pipelineFixture{
		store: store,
		repo:  repo,
		index: index,
		hub:   hub,
		pipe: &Pipeline{
			Store:      store,
			Repo:       repo,
			Index:      index,
			Reconciler: &documents.Reconciler{Repo: repo, Updates: hub},
			Retry:      fastRetry(),
		},
	}
}

func (f *pipelineFixture) seed(t *testing.T, storageKey, text string) documents.Document {
	t.Helper()
	doc := documents.Document{
		ID:          "doc-" + storageKey,
		OwnerEmail:  "a@example.com",
		DisplayName: "notes.docx",
		StorageKey:  storageKey,
		Status:      documents.StatusPending,
		UploadedAt:  time.Now().UTC(),
	}
	if err := f.repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if _, err := f.store.Put(context.Background(), storageKey, "application/octet-stream", bytes.NewReader(buildDocx(t, text))); err != nil {
		t.Fatalf("seed object: %v", err)
	}
	return doc
}

func TestProcessSuccessIndexesAndMarksSuccess(t *testing.T) {
	f := newPipelineFixture()
	doc := f.seed(t, "key-1-notes.docx", "quarterly revenue summary")

	updates, cancel := f.hub.Subscribe(doc.OwnerEmail)
	defer cancel()

	if err := f.pipe.Process(context.Background(), ObjectRef{Bucket: "b", Key: doc.StorageKey}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	entry, ok := f.index.Get(doc.ID)
	if !ok {
		t.Fatal("expected index entry keyed by document id")
	}
	if !strings.Contains(entry.Text, "quarterly revenue summary") {
		t.Fatalf("unexpected indexed text: %q", entry.Text)
	}
	if entry.Metadata.Owner != doc.OwnerEmail || entry.Metadata.StorageKey != doc.StorageKey {
		t.Fatalf("unexpected metadata: %+v", entry.Metadata)
	}

	got, err := f.repo.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != documents.StatusSuccess {
		t.Fatalf("expected success, got %s", got.Status)
	}

	select {
	case update := <-updates:
		if update.Status != documents.StatusSuccess {
			t.Fatalf("unexpected update: %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a status update")
	}
}

func TestProcessRedeliveryIsIdempotent(t *testing.T) {
	f := newPipelineFixture()
	doc := f.seed(t, "key-2-notes.docx", "redelivered content")

	for i := 0; i < 2; i++ {
		if err := f.pipe.Process(context.Background(), ObjectRef{Bucket: "b", Key: doc.StorageKey}); err != nil {
			t.Fatalf("Process run %d: %v", i+1, err)
		}
	}

	if f.index.Len() != 1 {
		t.Fatalf("expected 1 index entry after redelivery, got %d", f.index.Len())
	}
	got, err := f.repo.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != documents.StatusSuccess {
		t.Fatalf("expected success after redelivery, got %s", got.Status)
	}
}

func TestProcessMissingObjectIsTerminal(t *testing.T) {
	f := newPipelineFixture()

	err := f.pipe.Process(context.Background(), ObjectRef{Bucket: "b", Key: "gone.docx"})
	stage, class := Classify(err)
	if stage != StageDownload || class != ClassTerminal {
		t.Fatalf("expected terminal download failure, got stage=%s class=%s err=%v", stage, class, err)
	}
}

func TestProcessMissingMetadataIsTerminal(t *testing.T) {
	f := newPipelineFixture()
	if _, err := f.store.Put(context.Background(), "orphan.docx", "application/octet-stream", bytes.NewReader(buildDocx(t, "orphan"))); err != nil {
		t.Fatalf("seed object: %v", err)
	}

	err := f.pipe.Process(context.Background(), ObjectRef{Bucket: "b", Key: "orphan.docx"})
	stage, class := Classify(err)
	if stage != StageLookup || class != ClassTerminal {
		t.Fatalf("expected terminal lookup failure, got stage=%s class=%s err=%v", stage, class, err)
	}
	if f.index.Len() != 0 {
		t.Fatal("orphan object must not be indexed")
	}
}

func TestProcessCorruptDocumentIsTerminal(t *testing.T) {
	f := newPipelineFixture()
	doc := documents.Document{
		ID:          "doc-corrupt",
		OwnerEmail:  "a@example.com",
		DisplayName: "broken.docx",
		StorageKey:  "key-3-broken.docx",
		Status:      documents.StatusPending,
		UploadedAt:  time.Now().UTC(),
	}
	if err := f.repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if _, err := f.store.Put(context.Background(), doc.StorageKey, "application/octet-stream", bytes.NewReader([]byte("not a zip archive"))); err != nil {
		t.Fatalf("seed object: %v", err)
	}

	err := f.pipe.Process(context.Background(), ObjectRef{Bucket: "b", Key: doc.StorageKey})
	stage, class := Classify(err)
	if stage != StageExtract || class != ClassTerminal {
		t.Fatalf("expected terminal extract failure, got stage=%s class=%s err=%v", stage, class, err)
	}

	// The pipeline reports; the consumer decides the record's fate.
	got, err := f.repo.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != documents.StatusPending {
		t.Fatalf("expected record untouched, got %s", got.Status)
	}
}

func TestProcessRetriesTransientDownload(t *testing.T) {
	f := newPipelineFixture()
	doc := f.seed(t, "key-4-notes.docx", "flaky network")
	f.store.openFailures = 2

	if err := f.pipe.Process(context.Background(), ObjectRef{Bucket: "b", Key: doc.StorageKey}); err != nil {
		t.Fatalf("expected retries to absorb transient failures, got %v", err)
	}
	if f.index.Len() != 1 {
		t.Fatalf("expected indexed entry, got %d", f.index.Len())
	}
}

func TestProcessExhaustedIndexRetriesAreTransient(t *testing.T) {
	f := newPipelineFixture()
	doc := f.seed(t, "key-5-notes.docx", "unreachable cluster")
	f.pipe.Index = &failingIndex{MemoryIndex: search.NewMemoryIndex(), failures: 100}

	err := f.pipe.Process(context.Background(), ObjectRef{Bucket: "b", Key: doc.StorageKey})
	stage, class := Classify(err)
	if stage != StageIndex || class != ClassTransient {
		t.Fatalf("expected transient index failure, got stage=%s class=%s err=%v", stage, class, err)
	}

	got, err := f.repo.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != documents.StatusPending {
		t.Fatalf("record must stay pending for redelivery, got %s", got.Status)
	}
}
