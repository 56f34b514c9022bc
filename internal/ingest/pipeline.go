package ingest

import (
	"context"
	"errors"
	"io"

	"docsearch-backend/internal/documents"
	"docsearch-backend/internal/extract"
	"docsearch-backend/internal/search"
	"docsearch-backend/internal/shared/resilience"
	"docsearch-backend/internal/shared/storage/object"
	"docsearch-backend/internal/shared/telemetry"
)

// Pipeline turns an object-created notification into an indexed, searchable
// document: download, extract text, look up the metadata record, index, then
// flip the record's status. Failures come back as StageError so the consumer
// can tell retryable from permanent.
type Pipeline struct {
	Store      object.ObjectStore
	Repo       documents.DocumentsRepo
	Index      search.Index
	Reconciler *documents.Reconciler
	Retry      resilience.RetryConfig
}

// Process ingests one object reference. It is idempotent: the search entry
// is keyed by the metadata record's id, and the status transition only moves
// records out of pending, so a redelivered message re-runs safely.
func (p *Pipeline) Process(ctx context.Context, ref ObjectRef) error {
	data, err := p.download(ctx, ref)
	if err != nil {
		return err
	}

	text, err := extract.Text(data, ref.Key)
	if err != nil {
		// A corrupt or unreadable document fails the same way every time.
		return Terminal(StageExtract, err)
	}

	doc, err := p.lookup(ctx, ref.Key)
	if err != nil {
		return err
	}

	entry := search.Entry{
		Text: text,
		Metadata: search.Metadata{
			Owner:      doc.OwnerEmail,
			FileName:   doc.DisplayName,
			UploadedAt: doc.UploadedAt,
			StorageKey: doc.StorageKey,
		},
	}
	err = resilience.Retry(ctx, "ingest.index", p.Retry, func() error {
		return p.Index.Upsert(ctx, doc.ID, entry)
	})
	if err != nil {
		return Transient(StageIndex, err)
	}

	err = resilience.Retry(ctx, "ingest.finalize", p.Retry, func() error {
		markErr := p.Reconciler.MarkSuccess(ctx, ref.Key)
		if errors.Is(markErr, documents.ErrNotFound) {
			// Record deleted mid-flight. Nothing left to finalize.
			return nil
		}
		return markErr
	})
	if err != nil {
		return Transient(StageFinalize, err)
	}

	telemetry.Info("ingest.completed", map[string]any{
		"document_id": doc.ID,
		"storage_key": ref.Key,
		"text_len":    len(text),
	})
	return nil
}

func (p *Pipeline) download(ctx context.Context, ref ObjectRef) ([]byte, error) {
	var data []byte
	err := resilience.Retry(ctx, "ingest.download", p.Retry, func() error {
		reader, err := p.Store.Open(ctx, ref.Key)
		if err != nil {
			return err
		}
		defer reader.Close()
		data, err = io.ReadAll(reader)
		return err
	})
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			// The object was removed after the notification fired.
			return nil, Terminal(StageDownload, err)
		}
		return nil, Transient(StageDownload, err)
	}
	return data, nil
}

func (p *Pipeline) lookup(ctx context.Context, storageKey string) (documents.Document, error) {
	doc, err := p.Repo.GetByStorageKey(ctx, storageKey)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			// An object with no metadata record cannot be reconciled and
			// never will be. The record is written before the upload starts.
			return documents.Document{}, Terminal(StageLookup, err)
		}
		err = resilience.Retry(ctx, "ingest.lookup", p.Retry, func() error {
			var retryErr error
			doc, retryErr = p.Repo.GetByStorageKey(ctx, storageKey)
			return retryErr
		})
		if err != nil {
			if errors.Is(err, documents.ErrNotFound) {
				return documents.Document{}, Terminal(StageLookup, err)
			}
			return documents.Document{}, Transient(StageLookup, err)
		}
	}
	return doc, nil
}
