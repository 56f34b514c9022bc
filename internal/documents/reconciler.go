package documents

import (
	"context"

	"docsearch-backend/internal/shared/telemetry"
)

// Reconciler is the single writer of pipeline outcomes onto document
// records. Transitions are monotonic: only pending records move, and live
// updates fan out strictly after the store write succeeds.
type Reconciler struct {
	Repo    DocumentsRepo
	Updates *Hub
}

// MarkSuccess transitions the record for the storage key to success.
func (r *Reconciler) MarkSuccess(ctx context.Context, storageKey string) error {
	return r.mark(ctx, storageKey, StatusSuccess)
}

// MarkError transitions the record for the storage key to error.
func (r *Reconciler) MarkError(ctx context.Context, storageKey string) error {
	return r.mark(ctx, storageKey, StatusError)
}

func (r *Reconciler) mark(ctx context.Context, storageKey string, status Status) error {
	doc, applied, err := r.Repo.UpdateStatusByStorageKey(ctx, storageKey, status)
	if err != nil {
		return err
	}
	if !applied {
		telemetry.Info("documents.status.unchanged", map[string]any{
			"storage_key": storageKey,
			"status":      string(doc.Status),
			"requested":   string(status),
		})
		return nil
	}

	telemetry.Info("documents.status.updated", map[string]any{
		"document_id": doc.ID,
		"storage_key": storageKey,
		"status":      string(status),
	})
	if r.Updates != nil {
		r.Updates.Publish(doc.OwnerEmail, Update{
			DocumentID: doc.ID,
			StorageKey: doc.StorageKey,
			Status:     status,
		})
	}
	return nil
}
