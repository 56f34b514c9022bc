package documents

import "context"

// DocumentsRepo defines persistence operations for document metadata.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	GetByStorageKey(ctx context.Context, storageKey string) (Document, error)
	ListByOwner(ctx context.Context, ownerEmail string, limit, offset int) ([]Document, error)
	// UpdateStatusByStorageKey flips a pending record to the given terminal
	// status. It returns the record and whether the transition was applied;
	// a record already in a terminal state is returned unchanged with
	// applied=false. ErrNotFound if no record has the storage key.
	UpdateStatusByStorageKey(ctx context.Context, storageKey string, status Status) (Document, bool, error)
	DeleteByID(ctx context.Context, id string) error
}
