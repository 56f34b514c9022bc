package documents

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]Document
	byKey map[string]string // storageKey -> id
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:  make(map[string]Document),
		byKey: make(map[string]string),
	}
}

// Create stores a new document record. Storage keys are unique.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[doc.StorageKey]; exists {
		return ErrInvalidInput
	}
	r.byID[doc.ID] = doc
	r.byKey[doc.StorageKey] = doc.ID
	return nil
}

// GetByID returns a document by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// GetByStorageKey returns a document by its storage key.
func (r *MemoryRepo) GetByStorageKey(ctx context.Context, storageKey string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[storageKey]
	if !ok {
		return Document{}, ErrNotFound
	}
	return r.byID[id], nil
}

// ListByOwner returns an owner's documents, newest first.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerEmail string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	var docs []Document
	for _, doc := range r.byID {
		if doc.OwnerEmail == ownerEmail {
			docs = append(docs, doc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})

	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// UpdateStatusByStorageKey flips a pending record to a terminal status.
func (r *MemoryRepo) UpdateStatusByStorageKey(ctx context.Context, storageKey string, status Status) (Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byKey[storageKey]
	if !ok {
		return Document{}, false, ErrNotFound
	}
	doc := r.byID[id]
	if doc.Status != StatusPending {
		return doc, false, nil
	}
	doc.Status = status
	r.byID[id] = doc
	return doc, true, nil
}

// DeleteByID removes a document record.
func (r *MemoryRepo) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byKey, doc.StorageKey)
	return nil
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
