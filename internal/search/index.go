package search

import (
	"context"
	"time"
)

// Metadata is stored alongside the extracted text and drives owner filtering
// and display in search results.
type Metadata struct {
	Owner      string    `json:"owner"`
	FileName   string    `json:"fileName"`
	UploadedAt time.Time `json:"uploadedAt"`
	StorageKey string    `json:"storageKey"`
}

// Entry is the indexed representation of a document. It is keyed by the
// document metadata record's id, so re-indexing overwrites instead of
// duplicating.
type Entry struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Hit is a single search result.
type Hit struct {
	DocumentID string
	Highlights []string
}

// Index upserts, deletes, and queries document entries. Upsert must be
// visible to an immediately following Search (synchronous refresh).
type Index interface {
	Upsert(ctx context.Context, documentID string, entry Entry) error
	Delete(ctx context.Context, documentID string) error
	Search(ctx context.Context, owner, query string) ([]Hit, error)
}
