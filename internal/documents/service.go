package documents

import (
	"context"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docsearch-backend/internal/search"
	"docsearch-backend/internal/shared/storage/object"
	"docsearch-backend/internal/shared/telemetry"
	"docsearch-backend/internal/shared/util"
)

// Service contains business logic for the document CRUD surface.
type Service struct {
	Repo    DocumentsRepo
	Store   object.ObjectStore
	Index   search.Index
	Updates *Hub

	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
}

// UploadGrant is the result of issuing an upload URL: the presigned target,
// the storage key the client must upload to, and the pending record's id.
type UploadGrant struct {
	UploadURL  string
	StorageKey string
	DocumentID string
	ExpiresIn  time.Duration
}

// ListItem is a document enriched with a short-lived download URL and, for
// search results, highlighted snippets.
type ListItem struct {
	Document
	FileURL    string
	Highlights []string
}

// CreateUploadURL issues a presigned upload URL and records the document in
// pending status. The record exists before the binary does; the ingestion
// pipeline flips it once the object-created notification arrives.
func (s *Service) CreateUploadURL(ctx context.Context, ownerEmail, originalFilename string) (UploadGrant, error) {
	ownerEmail = strings.TrimSpace(ownerEmail)
	if _, err := mail.ParseAddress(ownerEmail); err != nil {
		return UploadGrant{}, ErrInvalidInput
	}

	sanitized, err := util.SanitizeFileName(originalFilename)
	if err != nil {
		return UploadGrant{}, ErrInvalidInput
	}

	docID := uuid.NewString()
	storageKey := uuid.NewString() + "-" + sanitized

	expiry := s.UploadURLExpiry
	if expiry <= 0 {
		expiry = 60 * time.Second
	}

	uploadURL, err := s.Store.PresignPut(ctx, storageKey, mimeTypeFor(sanitized), expiry)
	if err != nil {
		return UploadGrant{}, err
	}

	doc := Document{
		ID:          docID,
		OwnerEmail:  ownerEmail,
		DisplayName: originalFilename,
		StorageKey:  storageKey,
		Status:      StatusPending,
		UploadedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return UploadGrant{}, err
	}

	return UploadGrant{
		UploadURL:  uploadURL,
		StorageKey: storageKey,
		DocumentID: docID,
		ExpiresIn:  expiry,
	}, nil
}

// List returns an owner's documents, newest first. A non-empty query runs a
// fuzzy search over indexed text instead and joins hits back to metadata
// records. Download URLs are best-effort; a presign failure is logged and
// leaves the URL empty.
func (s *Service) List(ctx context.Context, ownerEmail, query string) ([]ListItem, error) {
	ownerEmail = strings.TrimSpace(ownerEmail)
	if ownerEmail == "" {
		return nil, ErrInvalidInput
	}

	if strings.TrimSpace(query) != "" {
		return s.listBySearch(ctx, ownerEmail, query)
	}

	docs, err := s.Repo.ListByOwner(ctx, ownerEmail, 0, 0)
	if err != nil {
		return nil, err
	}

	items := make([]ListItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, ListItem{
			Document: doc,
			FileURL:  s.downloadURL(ctx, doc.StorageKey),
		})
	}
	return items, nil
}

func (s *Service) listBySearch(ctx context.Context, ownerEmail, query string) ([]ListItem, error) {
	hits, err := s.Index.Search(ctx, ownerEmail, query)
	if err != nil {
		return nil, err
	}

	items := make([]ListItem, 0, len(hits))
	for _, hit := range hits {
		doc, err := s.Repo.GetByID(ctx, hit.DocumentID)
		if err != nil {
			// A stale index entry whose record was deleted is skippable.
			telemetry.Warn("documents.search.stale_hit", map[string]any{
				"document_id": hit.DocumentID,
				"owner":       ownerEmail,
				"error":       err.Error(),
			})
			continue
		}
		if doc.OwnerEmail != ownerEmail {
			continue
		}
		items = append(items, ListItem{
			Document:   doc,
			FileURL:    s.downloadURL(ctx, doc.StorageKey),
			Highlights: hit.Highlights,
		})
	}
	return items, nil
}

// Delete removes the stored object, its search entry, and the metadata
// record. The search deletion is warn-only so a flaky index does not leave
// the object and record behind.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
		return err
	}

	if err := s.Index.Delete(ctx, doc.ID); err != nil {
		telemetry.Warn("documents.delete.index_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}

	return s.Repo.DeleteByID(ctx, doc.ID)
}

// Subscribe registers for an owner's live status updates.
func (s *Service) Subscribe(ownerEmail string) (<-chan Update, func()) {
	return s.Updates.Subscribe(ownerEmail)
}

func (s *Service) downloadURL(ctx context.Context, storageKey string) string {
	expiry := s.DownloadURLExpiry
	if expiry <= 0 {
		expiry = 300 * time.Second
	}
	url, err := s.Store.PresignGet(ctx, storageKey, expiry)
	if err != nil {
		telemetry.Warn("documents.presign_get_failed", map[string]any{
			"storage_key": storageKey,
			"error":       err.Error(),
		})
		return ""
	}
	return url
}

func mimeTypeFor(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
