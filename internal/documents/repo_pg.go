package documents

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = "id, owner_email, display_name, storage_key, status, uploaded_at"

// Create inserts a new document record.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (id, owner_email, display_name, storage_key, status, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OwnerEmail,
		doc.DisplayName,
		doc.StorageKey,
		string(doc.Status),
		doc.UploadedAt,
	)
	return err
}

// GetByID fetches a document by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// GetByStorageKey fetches a document by its storage key.
func (r *PGRepo) GetByStorageKey(ctx context.Context, storageKey string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE storage_key = $1
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, storageKey))
}

// ListByOwner lists an owner's documents, newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerEmail string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE owner_email = $1
ORDER BY uploaded_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, ownerEmail, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		var status string
		if err := rows.Scan(
			&doc.ID,
			&doc.OwnerEmail,
			&doc.DisplayName,
			&doc.StorageKey,
			&status,
			&doc.UploadedAt,
		); err != nil {
			return nil, err
		}
		doc.Status = Status(status)
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateStatusByStorageKey flips a pending record to a terminal status.
// Records already in a terminal state are left untouched.
func (r *PGRepo) UpdateStatusByStorageKey(ctx context.Context, storageKey string, status Status) (Document, bool, error) {
	const update = `
UPDATE documents
SET status = $2
WHERE storage_key = $1 AND status = 'pending'
RETURNING ` + documentColumns

	doc, err := r.scanOne(r.DB.QueryRowContext(ctx, update, storageKey, string(status)))
	if err == nil {
		return doc, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Document{}, false, err
	}

	// No pending row matched: either the record is missing or it already
	// reached a terminal state.
	doc, err = r.GetByStorageKey(ctx, storageKey)
	if err != nil {
		return Document{}, false, err
	}
	return doc, false, nil
}

// DeleteByID removes a document record.
func (r *PGRepo) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM documents WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) scanOne(row *sql.Row) (Document, error) {
	var doc Document
	var status string
	err := row.Scan(
		&doc.ID,
		&doc.OwnerEmail,
		&doc.DisplayName,
		&doc.StorageKey,
		&status,
		&doc.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.Status = Status(status)
	return doc, nil
}

var _ DocumentsRepo = (*PGRepo)(nil)
