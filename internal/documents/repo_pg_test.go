package documents

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func docRows(doc Document) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner_email", "display_name", "storage_key", "status", "uploaded_at"}).
		AddRow(doc.ID, doc.OwnerEmail, doc.DisplayName, doc.StorageKey, string(doc.Status), doc.UploadedAt)
}

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	doc := Document{
		ID:          "doc-1",
		OwnerEmail:  "a@example.com",
		DisplayName: "report.pdf",
		StorageKey:  "key-1-report.pdf",
		Status:      StatusPending,
		UploadedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.OwnerEmail,
			doc.DisplayName,
			doc.StorageKey,
			string(StatusPending),
			doc.UploadedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusFlipsPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	updated := Document{
		ID:          "doc-1",
		OwnerEmail:  "a@example.com",
		DisplayName: "report.pdf",
		StorageKey:  "key-1-report.pdf",
		Status:      StatusSuccess,
		UploadedAt:  time.Now().UTC(),
	}

	mock.ExpectQuery("UPDATE documents").
		WithArgs(updated.StorageKey, string(StatusSuccess)).
		WillReturnRows(docRows(updated))

	doc, applied, err := repo.UpdateStatusByStorageKey(context.Background(), updated.StorageKey, StatusSuccess)
	if err != nil {
		t.Fatalf("UpdateStatusByStorageKey: %v", err)
	}
	if !applied {
		t.Fatal("expected pending record to be updated")
	}
	if doc.Status != StatusSuccess {
		t.Fatalf("expected success status, got %s", doc.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusLeavesTerminalAlone(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	existing := Document{
		ID:          "doc-1",
		OwnerEmail:  "a@example.com",
		DisplayName: "report.pdf",
		StorageKey:  "key-1-report.pdf",
		Status:      StatusError,
		UploadedAt:  time.Now().UTC(),
	}

	// No pending row matches, then the fallback lookup finds the terminal row.
	mock.ExpectQuery("UPDATE documents").
		WithArgs(existing.StorageKey, string(StatusSuccess)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_email", "display_name", "storage_key", "status", "uploaded_at"}))
	mock.ExpectQuery("SELECT id, owner_email, display_name, storage_key, status, uploaded_at").
		WithArgs(existing.StorageKey).
		WillReturnRows(docRows(existing))

	doc, applied, err := repo.UpdateStatusByStorageKey(context.Background(), existing.StorageKey, StatusSuccess)
	if err != nil {
		t.Fatalf("UpdateStatusByStorageKey: %v", err)
	}
	if applied {
		t.Fatal("terminal record must not be updated")
	}
	if doc.Status != StatusError {
		t.Fatalf("expected existing error status, got %s", doc.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteByIDMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec("DELETE FROM documents").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteByID(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
