package documents

import "time"

// Status is the lifecycle state of a document's ingestion.
type Status string

// A record is created pending when the upload URL is issued, before the
// binary necessarily exists in the object store. The ingestion pipeline is
// the only writer of the terminal states.
const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusError:
		return true
	}
	return false
}

// Document is the metadata record for an uploaded document.
type Document struct {
	ID          string
	OwnerEmail  string
	DisplayName string
	StorageKey  string
	Status      Status
	UploadedAt  time.Time
}
