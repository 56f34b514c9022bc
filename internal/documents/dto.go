package documents

import "time"

// UploadGrantResponse is the outward-facing representation of an upload
// grant.
type UploadGrantResponse struct {
	UploadURL        string `json:"uploadUrl"`
	StorageKey       string `json:"storageKey"`
	DocumentID       string `json:"documentId"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID string    `json:"documentId"`
	FileName   string    `json:"fileName"`
	Status     string    `json:"status"`
	UploadedAt time.Time `json:"uploadedAt"`
	StorageKey string    `json:"storageKey"`
	FileURL    string    `json:"fileUrl,omitempty"`
	Highlights []string  `json:"highlights,omitempty"`
}

func toGrantResponse(grant UploadGrant) UploadGrantResponse {
	return UploadGrantResponse{
		UploadURL:        grant.UploadURL,
		StorageKey:       grant.StorageKey,
		DocumentID:       grant.DocumentID,
		ExpiresInSeconds: int64(grant.ExpiresIn.Seconds()),
	}
}

func toResponse(item ListItem) DocumentResponse {
	return DocumentResponse{
		DocumentID: item.ID,
		FileName:   item.DisplayName,
		Status:     string(item.Status),
		UploadedAt: item.UploadedAt,
		StorageKey: item.StorageKey,
		FileURL:    item.FileURL,
		Highlights: item.Highlights,
	}
}
