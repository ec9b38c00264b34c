package file

import (
	"time"

	"github.com/google/uuid"
)

// Metadata describes an uploaded file. The bytes live in the blob store under StorageKey.
type Metadata struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	FolderID     uuid.UUID `json:"folder_id"`
	OriginalName string    `json:"original_name"`
	StorageKey   string    `json:"-"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type"`
	Checksum     string    `json:"checksum"`
	CreatedAt    time.Time `json:"created_at"`
}
