package folder

import (
	"time"

	"github.com/google/uuid"
)

// Folder is a node in a user's folder forest. A nil ParentID marks a root folder.
type Folder struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
}

// FileSummary is the part of a file shown in a folder view.
type FileSummary struct {
	ID           uuid.UUID `json:"id"`
	OriginalName string    `json:"original_name"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// FileObject identifies stored bytes released by a folder deletion.
type FileObject struct {
	FileID     uuid.UUID
	StorageKey string
}
