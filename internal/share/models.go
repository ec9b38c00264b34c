package share

import (
	"time"

	"github.com/abduss/foldershare/internal/file"
	"github.com/abduss/foldershare/internal/folder"
	"github.com/google/uuid"
)

// Status of a share link at a point in time.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Share is a public capability for reading one folder until ExpiresAt.
type Share struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`
	FolderID  uuid.UUID `json:"folder_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the share is no longer usable at now.
func (s Share) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Status returns StatusActive or StatusExpired at now.
func (s Share) Status(now time.Time) string {
	if s.Expired(now) {
		return StatusExpired
	}
	return StatusActive
}

// SharedFolder is what a token holder sees: the folder and the files directly in it.
type SharedFolder struct {
	Share  Share
	Folder folder.Folder
	Files  []file.Metadata
}
