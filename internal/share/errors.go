package share

import "errors"

var (
	// ErrShareNotFound is returned for unknown tokens and for files outside the shared folder.
	ErrShareNotFound = errors.New("share not found")
	// ErrShareExpired is returned for known tokens past their expiry.
	ErrShareExpired = errors.New("share expired")
)
