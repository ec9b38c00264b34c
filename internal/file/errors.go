package file

import "errors"

var (
	// ErrFileNotFound signals that the file could not be located for the caller.
	ErrFileNotFound = errors.New("file not found")
	// ErrFileTooLarge signals that the upload exceeds configured limits.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedType signals a MIME type outside the upload allow-list.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrMissingPayload is returned when an upload carries no file part.
	ErrMissingPayload = errors.New("missing file payload")
)
