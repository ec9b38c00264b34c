package folder

import "errors"

var (
	// ErrFolderNotFound indicates the folder does not exist or belongs to someone else.
	ErrFolderNotFound = errors.New("folder not found")
	// ErrInvalidName is returned for empty or over-long folder names.
	ErrInvalidName = errors.New("invalid folder name")
)
