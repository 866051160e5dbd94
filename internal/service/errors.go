package service

import "errors"

var (
	// ErrNotFoundOrForbidden is returned both for missing files and for files
	// owned by someone else so callers cannot probe other users' names.
	ErrNotFoundOrForbidden = errors.New("file not found or permission denied")
	// ErrUploadFailed wraps any server-side failure during upload.
	ErrUploadFailed = errors.New("file upload failed")
	// ErrUniqueConstraintConflict is returned when name resolution kept losing races.
	ErrUniqueConstraintConflict = errors.New("filename conflict persisted after retries")
	// ErrRecordStorageCorruption is returned when stored content is not valid UTF-8 text.
	ErrRecordStorageCorruption = errors.New("stored content is not valid text")
)
