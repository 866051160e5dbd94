package model

import "time"

// File is the metadata record paired with one stored object.
// The pair (OwnerID, Filename) is unique; records are never updated.
type File struct {
	ID         string    `json:"id"`
	OwnerID    int64     `json:"-"`
	Filename   string    `json:"filename"`
	URL        string    `json:"file_url"`
	Size       int64     `json:"file_size"`
	UploadedAt time.Time `json:"upload_timestamp"`
	Encrypted  bool      `json:"is_encrypted"`
}
