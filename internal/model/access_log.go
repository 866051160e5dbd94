package model

import "time"

// AccessType distinguishes how a file was read.
type AccessType string

const (
	AccessDownload AccessType = "download"
	AccessView     AccessType = "view"
)

// AccessLog is an append-only audit entry written after a successful read.
type AccessLog struct {
	ID         string     `json:"id"`
	FileID     string     `json:"file_id"`
	UserID     int64      `json:"user_id"`
	AccessType AccessType `json:"access_type"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
	AccessedAt time.Time  `json:"accessed_at"`
}
