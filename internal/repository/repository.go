package repository

import (
	"context"
	"errors"

	"filevault/internal/model"
)

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, memory) inside this directory.

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateFilename is returned when (owner, filename) is already taken.
	ErrDuplicateFilename = errors.New("filename already exists for owner")
)

// FileRepository is data access for file records. It holds no business rules.
type FileRepository interface {
	// Create inserts a new file record and returns the stored row.
	// It fails with ErrDuplicateFilename when the owner already has that filename.
	Create(ctx context.Context, f *model.File) (*model.File, error)

	// FindByOwnerAndFilename returns the owner's record for filename or ErrNotFound.
	FindByOwnerAndFilename(ctx context.Context, ownerID int64, filename string) (*model.File, error)

	// ExistsByOwnerAndFilename reports whether the owner already has filename.
	ExistsByOwnerAndFilename(ctx context.Context, ownerID int64, filename string) (bool, error)

	// ListByOwner returns the owner's records oldest first. Never nil.
	ListByOwner(ctx context.Context, ownerID int64) ([]model.File, error)
}

// AccessLogRepository appends audit entries for file reads.
type AccessLogRepository interface {
	Create(ctx context.Context, l *model.AccessLog) (*model.AccessLog, error)

	// CountByFile counts the entries of the given type for a file.
	CountByFile(ctx context.Context, fileID string, accessType model.AccessType) (int, error)
}

// Store groups the repositories that share a transaction boundary.
type Store interface {
	Files() FileRepository
	AccessLogs() AccessLogRepository

	// WithinTx runs fn with a Store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
