package postgres

import (
	"context"

	"filevault/internal/database"
	"filevault/internal/model"
	"filevault/internal/repository"
)

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type FilePostgres struct {
	db database.DBTX
}

// NewFilePostgres creates a FilePostgres bound to a pool or a transaction.
func NewFilePostgres(db database.DBTX) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

// Create inserts a new file row and returns the stored record.
func (r *FilePostgres) Create(ctx context.Context, f *model.File) (*model.File, error) {
	const q = `
		INSERT INTO files (id, user_id, filename, file_url, file_size, upload_timestamp, is_encrypted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, filename, file_url, file_size, upload_timestamp, is_encrypted
	`
	row := r.db.QueryRowContext(ctx, q,
		f.ID,
		f.OwnerID,
		f.Filename,
		f.URL,
		f.Size,
		f.UploadedAt,
		f.Encrypted,
	)
	var out model.File
	if err := scanFile(row, &out); err != nil {
		return nil, mapError(err)
	}
	return &out, nil
}

// FindByOwnerAndFilename fetches a single record scoped to its owner.
func (r *FilePostgres) FindByOwnerAndFilename(ctx context.Context, ownerID int64, filename string) (*model.File, error) {
	const q = `
		SELECT id, user_id, filename, file_url, file_size, upload_timestamp, is_encrypted
		FROM files
		WHERE user_id = $1 AND filename = $2
	`
	var f model.File
	if err := scanFile(r.db.QueryRowContext(ctx, q, ownerID, filename), &f); err != nil {
		return nil, mapError(err)
	}
	return &f, nil
}

func (r *FilePostgres) ExistsByOwnerAndFilename(ctx context.Context, ownerID int64, filename string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM files WHERE user_id = $1 AND filename = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, ownerID, filename).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByOwner returns the owner's files by upload time, id breaking ties.
func (r *FilePostgres) ListByOwner(ctx context.Context, ownerID int64) ([]model.File, error) {
	const q = `
		SELECT id, user_id, filename, file_url, file_size, upload_timestamp, is_encrypted
		FROM files
		WHERE user_id = $1
		ORDER BY upload_timestamp ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.File, 0)
	for rows.Next() {
		var f model.File
		if err := scanFile(rows, &f); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner, f *model.File) error {
	return s.Scan(
		&f.ID,
		&f.OwnerID,
		&f.Filename,
		&f.URL,
		&f.Size,
		&f.UploadedAt,
		&f.Encrypted,
	)
}
