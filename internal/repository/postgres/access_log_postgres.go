package postgres

import (
	"context"

	"filevault/internal/database"
	"filevault/internal/model"
	"filevault/internal/repository"
)

// AccessLogPostgres is a PostgreSQL implementation of repository.AccessLogRepository.
type AccessLogPostgres struct {
	db database.DBTX
}

func NewAccessLogPostgres(db database.DBTX) *AccessLogPostgres {
	return &AccessLogPostgres{db: db}
}

var _ repository.AccessLogRepository = (*AccessLogPostgres)(nil)

// Create appends an access log row.
func (r *AccessLogPostgres) Create(ctx context.Context, l *model.AccessLog) (*model.AccessLog, error) {
	const q = `
		INSERT INTO file_access_logs (id, file_id, user_id, access_type, ip_address, user_agent, accessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, file_id, user_id, access_type, ip_address, user_agent, accessed_at
	`
	row := r.db.QueryRowContext(ctx, q,
		l.ID,
		l.FileID,
		l.UserID,
		string(l.AccessType),
		l.IPAddress,
		l.UserAgent,
		l.AccessedAt,
	)
	var (
		out        model.AccessLog
		accessType string
	)
	if err := row.Scan(
		&out.ID,
		&out.FileID,
		&out.UserID,
		&accessType,
		&out.IPAddress,
		&out.UserAgent,
		&out.AccessedAt,
	); err != nil {
		return nil, mapError(err)
	}
	out.AccessType = model.AccessType(accessType)
	return &out, nil
}

func (r *AccessLogPostgres) CountByFile(ctx context.Context, fileID string, accessType model.AccessType) (int, error) {
	const q = `SELECT COUNT(*) FROM file_access_logs WHERE file_id = $1 AND access_type = $2`
	var n int
	if err := r.db.QueryRowContext(ctx, q, fileID, string(accessType)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
