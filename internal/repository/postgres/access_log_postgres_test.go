package postgres

import (
	"context"
	"testing"
	"time"

	"filevault/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLogPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAccessLogPostgres(db)
	now := time.Now().UTC()
	l := &model.AccessLog{
		ID:         "log-1",
		FileID:     "file-1",
		UserID:     3,
		AccessType: model.AccessDownload,
		IPAddress:  "10.0.0.1",
		UserAgent:  "curl/8.0",
		AccessedAt: now,
	}

	mock.ExpectQuery("INSERT INTO file_access_logs").
		WithArgs(l.ID, l.FileID, l.UserID, "download", l.IPAddress, l.UserAgent, l.AccessedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_id", "user_id", "access_type", "ip_address", "user_agent", "accessed_at"}).
			AddRow(l.ID, l.FileID, l.UserID, "download", l.IPAddress, l.UserAgent, l.AccessedAt))

	out, err := repo.Create(context.Background(), l)

	assert.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, *l, *out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessLogPostgres_CountByFile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAccessLogPostgres(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM file_access_logs").
		WithArgs("file-1", "view").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountByFile(context.Background(), "file-1", model.AccessView)

	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
