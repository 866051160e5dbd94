package mocks

import (
	"context"

	"filevault/internal/model"
	"filevault/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockFileRepository struct {
	mock.Mock
}

var _ repository.FileRepository = (*MockFileRepository)(nil)

func (m *MockFileRepository) Create(ctx context.Context, f *model.File) (*model.File, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileRepository) FindByOwnerAndFilename(ctx context.Context, ownerID int64, filename string) (*model.File, error) {
	args := m.Called(ctx, ownerID, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileRepository) ExistsByOwnerAndFilename(ctx context.Context, ownerID int64, filename string) (bool, error) {
	args := m.Called(ctx, ownerID, filename)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.File, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.File), args.Error(1)
}

type MockAccessLogRepository struct {
	mock.Mock
}

var _ repository.AccessLogRepository = (*MockAccessLogRepository)(nil)

func (m *MockAccessLogRepository) Create(ctx context.Context, l *model.AccessLog) (*model.AccessLog, error) {
	args := m.Called(ctx, l)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessLog), args.Error(1)
}

func (m *MockAccessLogRepository) CountByFile(ctx context.Context, fileID string, accessType model.AccessType) (int, error) {
	args := m.Called(ctx, fileID, accessType)
	return args.Int(0), args.Error(1)
}

// MockStore hands out the embedded repository mocks. WithinTx runs fn against
// the same mock and then returns CommitErr, which simulates a failed commit.
type MockStore struct {
	FilesRepo      *MockFileRepository
	AccessLogsRepo *MockAccessLogRepository
	CommitErr      error
}

var _ repository.Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{
		FilesRepo:      &MockFileRepository{},
		AccessLogsRepo: &MockAccessLogRepository{},
	}
}

func (m *MockStore) Files() repository.FileRepository { return m.FilesRepo }

func (m *MockStore) AccessLogs() repository.AccessLogRepository { return m.AccessLogsRepo }

func (m *MockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if err := fn(ctx, m); err != nil {
		return err
	}
	return m.CommitErr
}
