package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"filevault/internal/keyspace"
	"filevault/internal/logger"
	"filevault/internal/metrics"
	"filevault/internal/model"
	"filevault/internal/repository"
	repoMocks "filevault/internal/repository/mocks"
	"filevault/internal/storage"
	storeMocks "filevault/internal/storage/mocks"
	"filevault/internal/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store repository.Store, objects storage.Storage) (*fileService, *metrics.Files, *observer.ObservedLogs) {
	t.Helper()
	m, err := metrics.NewFiles(prometheus.NewRegistry())
	require.NoError(t, err)
	core, logs := observer.New(zap.DebugLevel)

	svc := NewFileService(store, objects, zap.New(core), m, time.Second).(*fileService)
	svc.now = func() time.Time { return fixedNow }
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc, m, logs
}

func textBody(n int) *strings.Reader {
	return strings.NewReader(strings.Repeat("a", n))
}

func TestFileService_Upload(t *testing.T) {
	ctx := context.Background()
	const owner int64 = 1
	key := keyspace.ObjectKey(owner, "notes.txt")

	tests := []struct {
		name       string
		input      func() UploadInput
		setupMocks func(mStore *repoMocks.MockStore, mObjects *storeMocks.MockStorage)
		wantErr    []error
		wantName   string
		wantCount  map[string]float64
		orphans    float64
	}{
		{
			name: "happy path",
			input: func() UploadInput {
				return UploadInput{Filename: "notes.txt", ContentType: "text/plain", Size: 600, Body: textBody(600)}
			},
			setupMocks: func(mStore *repoMocks.MockStore, mObjects *storeMocks.MockStorage) {
				mStore.FilesRepo.On("ExistsByOwnerAndFilename", mock.Anything, owner, "notes.txt").Return(false, nil)
				mObjects.On("URL", key).Return("https://b.s3.amazonaws.com/" + key)
				mObjects.On("Encrypted").Return(true)
				mStore.FilesRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *model.File) bool {
					return f.Filename == "notes.txt" && f.OwnerID == owner && f.Encrypted && f.Size == 600 && f.UploadedAt.Equal(fixedNow)
				})).Return(&model.File{ID: "id-1", OwnerID: owner, Filename: "notes.txt", Size: 600}, nil)
				mObjects.On("Put", mock.Anything, key, mock.Anything, storage.PutObjectOptions{
					Size:        600,
					ContentType: "text/plain",
					Metadata:    map[string]string{FileIDMetadataKey: "id-1"},
				}).Return(storage.ObjectInfo{Key: key, Size: 600}, nil)
			},
			wantName:  "notes.txt",
			wantCount: map[string]float64{metrics.OutcomeSuccess: 1},
		},
		{
			name: "validation error - too small",
			input: func() UploadInput {
				return UploadInput{Filename: "notes.txt", ContentType: "text/plain", Size: 100, Body: textBody(100)}
			},
			setupMocks: func(*repoMocks.MockStore, *storeMocks.MockStorage) {},
			wantErr:    []error{validator.ErrFileTooSmall},
			wantCount:  map[string]float64{metrics.OutcomeRejected: 1},
		},
		{
			name: "storage error",
			input: func() UploadInput {
				return UploadInput{Filename: "notes.txt", ContentType: "text/plain", Size: 600, Body: textBody(600)}
			},
			setupMocks: func(mStore *repoMocks.MockStore, mObjects *storeMocks.MockStorage) {
				mStore.FilesRepo.On("ExistsByOwnerAndFilename", mock.Anything, owner, "notes.txt").Return(false, nil)
				mObjects.On("URL", key).Return("u")
				mObjects.On("Encrypted").Return(true)
				mStore.FilesRepo.On("Create", mock.Anything, mock.Anything).Return(&model.File{ID: "id-1"}, nil)
				mObjects.On("Put", mock.Anything, key, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, fmt.Errorf("%w: timeout", storage.ErrStoreUnavailable))
			},
			wantErr:   []error{ErrUploadFailed, storage.ErrStoreUnavailable},
			wantCount: map[string]float64{metrics.OutcomeError: 1},
		},
		{
			name: "commit fails and cleanup fails",
			input: func() UploadInput {
				return UploadInput{Filename: "notes.txt", ContentType: "text/plain", Size: 600, Body: textBody(600)}
			},
			setupMocks: func(mStore *repoMocks.MockStore, mObjects *storeMocks.MockStorage) {
				mStore.CommitErr = errors.New("connection reset")
				mStore.FilesRepo.On("ExistsByOwnerAndFilename", mock.Anything, owner, "notes.txt").Return(false, nil)
				mObjects.On("URL", key).Return("u")
				mObjects.On("Encrypted").Return(true)
				mStore.FilesRepo.On("Create", mock.Anything, mock.Anything).Return(&model.File{ID: "id-1"}, nil)
				mObjects.On("Put", mock.Anything, key, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
				mObjects.On("Delete", mock.Anything, key).Return(errors.New("bucket gone"))
			},
			wantErr:   []error{ErrUploadFailed},
			wantCount: map[string]float64{metrics.OutcomeError: 1},
			orphans:   1,
		},
		{
			name: "name race lost on every attempt",
			input: func() UploadInput {
				return UploadInput{Filename: "notes.txt", ContentType: "text/plain", Size: 600, Body: textBody(600)}
			},
			setupMocks: func(mStore *repoMocks.MockStore, mObjects *storeMocks.MockStorage) {
				mStore.FilesRepo.On("ExistsByOwnerAndFilename", mock.Anything, owner, "notes.txt").Return(false, nil)
				mObjects.On("URL", key).Return("u")
				mObjects.On("Encrypted").Return(true)
				mStore.FilesRepo.On("Create", mock.Anything, mock.Anything).Return(nil, repository.ErrDuplicateFilename)
			},
			wantErr:   []error{ErrUniqueConstraintConflict},
			wantCount: map[string]float64{metrics.OutcomeConflict: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := repoMocks.NewMockStore()
			mObjects := new(storeMocks.MockStorage)
			tt.setupMocks(mStore, mObjects)

			svc, m, _ := newTestService(t, mStore, mObjects)
			got, err := svc.Upload(ctx, owner, tt.input())

			if len(tt.wantErr) > 0 {
				for _, want := range tt.wantErr {
					assert.ErrorIs(t, err, want)
				}
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, tt.wantName, got.Filename)
			}

			for outcome, want := range tt.wantCount {
				assert.Equal(t, want, testutil.ToFloat64(m.Uploads.WithLabelValues(outcome)), outcome)
			}
			assert.Equal(t, tt.orphans, testutil.ToFloat64(m.OrphanedObjects))

			mStore.FilesRepo.AssertExpectations(t)
			mObjects.AssertExpectations(t)
		})
	}
}

func TestFileService_Upload_RetriesAfterConflict(t *testing.T) {
	ctx := context.Background()
	mStore := repoMocks.NewMockStore()
	mObjects := new(storeMocks.MockStorage)

	// first resolution says free, insert loses the race, second resolution sees the winner
	mStore.FilesRepo.On("ExistsByOwnerAndFilename", mock.Anything, int64(1), "notes.txt").Return(false, nil).Once()
	mStore.FilesRepo.On("ExistsByOwnerAndFilename", mock.Anything, int64(1), "notes.txt").Return(true, nil)
	mStore.FilesRepo.On("ExistsByOwnerAndFilename", mock.Anything, int64(1), "notes (1).txt").Return(false, nil)
	mObjects.On("URL", mock.Anything).Return("u")
	mObjects.On("Encrypted").Return(true)
	mStore.FilesRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *model.File) bool { return f.Filename == "notes.txt" })).
		Return(nil, repository.ErrDuplicateFilename)
	mStore.FilesRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *model.File) bool { return f.Filename == "notes (1).txt" })).
		Return(&model.File{ID: "id-2", Filename: "notes (1).txt"}, nil)
	mObjects.On("Put", mock.Anything, keyspace.ObjectKey(1, "notes (1).txt"), mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, nil)

	svc, _, logs := newTestService(t, mStore, mObjects)
	got, err := svc.Upload(ctx, 1, UploadInput{Filename: "notes.txt", ContentType: "text/plain", Size: 600, Body: textBody(600)})

	require.NoError(t, err)
	assert.Equal(t, "notes (1).txt", got.Filename)
	assert.Equal(t, 1, logs.FilterMessage("upload_name_conflict").Len())
	mObjects.AssertNotCalled(t, "Put", mock.Anything, keyspace.ObjectKey(1, "notes.txt"), mock.Anything, mock.Anything)
}

func TestFileService_Download(t *testing.T) {
	ctx := context.Background()
	req := AccessRequest{OwnerID: 1, Filename: "a.txt", IPAddress: "10.0.0.1", UserAgent: "curl"}
	key := keyspace.ObjectKey(1, "a.txt")
	rec := &model.File{ID: "file-1", OwnerID: 1, Filename: "a.txt"}

	tests := []struct {
		name       string
		setupMocks func(mStore *repoMocks.MockStore, mObjects *storeMocks.MockStorage)
		wantErr    error
		wantData   string
		logFails   float64
		logMsg     string
	}{
		{
			name: "success",
			setupMocks: func(mStore *repoMocks.MockStore, mObjects *storeMocks.MockStorage) {
				mStore.FilesRepo.On("FindByOwnerAndFilename", mock.Anything, int64(1), "a.txt").Return(rec, nil)
				mObjects.On("Get", mock.Anything, key).Return(io.NopCloser(strings.NewReader("hello")), storage.ObjectInfo{}, nil)
				mStore.AccessLogsRepo.On("Create", mock.Anything, mock.MatchedBy(func(l *model.AccessLog) bool {
					return l.FileID == "file-1" && l.AccessType == model.AccessDownload && l.IPAddress == "10.0.0.1" && l.UserAgent == "curl"
				})).Return(&model.AccessLog{}, nil)
			},
			wantData: "hello",
		},
		{
			name: "record missing",
			setupMocks: func(mStore *repoMocks.MockStore, mObjects *storeMocks.MockStorage) {
				mStore.FilesRepo.On("FindByOwnerAndFilename", mock.Anything, int64(1), "a.txt").Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFoundOrForbidden,
		},
		{
			name: "object missing",
			setupMocks: func(mStore *repoMocks.MockStore, mObjects *storeMocks.MockStorage) {
				mStore.FilesRepo.On("FindByOwnerAndFilename", mock.Anything, int64(1), "a.txt").Return(rec, nil)
				mObjects.On("Get", mock.Anything, key).Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)
			},
			wantErr: ErrNotFoundOrForbidden,
			logMsg:  "record_storage_inconsistency",
		},
		{
			name: "store unavailable",
			setupMocks: func(mStore *repoMocks.MockStore, mObjects *storeMocks.MockStorage) {
				mStore.FilesRepo.On("FindByOwnerAndFilename", mock.Anything, int64(1), "a.txt").Return(rec, nil)
				mObjects.On("Get", mock.Anything, key).Return(nil, storage.ObjectInfo{}, storage.ErrStoreUnavailable)
			},
			wantErr: storage.ErrStoreUnavailable,
		},
		{
			name: "access log failure still returns content",
			setupMocks: func(mStore *repoMocks.MockStore, mObjects *storeMocks.MockStorage) {
				mStore.FilesRepo.On("FindByOwnerAndFilename", mock.Anything, int64(1), "a.txt").Return(rec, nil)
				mObjects.On("Get", mock.Anything, key).Return(io.NopCloser(strings.NewReader("hello")), storage.ObjectInfo{}, nil)
				mStore.AccessLogsRepo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
			},
			wantData: "hello",
			logFails: 1,
			logMsg:   "access_log_write_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := repoMocks.NewMockStore()
			mObjects := new(storeMocks.MockStorage)
			tt.setupMocks(mStore, mObjects)

			svc, m, logs := newTestService(t, mStore, mObjects)
			got, err := svc.Download(ctx, req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				mStore.AccessLogsRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantData, string(got.Data))
				assert.Equal(t, "text/plain", got.ContentType)
			}
			assert.Equal(t, tt.logFails, testutil.ToFloat64(m.AccessLogFailures))
			if tt.logMsg != "" {
				assert.Equal(t, 1, logs.FilterMessage(tt.logMsg).Len())
			}
			mStore.FilesRepo.AssertExpectations(t)
			mObjects.AssertExpectations(t)
		})
	}
}

func TestFileService_View_Corruption(t *testing.T) {
	mStore := repoMocks.NewMockStore()
	mObjects := new(storeMocks.MockStorage)
	rec := &model.File{ID: "file-1", OwnerID: 1, Filename: "a.txt"}

	mStore.FilesRepo.On("FindByOwnerAndFilename", mock.Anything, int64(1), "a.txt").Return(rec, nil)
	mObjects.On("Get", mock.Anything, keyspace.ObjectKey(1, "a.txt")).
		Return(io.NopCloser(strings.NewReader("\xff\xfe")), storage.ObjectInfo{}, nil)

	svc, m, logs := newTestService(t, mStore, mObjects)
	ctx := logger.WithRequestID(context.Background(), "req-1")
	got, err := svc.View(ctx, AccessRequest{OwnerID: 1, Filename: "a.txt"})

	assert.ErrorIs(t, err, ErrRecordStorageCorruption)
	assert.Nil(t, got)
	entries := logs.FilterMessage("record_storage_corruption").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Accesses.WithLabelValues("view", metrics.OutcomeCorrupt)))
	mStore.AccessLogsRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestFileService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mStore := repoMocks.NewMockStore()
		files := []model.File{{ID: "1", Filename: "a.txt"}}
		mStore.FilesRepo.On("ListByOwner", mock.Anything, int64(1)).Return(files, nil)

		svc, _, _ := newTestService(t, mStore, new(storeMocks.MockStorage))
		got, err := svc.List(ctx, 1)

		assert.NoError(t, err)
		assert.Equal(t, files, got)
	})

	t.Run("nil becomes empty", func(t *testing.T) {
		mStore := repoMocks.NewMockStore()
		mStore.FilesRepo.On("ListByOwner", mock.Anything, int64(2)).Return(nil, nil)

		svc, _, _ := newTestService(t, mStore, new(storeMocks.MockStorage))
		got, err := svc.List(ctx, 2)

		assert.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("repo error", func(t *testing.T) {
		mStore := repoMocks.NewMockStore()
		mStore.FilesRepo.On("ListByOwner", mock.Anything, int64(3)).Return(nil, errors.New("db error"))

		svc, _, _ := newTestService(t, mStore, new(storeMocks.MockStorage))
		_, err := svc.List(ctx, 3)

		assert.EqualError(t, err, "list files: db error")
	})
}
