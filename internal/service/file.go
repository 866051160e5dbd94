package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"filevault/internal/keyspace"
	"filevault/internal/logger"
	"filevault/internal/metrics"
	"filevault/internal/model"
	"filevault/internal/naming"
	"filevault/internal/repository"
	"filevault/internal/storage"
	"filevault/internal/validator"
)

// MaxUploadAttempts bounds how often an upload re-resolves its name after
// losing a uniqueness race to a concurrent upload.
const MaxUploadAttempts = 3

// FileIDMetadataKey tags each object with its record id so orphaned objects
// can be reconciled against the record store.
const FileIDMetadataKey = "file-id"

var tracer = otel.Tracer("filevault/internal/service")

// UploadInput is the raw upload as received from the client.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// AccessRequest identifies a file read by its owner.
type AccessRequest struct {
	OwnerID   int64
	Filename  string
	IPAddress string
	UserAgent string
}

// Content is a downloaded object.
type Content struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TextContent is an object decoded as UTF-8 text.
type TextContent struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// FileService defines the use cases for handling user files.
type FileService interface {
	// Upload validates, names and stores a file for ownerID.
	Upload(ctx context.Context, ownerID int64, in UploadInput) (*model.File, error)

	// Download returns the raw bytes of one of the owner's files.
	Download(ctx context.Context, req AccessRequest) (*Content, error)

	// View returns the content of one of the owner's files as text.
	View(ctx context.Context, req AccessRequest) (*TextContent, error)

	// List returns the owner's files oldest first.
	List(ctx context.Context, ownerID int64) ([]model.File, error)
}

// fileService is a concrete implementation of FileService.
type fileService struct {
	store    repository.Store
	objects  storage.Storage
	resolver *naming.Resolver
	log      *zap.Logger
	metrics  *metrics.Files
	timeout  time.Duration

	now   func() time.Time
	newID func() string
}

// NewFileService constructs a new FileService. timeout bounds each call to the
// record store and the object store.
func NewFileService(store repository.Store, objects storage.Storage, log *zap.Logger, m *metrics.Files, timeout time.Duration) FileService {
	s := &fileService{
		store:   store,
		objects: objects,
		log:     log.With(zap.String("component", "file_service")),
		metrics: m,
		timeout: timeout,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	s.resolver = naming.NewResolver(func(ctx context.Context, ownerID int64, filename string) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.store.Files().ExistsByOwnerAndFilename(ctx, ownerID, filename)
	})
	return s
}

func (s *fileService) Upload(ctx context.Context, ownerID int64, in UploadInput) (*model.File, error) {
	ctx, span := tracer.Start(ctx, "FileService.Upload")
	defer span.End()

	if err := validator.Validate(validator.Payload{
		Filename:    in.Filename,
		ContentType: in.ContentType,
		Size:        in.Size,
		Body:        in.Body,
	}); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			s.metrics.Uploads.WithLabelValues(metrics.OutcomeRejected).Inc()
			span.SetAttributes(attribute.String("filevault.rejection", vErr.Code))
			return nil, err
		}
		s.metrics.Uploads.WithLabelValues(metrics.OutcomeError).Inc()
		failSpan(span, err)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	name := naming.Sanitize(in.Filename)
	log := logger.For(ctx, s.log).With(zap.String("owner_hash", keyspace.HashOwner(ownerID)))

	for attempt := 1; attempt <= MaxUploadAttempts; attempt++ {
		f, err := s.uploadOnce(ctx, ownerID, name, in, log)
		if err == nil {
			s.metrics.Uploads.WithLabelValues(metrics.OutcomeSuccess).Inc()
			span.SetAttributes(attribute.Int("filevault.upload_attempts", attempt))
			return f, nil
		}
		if !errors.Is(err, repository.ErrDuplicateFilename) {
			s.metrics.Uploads.WithLabelValues(metrics.OutcomeError).Inc()
			failSpan(span, err)
			return nil, err
		}
		log.Warn("upload_name_conflict", zap.Int("attempt", attempt), zap.String("filename", name))
	}

	s.metrics.Uploads.WithLabelValues(metrics.OutcomeConflict).Inc()
	log.Error("upload_conflict_exhausted", zap.String("filename", name), zap.Int("attempts", MaxUploadAttempts))
	failSpan(span, ErrUniqueConstraintConflict)
	return nil, ErrUniqueConstraintConflict
}

// uploadOnce resolves a free name and stores record and object as one unit.
// The record is inserted first so the unique constraint reserves the name before
// any bytes are written; it only becomes visible when the transaction commits.
func (s *fileService) uploadOnce(ctx context.Context, ownerID int64, name string, in UploadInput, log *zap.Logger) (*model.File, error) {
	resolved, err := s.resolver.Resolve(ctx, ownerID, name)
	if err != nil {
		log.Error("upload_failed", zap.String("stage", "resolve"), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	key := keyspace.ObjectKey(ownerID, resolved)
	log = log.With(zap.String("key", key))

	var (
		stored  *model.File
		written bool
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		insertCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		id := s.newID()
		created, err := tx.Files().Create(insertCtx, &model.File{
			ID:         id,
			OwnerID:    ownerID,
			Filename:   resolved,
			URL:        s.objects.URL(key),
			Size:       in.Size,
			UploadedAt: s.now().UTC(),
			Encrypted:  s.objects.Encrypted(),
		})
		if err != nil {
			return err
		}

		if _, err := in.Body.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewind body: %w", err)
		}
		putCtx, cancelPut := context.WithTimeout(ctx, s.timeout)
		defer cancelPut()
		if _, err := s.objects.Put(putCtx, key, in.Body, storage.PutObjectOptions{
			Size:        in.Size,
			ContentType: validator.ContentType,
			Metadata:    map[string]string{FileIDMetadataKey: id},
		}); err != nil {
			return err
		}
		written = true
		stored = created
		return nil
	})

	switch {
	case err == nil:
		return stored, nil
	case written:
		// The object exists but its record was never committed.
		s.removeObject(ctx, key, log)
		log.Error("upload_failed", zap.String("stage", "commit"), zap.Error(err))
		return nil, fmt.Errorf("%w: commit record: %v", ErrUploadFailed, err)
	case errors.Is(err, repository.ErrDuplicateFilename):
		return nil, err
	case errors.Is(err, storage.ErrStoreUnavailable):
		log.Error("upload_failed", zap.String("stage", "put"), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	default:
		log.Error("upload_failed", zap.String("stage", "record"), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
}

// removeObject deletes an object whose record failed to commit.
func (s *fileService) removeObject(ctx context.Context, key string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.objects.Delete(ctx, key); err != nil {
		s.metrics.OrphanedObjects.Inc()
		log.Error("orphaned_object", zap.Error(err))
	}
}

func (s *fileService) Download(ctx context.Context, req AccessRequest) (*Content, error) {
	ctx, span := tracer.Start(ctx, "FileService.Download")
	defer span.End()

	rec, data, err := s.fetch(ctx, req)
	if err != nil {
		s.countAccess(model.AccessDownload, err)
		failSpan(span, err)
		return nil, err
	}

	s.recordAccess(ctx, rec, req, model.AccessDownload)
	s.countAccess(model.AccessDownload, nil)
	return &Content{Filename: rec.Filename, ContentType: validator.ContentType, Data: data}, nil
}

func (s *fileService) View(ctx context.Context, req AccessRequest) (*TextContent, error) {
	ctx, span := tracer.Start(ctx, "FileService.View")
	defer span.End()

	rec, data, err := s.fetch(ctx, req)
	if err == nil && !utf8.Valid(data) {
		logger.For(ctx, s.log).Error("record_storage_corruption",
			zap.String("owner_hash", keyspace.HashOwner(req.OwnerID)),
			zap.String("key", keyspace.ObjectKey(req.OwnerID, rec.Filename)),
			zap.String("file_id", rec.ID),
		)
		err = ErrRecordStorageCorruption
	}
	if err != nil {
		s.countAccess(model.AccessView, err)
		failSpan(span, err)
		return nil, err
	}

	s.recordAccess(ctx, rec, req, model.AccessView)
	s.countAccess(model.AccessView, nil)
	return &TextContent{Filename: rec.Filename, Content: string(data)}, nil
}

// fetch looks the record up for its owner and reads the paired object.
func (s *fileService) fetch(ctx context.Context, req AccessRequest) (*model.File, []byte, error) {
	findCtx, cancel := context.WithTimeout(ctx, s.timeout)
	rec, err := s.store.Files().FindByOwnerAndFilename(findCtx, req.OwnerID, req.Filename)
	cancel()
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotFoundOrForbidden
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find record: %w", err)
	}

	key := keyspace.ObjectKey(req.OwnerID, rec.Filename)
	getCtx, cancelGet := context.WithTimeout(ctx, s.timeout)
	defer cancelGet()

	rc, _, err := s.objects.Get(getCtx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		logger.For(ctx, s.log).Error("record_storage_inconsistency",
			zap.String("owner_hash", keyspace.HashOwner(req.OwnerID)),
			zap.String("key", key),
			zap.String("file_id", rec.ID),
		)
		return nil, nil, ErrNotFoundOrForbidden
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get object: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read object: %v", storage.ErrStoreUnavailable, err)
	}
	return rec, data, nil
}

// recordAccess appends the audit entry. A failure never fails the read.
func (s *fileService) recordAccess(ctx context.Context, rec *model.File, req AccessRequest, t model.AccessType) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.store.AccessLogs().Create(ctx, &model.AccessLog{
		ID:         s.newID(),
		FileID:     rec.ID,
		UserID:     req.OwnerID,
		AccessType: t,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		AccessedAt: s.now().UTC(),
	})
	if err != nil {
		s.metrics.AccessLogFailures.Inc()
		logger.For(ctx, s.log).Error("access_log_write_failed",
			zap.String("owner_hash", keyspace.HashOwner(req.OwnerID)),
			zap.String("file_id", rec.ID),
			zap.String("access_type", string(t)),
			zap.Error(err),
		)
	}
}

func (s *fileService) countAccess(t model.AccessType, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFoundOrForbidden):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, ErrRecordStorageCorruption):
		outcome = metrics.OutcomeCorrupt
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.Accesses.WithLabelValues(string(t), outcome).Inc()
}

func (s *fileService) List(ctx context.Context, ownerID int64) ([]model.File, error) {
	ctx, span := tracer.Start(ctx, "FileService.List")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	files, err := s.store.Files().ListByOwner(ctx, ownerID)
	if err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("list files: %w", err)
	}
	if files == nil {
		files = []model.File{}
	}
	return files, nil
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
