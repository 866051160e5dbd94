// Package memory provides an in-process repository.Store for local development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"filevault/internal/model"
	"filevault/internal/repository"
)

type data struct {
	files []model.File
	logs  []model.AccessLog
}

func (d *data) clone() *data {
	return &data{
		files: append([]model.File(nil), d.files...),
		logs:  append([]model.AccessLog(nil), d.logs...),
	}
}

// Store keeps records in memory. A transaction holds the store lock for its
// whole duration and works on a copy that replaces the live data on commit.
type Store struct {
	mu   *sync.Mutex
	data *data
	inTx bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: &data{}}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Files() repository.FileRepository { return fileRepo{s} }

func (s *Store) AccessLogs() repository.AccessLogRepository { return accessLogRepo{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, data: s.data.clone(), inTx: true}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

// PingContext always succeeds.
func (s *Store) PingContext(context.Context) error { return nil }

type fileRepo struct{ s *Store }

func (r fileRepo) Create(ctx context.Context, f *model.File) (*model.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock()()

	for _, existing := range r.s.data.files {
		if existing.OwnerID == f.OwnerID && existing.Filename == f.Filename {
			return nil, fmt.Errorf("%w: %s", repository.ErrDuplicateFilename, f.Filename)
		}
	}
	r.s.data.files = append(r.s.data.files, *f)
	out := *f
	return &out, nil
}

func (r fileRepo) FindByOwnerAndFilename(ctx context.Context, ownerID int64, filename string) (*model.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock()()

	for _, f := range r.s.data.files {
		if f.OwnerID == ownerID && f.Filename == filename {
			out := f
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r fileRepo) ExistsByOwnerAndFilename(ctx context.Context, ownerID int64, filename string) (bool, error) {
	_, err := r.FindByOwnerAndFilename(ctx, ownerID, filename)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r fileRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock()()

	items := make([]model.File, 0)
	for _, f := range r.s.data.files {
		if f.OwnerID == ownerID {
			items = append(items, f)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UploadedAt.Equal(items[j].UploadedAt) {
			return items[i].UploadedAt.Before(items[j].UploadedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

type accessLogRepo struct{ s *Store }

func (r accessLogRepo) Create(ctx context.Context, l *model.AccessLog) (*model.AccessLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock()()

	found := false
	for _, f := range r.s.data.files {
		if f.ID == l.FileID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("file %s: %w", l.FileID, repository.ErrNotFound)
	}
	r.s.data.logs = append(r.s.data.logs, *l)
	out := *l
	return &out, nil
}

func (r accessLogRepo) CountByFile(ctx context.Context, fileID string, accessType model.AccessType) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	defer r.s.lock()()

	n := 0
	for _, l := range r.s.data.logs {
		if l.FileID == fileID && l.AccessType == accessType {
			n++
		}
	}
	return n, nil
}
