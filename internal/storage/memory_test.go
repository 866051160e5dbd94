package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/config"
)

func TestMemory_PutGetDelete(t *testing.T) {
	m := NewMemory(config.StorageConfig{Bucket: "files", SSE: config.SSEKMS})
	ctx := context.Background()

	info, err := m.Put(ctx, "abc/notes.txt", strings.NewReader("hello"), PutObjectOptions{Size: 5, ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.True(t, info.Encrypted)
	assert.True(t, m.Encrypted())
	assert.Equal(t, 1, m.Len())

	rc, got, err := m.Get(ctx, "abc/notes.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "text/plain", got.ContentType)

	require.NoError(t, m.Delete(ctx, "abc/notes.txt"))
	_, _, err = m.Get(ctx, "abc/notes.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_PutSizeMismatch(t *testing.T) {
	m := NewMemory(config.StorageConfig{})
	_, err := m.Put(context.Background(), "k", strings.NewReader("abc"), PutObjectOptions{Size: 10})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 0, m.Len())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestMemory_PutReadError(t *testing.T) {
	m := NewMemory(config.StorageConfig{})
	_, err := m.Put(context.Background(), "k", failingReader{}, PutObjectOptions{Size: -1})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestMemory_CanceledContext(t *testing.T) {
	m := NewMemory(config.StorageConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Put(ctx, "k", strings.NewReader("x"), PutObjectOptions{Size: 1})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, _, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestMemory_URL(t *testing.T) {
	m := NewMemory(config.StorageConfig{SSE: config.SSENone})
	assert.Equal(t, "memory://filevault/abc/my%20notes.txt", m.URL("abc/my notes.txt"))
}
