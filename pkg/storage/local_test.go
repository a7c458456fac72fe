package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLocalStorageRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	info, err := s.Upload(ctx, "orders.xlsx", "application/vnd.ms-excel", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, info.ID)
	assert.Equal(t, "orders.xlsx", info.Name)
	assert.Equal(t, int64(7), info.Size)
	assert.True(t, strings.HasSuffix(info.Path, "_orders.xlsx"))

	t.Run("download by id", func(t *testing.T) {
		rc, got, err := s.Download(ctx, info.ID)
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
		assert.Equal(t, info.ID, got.ID)
	})

	t.Run("open by stored name", func(t *testing.T) {
		rc, err := s.Open(ctx, info.Path)
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("get info", func(t *testing.T) {
		got, err := s.GetInfo(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, "orders.xlsx", got.Name)
		assert.Equal(t, "application/vnd.ms-excel", got.ContentType)
	})

	t.Run("list", func(t *testing.T) {
		files, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, info.ID, files[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, info.ID))
		_, _, err := s.Download(ctx, info.ID)
		assert.Error(t, err)
	})
}

func TestLocalStorageOpenRejectsTraversal(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Open(ctx, "../../../etc/passwd")
	assert.Error(t, err)
	_, err = s.Open(ctx, "no-such-file.xlsx")
	assert.Error(t, err)
}

func TestLocalStorageSanitizesFilenames(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	info, err := s.Upload(ctx, "../evil/../name?.xlsx", "application/octet-stream", strings.NewReader("x"))
	require.NoError(t, err)
	assert.NotContains(t, info.Path, "..")
	assert.NotContains(t, info.Path, "/")
	assert.NotContains(t, info.Path, "?")

	rc, _, err := s.Download(ctx, info.ID)
	require.NoError(t, err)
	rc.Close()
}

func TestLocalStoragePurge(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	old, err := s.Upload(ctx, "old.xlsx", "application/octet-stream", strings.NewReader("old"))
	require.NoError(t, err)

	// Age the first upload by rewriting its metadata timestamp.
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.saveMetadata(old.ID, old))

	fresh, err := s.Upload(ctx, "fresh.xlsx", "application/octet-stream", strings.NewReader("new"))
	require.NoError(t, err)

	purged, err := s.Purge(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = s.GetInfo(ctx, old.ID)
	assert.Error(t, err)
	_, err = s.GetInfo(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestLocalStorageMissingID(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetInfo(ctx, uuid.New())
	assert.Error(t, err)
	assert.Error(t, s.Delete(ctx, uuid.New()))
}
