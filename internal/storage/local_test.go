package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binpoints/apiserver/config"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "uploads")
	s, err := Open(ctx, config.StorageConfig{Backend: "local", UploadDirectory: root})
	require.NoError(t, err)
	require.Equal(t, root, s.Bucket())

	exists, err := s.Exists(ctx, "bins/1.jpg")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = s.Get(ctx, "bins/1.jpg")
	require.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, s.Put(ctx, "bins/1.jpg", strings.NewReader("jpeg"), 4, "image/jpeg"))

	exists, err = s.Exists(ctx, "bins/1.jpg")
	require.NoError(t, err)
	require.True(t, exists)

	rc, err := s.Get(ctx, "bins/1.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "jpeg", string(data))

	require.NoError(t, s.Delete(ctx, "bins/1.jpg"))
	require.NoError(t, s.Delete(ctx, "bins/1.jpg"))
}

func TestCreateRefusesTakenKeys(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	backends := map[string]*Storage{
		"local":  NewStorage(local),
		"memory": NewStorage(NewMemoryStorage()),
	}
	for name, s := range backends {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Create(ctx, "submissions/1.jpg", strings.NewReader("first"), 5, "image/jpeg"))
			err := s.Create(ctx, "submissions/1.jpg", strings.NewReader("second"), 6, "image/jpeg")
			require.ErrorIs(t, err, ErrObjectExists)

			rc, err := s.Get(ctx, "submissions/1.jpg")
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			require.Equal(t, "first", string(data))
		})
	}
}

func TestLocalStorageCreateLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStorage(root)
	require.NoError(t, err)

	require.NoError(t, s.Create(ctx, "submissions/2.jpg", strings.NewReader("a"), 1, "image/jpeg"))
	require.ErrorIs(t, s.Create(ctx, "submissions/2.jpg", strings.NewReader("b"), 1, "image/jpeg"), ErrObjectExists)

	entries, err := os.ReadDir(filepath.Join(root, "submissions"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "2.jpg", entries[0].Name())
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	err = s.Put(context.Background(), "../outside.jpg", strings.NewReader("x"), 1, "image/jpeg")
	require.Error(t, err)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: "ftp"})
	require.Error(t, err)
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(NewMemoryStorage())
	require.NoError(t, s.Put(ctx, "rewards/2.jpg", strings.NewReader("img"), 3, "image/jpeg"))

	ok, err := s.Exists(ctx, "rewards/2.jpg")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Delete(ctx, "rewards/2.jpg"))
	_, err = s.Get(ctx, "rewards/2.jpg")
	require.ErrorIs(t, err, ErrObjectNotFound)
}
