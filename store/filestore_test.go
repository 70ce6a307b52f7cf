package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set("bearer_token", "tok-123"))
	require.NoError(t, fs.Set("refresh_token", "rt-456"))

	// A fresh store over the same path sees the persisted values.
	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok := reopened.Get("bearer_token")
	require.True(t, ok)
	require.Equal(t, "tok-123", v)
	v, ok = reopened.Get("refresh_token")
	require.True(t, ok)
	require.Equal(t, "rt-456", v)
}

func TestFileStoreSealsAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set("bearer_token", "super-secret-token"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "super-secret-token")
	require.NotContains(t, string(raw), "bearer_token")

	info, err := os.Stat(path + ".key")
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set("bearer_token", "tok"))
	require.NoError(t, fs.Delete("bearer_token"))
	require.NoError(t, fs.Delete("bearer_token"), "deleting a missing key is a no-op")

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	_, ok := reopened.Get("bearer_token")
	require.False(t, ok)
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "state.json"))
	require.NoError(t, err)
	_, ok := fs.Get("anything")
	require.False(t, ok)
}

func TestFileStoreRejectsCorruptKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path+".key", []byte("not hex"), 0o600))

	_, err := NewFileStore(path)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "corrupt"))
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()
	_, ok := s.Get("k")
	require.False(t, ok)

	require.NoError(t, s.Set("k", "v"))
	v, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.NoError(t, s.Delete("k"))
	_, ok = s.Get("k")
	require.False(t, ok)
}
