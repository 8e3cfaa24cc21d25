package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_PersistAndOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "out"))
	require.NoError(t, err)

	path, err := store.Persist("run-42", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, store.Path("run-42"), path)

	data, err := store.Open("run-42")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestFileStore_PathFlattensRunID(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	path := store.Path("../../etc/passwd")
	assert.Equal(t, filepath.Dir(store.Path("x")), filepath.Dir(path))
	assert.Contains(t, filepath.Base(path), "passwd")
}

func TestFileStore_OpenMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("nope")
	require.Error(t, err)
}

func TestFileStore_RemoveIgnoresMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Remove("nope"))

	_, err = store.Persist("run-1", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, store.Remove("run-1"))
	_, err = store.Open("run-1")
	assert.Error(t, err)
}
