package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.snip")
	dst := filepath.Join(dir, "dst.snip")

	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o600))
	require.NoError(t, os.WriteFile(dst, []byte("previous longer content"), 0o644))

	n, err := CopyFile(src, dst)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, filepath.Join(dir, "dst"))
}

func TestCopyFile_DirectorySource(t *testing.T) {
	dir := t.TempDir()
	_, err := CopyFile(dir, filepath.Join(t.TempDir(), "dst"))
	assert.Error(t, err)
}

func TestRemoveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.snip")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.NoError(t, RemoveFile(path))
	assert.NoFileExists(t, path)

	// already gone
	assert.NoError(t, RemoveFile(path))
}
