package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesRoundTrip(t *testing.T) {
	files, err := NewFiles(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)

	uid := NewUID()
	n, err := files.Save(uid, strings.NewReader("hello"), 10)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	f, err := files.Open(uid)
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	require.NoError(t, files.Remove(uid))
	require.NoError(t, files.Remove(uid), "removing twice is fine")

	_, err = files.Open(uid)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilesSizeLimit(t *testing.T) {
	dir := t.TempDir()
	files, err := NewFiles(dir)
	require.NoError(t, err)

	uid := NewUID()
	_, err = files.Save(uid, strings.NewReader("0123456789"), 9)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = os.Stat(filepath.Join(dir, uid))
	assert.ErrorIs(t, err, os.ErrNotExist, "oversized content is not kept")

	n, err := files.Save(uid, strings.NewReader("0123456789"), 10)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
}

func TestFilesRejectsPathTricks(t *testing.T) {
	files, err := NewFiles(t.TempDir())
	require.NoError(t, err)

	_, err = files.Save("../escape", strings.NewReader("x"), 10)
	assert.Error(t, err)
	_, err = files.Open("../../etc/passwd")
	assert.Error(t, err)
}
