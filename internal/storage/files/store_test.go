package files

import (
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveOpenRemove(t *testing.T) {
	store := NewStore(afero.NewMemMapFs())

	file, err := store.Save(7, "notes.txt", "", strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", file.Name)
	assert.Equal(t, "7/notes.txt", file.Path)
	assert.Equal(t, int64(11), file.Size)
	assert.Equal(t, "text/plain; charset=utf-8", file.Type)

	f, err := store.Open(file.Path)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "hello world", string(data))

	require.NoError(t, store.Remove(file.Path))
	_, err = store.Open(file.Path)
	require.Error(t, err)

	// Removing twice is not an error.
	require.NoError(t, store.Remove(file.Path))
}

func TestStore_SaveKeepsGivenContentType(t *testing.T) {
	store := NewStore(afero.NewMemMapFs())

	file, err := store.Save(1, "report.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.Type)
}

func TestStore_SaveRejectsExistingAndInvalidNames(t *testing.T) {
	store := NewStore(afero.NewMemMapFs())

	_, err := store.Save(1, "a.txt", "", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = store.Save(1, "a.txt", "", strings.NewReader("b"))
	require.Error(t, err)

	for _, name := range []string{"", ".", "..", "../x", "dir/x"} {
		_, err = store.Save(1, name, "", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidPath, name)
	}
}

func TestStore_RemoveRejectsEscapingPaths(t *testing.T) {
	store := NewStore(afero.NewMemMapFs())

	for _, p := range []string{"../etc/passwd", "7", "notes/../../x", "abc/file"} {
		assert.ErrorIs(t, store.Remove(p), ErrInvalidPath, p)
	}
}

func TestStore_TaskIDsAndRemoveTask(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs)

	ids, err := store.TaskIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []int64{3, 11} {
		_, err = store.Save(id, "a.txt", "", strings.NewReader("a"))
		require.NoError(t, err)
	}
	require.NoError(t, fs.MkdirAll("tmp", dirPerm))

	ids, err = store.TaskIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{3, 11}, ids)

	require.NoError(t, store.RemoveTask(3))
	ids, err = store.TaskIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{11}, ids)

	exists, err := afero.DirExists(fs, "3")
	require.NoError(t, err)
	assert.False(t, exists)
}
