package tokenstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRoundTrip(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "nested", "token"))

	tok, ok, err := f.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, tok)

	require.NoError(t, f.Save("abc.def"))
	tok, ok, err = f.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	info, err := os.Stat(f.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, f.Delete())
	require.NoError(t, f.Delete(), "deleting a missing token is not an error")
	_, ok, err = f.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCounts(t *testing.T) {
	m := NewMemory("")
	require.NoError(t, m.Save("t1"))
	require.NoError(t, m.Delete())
	require.NoError(t, m.Delete())
	saves, deletes := m.Counts()
	assert.Equal(t, 1, saves)
	assert.Equal(t, 2, deletes)
}
