package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStoreAndLoad(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cache.Store("CS1", []byte("first")))
	content, err := cache.Load("CS1")
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))

	require.NoError(t, cache.Store("CS1", []byte("second")))
	content, err = cache.Load("CS1")
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestCacheLoadMissingSection(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	_, err = cache.Load("CS1")
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestCacheStoreLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir)
	require.NoError(t, err)

	require.NoError(t, cache.Store("CS1", []byte("content")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "CS1.ics", entries[0].Name())
}

func TestNewCacheCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	_, err := NewCache(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
