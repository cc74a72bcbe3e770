package credential

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFileSourceParsesKeysSkippingComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_keys.txt")
	writeKeyFile(t, path, "# production keys\nalpha-key\n\n  beta-key  \n# disabled\n")

	src := NewFileSource(path)
	keys, err := src.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha-key", "beta-key"}, keys)
}

func TestFileSourceMissingFileYieldsLastKnownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api_keys.txt")

	src := NewFileSource(path)
	keys, err := src.Load()
	require.NoError(t, err)
	assert.Empty(t, keys)

	writeKeyFile(t, path, "alpha-key\n")
	keys, err = src.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha-key"}, keys)

	require.NoError(t, os.Remove(path))
	keys, err = src.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha-key"}, keys)
}

func TestFileSourcePicksUpNewerContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_keys.txt")
	writeKeyFile(t, path, "alpha-key\n")

	src := NewFileSource(path)
	keys, err := src.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha-key"}, keys)

	writeKeyFile(t, path, "alpha-key\nbeta-key\n")
	// Force a newer mtime; coarse filesystem clocks can otherwise hide the write.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	keys, err = src.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha-key", "beta-key"}, keys)
}

func TestWatchRefreshesPoolOnFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_keys.txt")
	writeKeyFile(t, path, "alpha-key\n")

	src := NewFileSource(path)
	pool := NewPool(src, PoolConfig{}, setupTestLogger())
	require.NoError(t, pool.Refresh())
	require.Equal(t, 1, pool.Size())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = pool.Watch(ctx, path) }()

	// Give the watcher a moment to attach before mutating the file.
	time.Sleep(100 * time.Millisecond)
	writeKeyFile(t, path, "alpha-key\nbeta-key\n")
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool {
		return pool.Size() == 2
	}, 5*time.Second, 50*time.Millisecond)
}
