package host_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorebook-binder/host"
)

func TestFileMemoryPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "host.json")
	m, err := host.NewFileMemory(path, 0, nil, nil)
	require.NoError(t, err)
	m.Replace(testSnapshot())

	m.ReplaceAll([]string{"C", "D"})
	m.Persist()

	reloaded, err := host.NewFileMemory(path, 0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, reloaded.Names())
	assert.Equal(t, []string{"A", "B", "C", "D"}, reloaded.Lorebooks())
}

func TestFileMemoryCloseWithoutPersistWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.json")
	m, err := host.NewFileMemory(path, 0, nil, nil)
	require.NoError(t, err)
	m.ReplaceAll([]string{"A"})
	require.NoError(t, m.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "host file should not exist, stat err = %v", err)
}

func TestFileMemoryCloseFlushesDebouncedPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.json")
	m, err := host.NewFileMemory(path, time.Hour, nil, nil)
	require.NoError(t, err)
	m.Replace(testSnapshot())
	m.Persist()

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "debounced persist wrote early")

	require.NoError(t, m.Close())
	reloaded, err := host.LoadSnapshotFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, reloaded.Active)

	m.Persist()
	require.NoError(t, m.Close())
}

func TestMemoryWithoutFilePersistIsNoop(t *testing.T) {
	m := host.NewMemory(testSnapshot(), nil)
	m.Persist()
	assert.NoError(t, m.Close())
}
