package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadJSON_Roundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.json")

	type Data struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	original := Data{Name: "test", Count: 42}
	require.NoError(t, SaveJSON(path, original))

	var loaded Data
	require.NoError(t, LoadJSON(path, &loaded))
	assert.Equal(t, original, loaded)
}

func TestLoadJSON_NotFound(t *testing.T) {
	t.Parallel()

	var data map[string]any
	err := LoadJSON(filepath.Join(t.TempDir(), "nonexistent.json"), &data)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "expected not-exist error, got %v", err)
}

func TestSaveJSON_CreatesDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "c", "data.json")
	require.NoError(t, SaveJSON(path, map[string]string{"key": "value"}))

	var loaded map[string]string
	require.NoError(t, LoadJSON(path, &loaded))
	assert.Equal(t, "value", loaded["key"])
}

func TestSaveJSON_MarshalError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")

	// Channels can't be marshaled to JSON
	require.Error(t, SaveJSON(path, make(chan int)))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "target must not be created on marshal failure")
}

func TestWriteFileAtomic_NoTempLeftBehind(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "atomic.json")

	require.NoError(t, SaveJSON(path, map[string]int{"v": 1}))
	require.NoError(t, SaveJSON(path, map[string]int{"v": 2}))

	leftovers, err := TempFiles(path)
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	var loaded map[string]int
	require.NoError(t, LoadJSON(path, &loaded))
	assert.Equal(t, 2, loaded["v"])
}

func TestWriteFileAtomic_Permissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, WriteFileAtomic(path, []byte("# doc\n"), 0o644))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

// TestWriteFileAtomic_RenameFailureKeepsPrevious simulates a crash between the
// temp write and the rename.
//
// Scenario: a committed file exists, the next save fails at rename
// Expected: the committed file is intact and parsable, no temp file remains
func TestWriteFileAtomic_RenameFailureKeepsPrevious(t *testing.T) {
	// Not parallel: swaps the package-level rename func.
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, SaveJSON(path, map[string]string{"state": "committed"}))

	orig := rename
	rename = func(string, string) error { return errors.New("simulated crash") }
	t.Cleanup(func() { rename = orig })

	err := SaveJSON(path, map[string]string{"state": "torn"})
	require.Error(t, err)

	var loaded map[string]string
	require.NoError(t, LoadJSON(path, &loaded))
	assert.Equal(t, "committed", loaded["state"])

	leftovers, err := TempFiles(path)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestTempFiles_FindsDebris(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache.json.12345.tmp"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json.1.tmp"), []byte("{"), 0o600))

	leftovers, err := TempFiles(path)
	require.NoError(t, err)
	require.Len(t, leftovers, 1)
	assert.Equal(t, "cache.json.12345.tmp", filepath.Base(leftovers[0]))
}
