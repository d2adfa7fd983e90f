// Package storage provides atomic file operations for skillsync's on-disk state.
//
// Every write goes to a temp file in the target's directory, is synced, and is
// then renamed over the target. Readers either see the previous file or the
// new one, never a partial write.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempSuffix marks in-flight temp files. A file with this suffix that
// outlives its writer is debris from an interrupted save.
const TempSuffix = ".tmp"

// rename is swapped in tests to simulate a crash between write and rename.
var rename = os.Rename

// WriteFileAtomic writes data to path via a unique temp file in the same
// directory followed by a rename. On failure the previous file is untouched.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Unique name per writer so two processes never share a temp file
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*"+TempSuffix)
	if err != nil {
		return err
	}
	tempPath := tmp.Name()

	cleanup := func() { _ = os.Remove(tempPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		cleanup()
		return err
	}

	if err := rename(tempPath, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SaveJSON atomically writes data as indented JSON to the specified path.
func SaveJSON(path string, data any) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	jsonData = append(jsonData, '\n')

	return WriteFileAtomic(path, jsonData, 0o600)
}

// LoadJSON reads JSON from the specified path into dest.
// Returns os.ErrNotExist if file doesn't exist (caller should handle).
func LoadJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// TempFiles lists leftover temp files belonging to path.
func TempFiles(path string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), filepath.Base(path)+".*"+TempSuffix))
	if err != nil {
		return nil, err
	}

	var out []string
	for _, m := range matches {
		if strings.HasSuffix(m, TempSuffix) {
			out = append(out, m)
		}
	}
	return out, nil
}
