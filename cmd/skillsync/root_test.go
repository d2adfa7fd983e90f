package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphi011/skillsync/internal/config"
)

// execute runs the root command with args and returns stdout. Tests using
// it share the package-level flag state and must not run in parallel.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetContext(context.Background())
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		dirFlag, verbose, quiet, noColor = "", false, false, false
		cfg, cfgErr = nil, nil
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// Scenario: user runs `skillsync config init` then `skillsync config show`
// Expected: file created once, second init refuses without --force
func TestRootCmd_ConfigInit(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "config", "init", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+config.Path(dir))
	assert.FileExists(t, config.Path(dir))

	_, err = execute(t, "config", "init", "--dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--dir", dir, "--force")
	require.NoError(t, err)

	out, err = execute(t, "config", "show", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `fresh_ttl = "6h0m0s"`)
}

// Scenario: activation with a broken config file
// Expected: exit 0 and nothing printed
func TestRootCmd_CheckInvalidConfigIsSilent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(dir), []byte("[timing\n"), 0o644))

	out, err := execute(t, "check", "--dir", dir, "--quiet")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = execute(t, "status", "--dir", dir)
	require.Error(t, err, "status reports the config problem")
}

func TestRootCmd_StatusJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "version.json"), []byte(`{"version":"1.2.3"}`), 0o644))

	out, err := execute(t, "status", "--dir", dir, "--json")
	require.NoError(t, err)

	var got statusJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, dir, got.Dir)
	assert.Equal(t, "1.2.3", got.SkillVersion)
	assert.Equal(t, StateNever, got.State)
	assert.NoFileExists(t, filepath.Join(dir, ".skillsync", "cache.json"), "status never writes")
}

func TestRootCmd_Doctor(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, ".skillsync")
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "cache.json"),
		[]byte(`{"schema_version":1,"sources":{},"update_in_progress":true}`), 0o600))

	_, err := execute(t, "doctor", "--dir", dir)
	require.Error(t, err, "issues remain without --fix")

	_, err = execute(t, "doctor", "--dir", dir, "--fix")
	require.NoError(t, err)

	_, err = execute(t, "doctor", "--dir", dir)
	require.NoError(t, err)
}
