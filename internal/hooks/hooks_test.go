package hooks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphi011/skillsync/internal/config"
)

func TestSubstitutePlaceholders(t *testing.T) {
	t.Parallel()

	hc := Context{
		Dir:      "/home/user/skills/docs",
		Version:  "2.0.75",
		Previous: "2.0.74",
		Changed:  []string{"hooks", "changelog"},
		Trigger:  TriggerUpdate,
	}

	tests := []struct {
		name     string
		command  string
		expected string
	}{
		{
			name:     "single placeholder",
			command:  "cd {dir}",
			expected: "cd '/home/user/skills/docs'",
		},
		{
			name:     "all placeholders",
			command:  "{dir} {version} {previous} {changed} {trigger}",
			expected: "'/home/user/skills/docs' '2.0.75' '2.0.74' 'hooks,changelog' 'update'",
		},
		{
			name:     "raw inside quotes",
			command:  `git commit -m "docs: {version:raw}"`,
			expected: `git commit -m "docs: 2.0.75"`,
		},
		{
			name:     "no placeholders",
			command:  "echo hello",
			expected: "echo hello",
		},
		{
			name:     "unknown placeholder kept",
			command:  "echo {branch}",
			expected: "echo {branch}",
		},
		{
			name:     "repeated placeholder",
			command:  "{version} and {version}",
			expected: "'2.0.75' and '2.0.75'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := SubstitutePlaceholders(tt.command, hc)
			if result != tt.expected {
				t.Errorf("SubstitutePlaceholders(%q) = %q, want %q", tt.command, result, tt.expected)
			}
		})
	}
}

func TestSubstitutePlaceholders_ShellEscaping(t *testing.T) {
	t.Parallel()

	got := SubstitutePlaceholders("cd {dir}", Context{Dir: "/home/user/it's a dir"})
	assert.Equal(t, "cd '/home/user/it'\\''s a dir'", got)
}

func TestSelect(t *testing.T) {
	t.Parallel()

	hooks := map[string]config.Hook{
		"notify": {Command: "notify-send done", On: []string{"all"}},
		"commit": {Command: "git commit -am {version}", On: []string{"update"}},
		"manual": {Command: "echo manual"},
	}

	matches := Select(hooks, TriggerUpdate)
	require.Len(t, matches, 2)
	assert.Equal(t, "commit", matches[0].Name)
	assert.Equal(t, "notify", matches[1].Name)

	assert.Empty(t, Select(nil, TriggerUpdate))
}

// Scenario: two update hooks, the first one fails
// Expected: the second still runs, one failure reported
func TestRunAllNonFatal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("hooks run through sh")
	}
	t.Parallel()

	dir := t.TempDir()
	matches := []Match{
		{Name: "broken", Hook: config.Hook{Command: "exit 3"}},
		{Name: "write", Hook: config.Hook{Command: "echo {version} > out.txt", Description: "Wrote version"}},
	}

	var stdout, stderr bytes.Buffer
	r := Runner{Stdout: &stdout, Stderr: &stderr}
	failed := r.RunAllNonFatal(context.Background(), matches, Context{Dir: dir, Version: "2.0.75"})

	assert.Equal(t, 1, failed)
	assert.Contains(t, stderr.String(), `hook "broken" failed`)
	assert.Contains(t, stdout.String(), "Wrote version")

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2.0.75\n", string(data))
}
