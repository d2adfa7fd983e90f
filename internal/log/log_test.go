package log

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintf(t *testing.T) {
	t.Parallel()

	t.Run("writes formatted output", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		l := New(&buf, false, false)
		l.Printf("hello %s %d", "world", 42)
		assert.Equal(t, "hello world 42", buf.String())
	})

	t.Run("suppressed when quiet", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		l := New(&buf, false, true)
		l.Printf("should not appear")
		assert.Zero(t, buf.Len())
	})
}

func TestPrintln(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, false, false)
	l.Println("hello", "world")
	assert.Equal(t, "hello world\n", buf.String())
}

func TestLevels(t *testing.T) {
	t.Parallel()

	t.Run("debug hidden by default", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		l := New(&buf, false, false)
		l.Debug().Msg("hidden")
		l.Info().Msg("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("verbose shows debug", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		l := New(&buf, true, false)
		l.Debug().Str("source", "hooks").Msg("checking")
		assert.Contains(t, buf.String(), "checking")
		assert.Contains(t, buf.String(), "source=hooks")
		assert.True(t, l.Verbose())
	})

	t.Run("quiet drops events", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		l := New(&buf, false, true)
		l.Warn().Msg("nope")
		assert.Zero(t, buf.Len())
	})
}

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewJSON(&buf).WithField("run_id", "abc")
	l.Info().Int("changed", 2).Msg("refresh complete")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "refresh complete", event["message"])
	assert.Equal(t, "abc", event["run_id"])
	assert.EqualValues(t, 2, event["changed"])
	assert.Contains(t, event, "time")
}

func TestOpenFile_Appends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "skillsync.log")
	for _, msg := range []string{"first", "second"} {
		l, f, err := OpenFile(path)
		require.NoError(t, err)
		l.Info().Msg(msg)
		require.NoError(t, f.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("returns attached logger", func(t *testing.T) {
		t.Parallel()
		l := New(io.Discard, true, false)
		ctx := WithLogger(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("returns no-op logger when absent", func(t *testing.T) {
		t.Parallel()
		l := FromContext(context.Background())
		require.NotNil(t, l)
		// Must not panic
		l.Printf("test")
		l.Info().Msg("test")
		assert.Equal(t, io.Discard, l.Writer())
	})
}
