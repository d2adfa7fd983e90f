package progress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpinner_SilentWithoutTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewSpinner(&buf, "Updating")
	assert.False(t, s.Enabled())

	s.Start()
	s.UpdateMessage("Fetching")
	s.Stop()

	assert.Zero(t, buf.Len())
}

func TestRun_ReturnsResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	called := false
	err := Run(&buf, "Working", func() error {
		called = true
		return errors.New("failed")
	})

	assert.True(t, called)
	assert.EqualError(t, err, "failed")
	assert.Zero(t, buf.Len())
}
