package styles

import (
	"bytes"
	"fmt"
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"
)

func TestInit_Themes(t *testing.T) {
	Init(false)
	if Current().Primary != DefaultTheme.Primary {
		t.Errorf("expected default primary color, got %v", Current().Primary)
	}

	Init(true)
	if _, ok := Current().Primary.(lipgloss.NoColor); !ok {
		t.Errorf("expected NoColor after Init(true), got %T", Current().Primary)
	}

	Init(false)
}

func TestInit_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	Init(false)
	defer func() {
		t.Setenv("NO_COLOR", "")
		Init(false)
	}()

	if _, ok := Current().Notice.(lipgloss.NoColor); !ok {
		t.Errorf("NO_COLOR should select the none theme, got %T", Current().Notice)
	}
}

func TestWriter_StripsANSIForNonTTY(t *testing.T) {
	var buf bytes.Buffer
	fmt.Fprint(Writer(&buf), lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("red"))

	assert.Equal(t, "red", buf.String())
}

func TestNotice(t *testing.T) {
	var buf bytes.Buffer
	fmt.Fprint(Writer(&buf), Notice("2.0.75", "Changed sources: changelog"))

	assert.Equal(t,
		"↑ skillsync update 2.0.75 available (Changed sources: changelog). Run skillsync update to apply.",
		buf.String())
}

func TestNotice_NoChangelog(t *testing.T) {
	var buf bytes.Buffer
	fmt.Fprint(Writer(&buf), Notice("2.0.75", ""))

	assert.Equal(t, "↑ skillsync update 2.0.75 available. Run skillsync update to apply.", buf.String())
}

func TestMarks(t *testing.T) {
	var buf bytes.Buffer
	w := Writer(&buf)
	fmt.Fprintln(w, OK("done"))
	fmt.Fprintln(w, Fail("broken"))
	fmt.Fprintln(w, Warn("careful"))

	assert.Equal(t, "✓ done\n✗ broken\n! careful\n", buf.String())
}
