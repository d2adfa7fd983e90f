// Package styles provides shared lipgloss styles for terminal output.
//
// All colors come from the active Theme. Output written through Writer is
// downsampled to what the destination supports, so styled text piped into a
// file or another program arrives as plain text.
package styles

import (
	"image/color"
	"io"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/colorprofile"
)

// Theme defines the color palette for UI components
type Theme struct {
	Primary color.Color // titles, versions
	Success color.Color // completed steps
	Error   color.Color // failures
	Warning color.Color // stale state, skipped artifacts
	Muted   color.Color // secondary text
	Notice  color.Color // update-available notice
}

var (
	// DefaultTheme is the default color scheme
	DefaultTheme = Theme{
		Primary: lipgloss.Color("62"),  // cyan/teal
		Success: lipgloss.Color("82"),  // green
		Error:   lipgloss.Color("196"), // red
		Warning: lipgloss.Color("214"), // orange
		Muted:   lipgloss.Color("240"), // dark gray
		Notice:  lipgloss.Color("212"), // pink
	}

	// NoneTheme renders without colors. Bold and italic are kept.
	NoneTheme = Theme{
		Primary: lipgloss.NoColor{},
		Success: lipgloss.NoColor{},
		Error:   lipgloss.NoColor{},
		Warning: lipgloss.NoColor{},
		Muted:   lipgloss.NoColor{},
		Notice:  lipgloss.NoColor{},
	}
)

// Symbols
const (
	SymbolOK      = "✓"
	SymbolFail    = "✗"
	SymbolWarn    = "!"
	SymbolPending = "↑"
)

var currentTheme = DefaultTheme

// Styles derived from the current theme
var (
	Bold         = lipgloss.NewStyle().Bold(true)
	PrimaryStyle lipgloss.Style
	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	MutedStyle   lipgloss.Style
	NoticeStyle  lipgloss.Style
)

func init() {
	applyTheme(DefaultTheme)
}

// Init picks the theme. NO_COLOR in the environment forces NoneTheme.
func Init(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" {
		applyTheme(NoneTheme)
		return
	}
	applyTheme(DefaultTheme)
}

// Current returns the current theme
func Current() Theme {
	return currentTheme
}

func applyTheme(t Theme) {
	currentTheme = t
	PrimaryStyle = lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(t.Success)
	ErrorStyle = lipgloss.NewStyle().Foreground(t.Error)
	WarningStyle = lipgloss.NewStyle().Foreground(t.Warning)
	MutedStyle = lipgloss.NewStyle().Foreground(t.Muted)
	NoticeStyle = lipgloss.NewStyle().Foreground(t.Notice).Bold(true)
}

// Writer wraps w so ANSI sequences are reduced to the color profile the
// destination supports.
func Writer(w io.Writer) io.Writer {
	return colorprofile.NewWriter(w, os.Environ())
}

// Notice renders the single-line update notice shown on activation.
func Notice(version, changelog string) string {
	line := NoticeStyle.Render(SymbolPending+" skillsync update "+version+" available")
	if changelog != "" {
		line += MutedStyle.Render(" (" + changelog + ")")
	}
	return line + ". Run " + Bold.Render("skillsync update") + " to apply."
}

// OK prefixes msg with a success mark.
func OK(msg string) string {
	return SuccessStyle.Render(SymbolOK) + " " + msg
}

// Fail prefixes msg with a failure mark.
func Fail(msg string) string {
	return ErrorStyle.Render(SymbolFail) + " " + msg
}

// Warn prefixes msg with a warning mark.
func Warn(msg string) string {
	return WarningStyle.Render(SymbolWarn) + " " + msg
}
