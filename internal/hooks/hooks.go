package hooks

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"slices"
	"strings"

	"github.com/raphi011/skillsync/internal/config"
	"github.com/raphi011/skillsync/internal/log"
	"github.com/raphi011/skillsync/internal/ui/styles"
)

// shellQuote escapes a string for safe use in shell commands.
// It wraps the value in single quotes and escapes any embedded single quotes.
func shellQuote(s string) string {
	// e.g., "it's" becomes 'it'\''s'
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// Trigger identifies the operation running the hook
type Trigger string

// TriggerUpdate runs after an update was applied.
const TriggerUpdate Trigger = "update"

// Context holds the values for placeholder substitution
type Context struct {
	Dir      string   // install directory, also the working directory
	Version  string   // skill version after the operation
	Previous string   // skill version before the operation
	Changed  []string // changed source names
	Trigger  Trigger
}

// Match is a hook selected to run
type Match struct {
	Name string
	Hook config.Hook
}

// Select returns the hooks whose "on" list contains trigger or "all",
// ordered by name.
func Select(hooks map[string]config.Hook, trigger Trigger) []Match {
	var matches []Match
	for name, hook := range hooks {
		if slices.Contains(hook.On, "all") || slices.Contains(hook.On, string(trigger)) {
			matches = append(matches, Match{Name: name, Hook: hook})
		}
	}
	slices.SortFunc(matches, func(a, b Match) int { return strings.Compare(a.Name, b.Name) })
	return matches
}

// Runner executes hooks, sending their output to Stdout and Stderr.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// RunAllNonFatal runs every match in order. Failures are printed as warnings
// and counted; the remaining hooks still run.
func (r Runner) RunAllNonFatal(ctx context.Context, matches []Match, hc Context) (failed int) {
	for _, m := range matches {
		if err := r.Run(ctx, m, hc); err != nil {
			fmt.Fprintln(r.Stderr, styles.Warn(fmt.Sprintf("hook %q failed: %v", m.Name, err)))
			failed++
		}
	}
	return failed
}

// Run executes a single hook through sh in the install directory.
func (r Runner) Run(ctx context.Context, m Match, hc Context) error {
	command := SubstitutePlaceholders(m.Hook.Command, hc)
	log.FromContext(ctx).Debug().Str("hook", m.Name).Str("command", command).Msg("run hook")

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = hc.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return err
	}

	if m.Hook.Description != "" {
		fmt.Fprintln(r.Stdout, styles.OK(m.Hook.Description))
	}
	return nil
}

// placeholderRegex matches {key} and {key:raw}.
var placeholderRegex = regexp.MustCompile(`\{([a-z]+)(:raw)?\}`)

// SubstitutePlaceholders replaces known placeholders with shell-quoted
// values from hc. Unknown placeholders are left untouched.
func SubstitutePlaceholders(command string, hc Context) string {
	values := map[string]string{
		"dir":      hc.Dir,
		"version":  hc.Version,
		"previous": hc.Previous,
		"changed":  strings.Join(hc.Changed, ","),
		"trigger":  string(hc.Trigger),
	}

	return placeholderRegex.ReplaceAllStringFunc(command, func(match string) string {
		sub := placeholderRegex.FindStringSubmatch(match)
		val, ok := values[sub[1]]
		if !ok {
			return match
		}
		if sub[2] == ":raw" {
			return val
		}
		return shellQuote(val)
	})
}
