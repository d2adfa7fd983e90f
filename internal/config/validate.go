package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Validate checks cross-field constraints after loading.
func (c *Config) Validate() error {
	t := c.Timing
	for _, d := range []struct {
		field string
		value Duration
	}{
		{"timing.fresh_ttl", t.FreshTTL},
		{"timing.stale_ttl", t.StaleTTL},
		{"timing.lock_timeout", t.LockTimeout},
		{"http.timeout", c.HTTP.Timeout},
		{"http.backoff_base", c.HTTP.BackoffBase},
		{"http.backoff_max", c.HTTP.BackoffMax},
	} {
		if d.value.Duration <= 0 {
			return fmt.Errorf("invalid %s %q: must be positive", d.field, d.value)
		}
	}
	if t.FreshTTL.Duration >= t.StaleTTL.Duration {
		return fmt.Errorf("invalid timing: fresh_ttl (%s) must be shorter than stale_ttl (%s)", t.FreshTTL, t.StaleTTL)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("invalid http.max_retries %d: must not be negative", c.HTTP.MaxRetries)
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid http.requests_per_second %v: must not be negative", c.HTTP.RequestsPerSecond)
	}

	names := c.SourceNames()
	if len(names) == 0 {
		return fmt.Errorf("no sources configured")
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return fmt.Errorf("duplicate source name %q", n)
		}
		seen[n] = true
	}

	if c.Sources.Authoritative != "" {
		if err := validateEnum(c.Sources.Authoritative, "sources.authoritative", names); err != nil {
			return err
		}
	}

	outputs := make(map[string]bool, len(c.Outputs))
	for i, o := range c.Outputs {
		if o.Name == "" {
			return fmt.Errorf("invalid outputs[%d]: name is required", i)
		}
		if strings.ContainsAny(o.Name, `/\`) {
			return fmt.Errorf("invalid outputs[%d] name %q: must be a plain file name", i, o.Name)
		}
		if outputs[o.Name] {
			return fmt.Errorf("duplicate output %q", o.Name)
		}
		outputs[o.Name] = true
		if len(o.Sources) == 0 {
			return fmt.Errorf("invalid output %q: at least one source is required", o.Name)
		}
		for _, s := range o.Sources {
			if !seen[s] {
				return fmt.Errorf("output %q references unknown source %q%s", o.Name, s, didYouMean(s, names))
			}
		}
	}

	for name, h := range c.Hooks {
		if strings.TrimSpace(h.Command) == "" {
			return fmt.Errorf("invalid hook %q: command is required", name)
		}
		for _, on := range h.On {
			if err := validateEnum(on, "hooks."+name+".on", HookTriggers); err != nil {
				return err
			}
		}
	}

	return nil
}

// Suggest returns the closest known source name for a mistyped one, or "".
func Suggest(name string, candidates []string) string {
	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

// didYouMean formats a suggestion suffix for error messages.
func didYouMean(name string, candidates []string) string {
	if s := Suggest(name, candidates); s != "" {
		return fmt.Sprintf(" (did you mean %q?)", s)
	}
	return ""
}

// UnknownSourceError formats the error for a source name that is not configured.
func UnknownSourceError(name string, candidates []string) error {
	return fmt.Errorf("unknown source %q%s", name, didYouMean(name, candidates))
}

// validateEnum checks that value (if non-empty) is one of the allowed values.
// Returns a formatted error mentioning the field name and allowed options.
func validateEnum(value, field string, allowed []string) error {
	if value == "" {
		return nil
	}
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("invalid %s %q: must be %s", field, value, formatOptions(allowed))
	}
	return nil
}

// formatOptions formats a list of allowed values for error messages.
// E.g., ["a", "b", "c"] -> `"a", "b", or "c"`
func formatOptions(opts []string) string {
	quoted := make([]string, len(opts))
	for i, o := range opts {
		quoted[i] = fmt.Sprintf("%q", o)
	}
	if len(quoted) <= 2 {
		return strings.Join(quoted, " or ")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}
