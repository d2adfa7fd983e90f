package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the optional config file in the install directory.
const FileName = "skillsync.toml"

// EnvDir overrides the install directory when --dir is not given.
const EnvDir = "SKILLSYNC_DIR"

// ChangelogSource is the source name given to the changelog document.
const ChangelogSource = "changelog"

// HookTriggers lists the valid values of a hook's "on" list.
var HookTriggers = []string{"update", "all"}

// Default timing values
const (
	DefaultFreshTTL    = 6 * time.Hour
	DefaultStaleTTL    = 7 * 24 * time.Hour
	DefaultLockTimeout = 5 * time.Minute
)

// Duration is a time.Duration that reads and writes Go duration strings in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses values like "6h" or "30s".
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// PathsConfig locates the on-disk state. Relative paths resolve against the install dir.
type PathsConfig struct {
	Cache      string `toml:"cache"`
	Version    string `toml:"version"`
	References string `toml:"references"`
	RootDoc    string `toml:"root_doc"`
}

// SourcesConfig lists the remote documents to track.
type SourcesConfig struct {
	DocsBaseURL   string   `toml:"docs_base_url"`
	Docs          []string `toml:"docs"` // file names under DocsBaseURL
	ChangelogURL  string   `toml:"changelog_url"`
	Authoritative string   `toml:"authoritative"` // source the version token is read from
}

// Output declares one generated reference document.
type Output struct {
	Name    string   `toml:"name"`  // file name inside the references dir
	Title   string   `toml:"title"` // optional heading placed above the content
	Sources []string `toml:"sources"`
}

// TimingConfig holds the staleness windows and lock timeout.
type TimingConfig struct {
	FreshTTL    Duration `toml:"fresh_ttl"`
	StaleTTL    Duration `toml:"stale_ttl"`
	LockTimeout Duration `toml:"lock_timeout"`
}

// HTTPConfig tunes the fetcher.
type HTTPConfig struct {
	Timeout           Duration `toml:"timeout"`
	MaxRetries        int      `toml:"max_retries"`
	BackoffBase       Duration `toml:"backoff_base"`
	BackoffMax        Duration `toml:"backoff_max"`
	RequestsPerSecond float64  `toml:"requests_per_second"` // 0 disables pacing
	Concurrency       int      `toml:"concurrency"`
	UserAgent         string   `toml:"user_agent"`
}

// Hook defines a shell command run after an operation
type Hook struct {
	Command     string   `toml:"command"`
	Description string   `toml:"description"`
	On          []string `toml:"on"` // triggers this hook runs on (empty = never automatic)
}

// Config holds the skillsync configuration
type Config struct {
	Dir     string          `toml:"-"` // install directory, never read from the file
	Paths   PathsConfig     `toml:"paths"`
	Sources SourcesConfig   `toml:"sources"`
	Outputs []Output        `toml:"outputs"`
	Timing  TimingConfig    `toml:"timing"`
	HTTP    HTTPConfig      `toml:"http"`
	Hooks   map[string]Hook `toml:"hooks"` // parsed from [hooks.NAME] sections
}

// Source is a resolved remote document.
type Source struct {
	Name string
	URL  string
}

// Default returns the default configuration rooted at dir
func Default(dir string) Config {
	return Config{
		Dir: dir,
		Paths: PathsConfig{
			Cache:      filepath.Join(".skillsync", "cache.json"),
			Version:    "version.json",
			References: "references",
			RootDoc:    "SKILL.md",
		},
		Sources: SourcesConfig{
			DocsBaseURL:   "https://docs.example.com/en/",
			Docs:          []string{"hooks.md", "settings.md", "plugins.md", "skills.md", "subagents.md"},
			ChangelogURL:  "https://docs.example.com/CHANGELOG.md",
			Authoritative: ChangelogSource,
		},
		Outputs: []Output{
			{Name: "hooks-reference.md", Title: "Hooks Reference", Sources: []string{"hooks"}},
			{Name: "configuration-reference.md", Title: "Configuration Reference", Sources: []string{"settings"}},
			{Name: "extensions-reference.md", Title: "Extensions Reference", Sources: []string{"plugins", "skills", "subagents"}},
			{Name: "changelog.md", Title: "Changelog", Sources: []string{ChangelogSource}},
		},
		Timing: TimingConfig{
			FreshTTL:    Duration{DefaultFreshTTL},
			StaleTTL:    Duration{DefaultStaleTTL},
			LockTimeout: Duration{DefaultLockTimeout},
		},
		HTTP: HTTPConfig{
			Timeout:           Duration{30 * time.Second},
			MaxRetries:        3,
			BackoffBase:       Duration{time.Second},
			BackoffMax:        Duration{30 * time.Second},
			RequestsPerSecond: 4,
			Concurrency:       4,
			UserAgent:         "skillsync/1.0",
		},
	}
}

// ResolveDir picks the install directory: flag value, then $SKILLSYNC_DIR,
// then the working directory. The result is absolute.
func ResolveDir(flagValue string) (string, error) {
	dir := flagValue
	if dir == "" {
		dir = os.Getenv(EnvDir)
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}

	expanded, err := expandPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	return path, nil
}

// Path returns the path to the config file for an install dir
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads <dir>/skillsync.toml over the defaults.
// Returns Default(dir) if the file doesn't exist (no error).
// Returns an error only if the file exists but is invalid.
func Load(dir string) (Config, error) {
	cfg := Default(dir)

	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Default(dir), fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoding into the populated defaults keeps every key the file omits
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Default(dir), fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Dir = dir

	if err := cfg.Validate(); err != nil {
		return Default(dir), err
	}

	return cfg, nil
}

// resolve makes p absolute relative to the install dir
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// CachePath returns the absolute path of the cache record.
func (c *Config) CachePath() string { return c.resolve(c.Paths.Cache) }

// VersionPath returns the absolute path of the skill version file.
func (c *Config) VersionPath() string { return c.resolve(c.Paths.Version) }

// ReferencesDir returns the absolute path of the generated references dir.
func (c *Config) ReferencesDir() string { return c.resolve(c.Paths.References) }

// RootDocPath returns the absolute path of the document carrying the marker.
func (c *Config) RootDocPath() string { return c.resolve(c.Paths.RootDoc) }

// SourceList resolves the tracked sources in declaration order: the docs
// mirror files first, then the changelog.
func (c *Config) SourceList() []Source {
	var sources []Source
	base := c.Sources.DocsBaseURL
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	for _, doc := range c.Sources.Docs {
		sources = append(sources, Source{Name: SourceName(doc), URL: base + doc})
	}
	if c.Sources.ChangelogURL != "" {
		sources = append(sources, Source{Name: ChangelogSource, URL: c.Sources.ChangelogURL})
	}
	return sources
}

// SourceNames returns the names of all tracked sources.
func (c *Config) SourceNames() []string {
	list := c.SourceList()
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name
	}
	return names
}

// SourceName derives a source name from a mirror file name ("hooks.md" -> "hooks").
func SourceName(file string) string {
	name := filepath.Base(file)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

const defaultConfig = `# skillsync configuration
# Every key is optional; omitted keys keep their built-in default.

# [paths]
# Relative paths resolve against the install directory.
# cache = ".skillsync/cache.json"
# version = "version.json"
# references = "references"
# root_doc = "SKILL.md"     # carries the "**Last updated:**" marker

# [sources]
# docs_base_url = "https://docs.example.com/en/"
# docs = ["hooks.md", "settings.md", "plugins.md", "skills.md", "subagents.md"]
# changelog_url = "https://docs.example.com/CHANGELOG.md"
# authoritative = "changelog"  # source the version heading is read from
#
# Source names are the doc file names without extension, plus "changelog".

# Generated documents, written to the references directory.
# An output whose sources were not all fetched is skipped.
#
# [[outputs]]
# name = "hooks-reference.md"
# title = "Hooks Reference"
# sources = ["hooks"]

# [timing]
# fresh_ttl = "6h"       # no check needed below this age
# stale_ttl = "168h"     # background refresh between fresh_ttl and this age
# lock_timeout = "5m"    # an older refresh lock is treated as abandoned

# [http]
# timeout = "30s"
# max_retries = 3
# backoff_base = "1s"    # delay doubles per attempt
# backoff_max = "30s"    # also caps Retry-After
# requests_per_second = 4
# concurrency = 4
# user_agent = "skillsync/1.0"

# Hooks run in the install directory after an update was applied.
# Placeholders are shell-quoted: {dir}, {version}, {previous}, {changed}, {trigger}
#
# [hooks.commit]
# command = "git add -A references SKILL.md version.json && git commit -m \"docs: {version:raw}\""
# description = "Commit regenerated references"
# on = ["update"]
`

// Init creates a default config file in the install directory.
// If force is true, overwrites existing file
// Returns the path to the created file
func Init(dir string, force bool) (string, error) {
	path := Path(dir)

	// Check if file already exists (skip if force)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", errors.New("config file already exists: " + path)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return "", err
	}

	return path, nil
}
