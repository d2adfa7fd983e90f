// Package config handles loading and validation of skillsync configuration.
//
// Configuration is read from skillsync.toml in the install directory and
// overlays built-in defaults key by key.
//
// # Install Directory (highest priority first)
//
//   - --dir flag
//   - SKILLSYNC_DIR env var
//   - Current working directory
//
// # Key Settings
//
//   - [paths]: cache record, version file, references dir, root document
//   - [sources]: docs mirror base URL and file list, changelog URL, and the
//     authoritative source the version heading is read from
//   - [[outputs]]: generated documents and the sources each one concatenates
//   - [timing]: fresh_ttl (6h), stale_ttl (7d), lock_timeout (5m)
//   - [http]: timeout, retry ceiling, backoff base/cap, pacing, concurrency
//
// Durations use Go syntax ("6h", "30s").
//
// # Source Names
//
// Each docs mirror file becomes a source named after the file without its
// extension ("hooks.md" -> "hooks"). The changelog is always "changelog".
// Output definitions must reference known source names; unknown names are
// reported with a fuzzy "did you mean" suggestion.
package config
