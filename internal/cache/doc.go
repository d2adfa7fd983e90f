// Package cache manages the persisted update state of an installed skill.
//
// The state lives in a single JSON file (default .skillsync/cache.json inside
// the install directory):
//
//	{
//	  "schema_version": 1,
//	  "skill_version": "2.0.74",
//	  "last_checked_utc": "2026-10-16T08:00:00Z",
//	  "sources": {
//	    "changelog": {"etag": "\"abc\"", "last_modified": "...", "content_hash": "sha256:...", "checked_utc": "..."}
//	  },
//	  "update_available": true,
//	  "pending_version": "2.0.75",
//	  "pending_changelog": "Changed sources: changelog",
//	  "notified_version": "",
//	  "update_in_progress": false,
//	  "error_count": 0
//	}
//
// # Staleness
//
// A record is fresh for [FreshTTL] after the last successful check, then
// stale-but-usable until [StaleTTL]. A record that was never checked is
// neither and always needs a refresh.
//
// # Concurrency
//
// All access goes through [Store]. Reads never fail: a missing or corrupt
// file yields an empty default record. Every setter re-reads the file,
// applies its change and rewrites the whole record via temp file + rename,
// holding a flock on cache.json.lock only for that short cycle.
//
// The background refresh itself is coordinated by the advisory
// update_in_progress flag and its timestamp. It is not enforced by the OS:
// a lock older than [LockTimeout] counts as abandoned and is taken over.
// Writes are last-writer-wins.
package cache
