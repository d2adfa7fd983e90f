package cache

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"os"
	"time"

	"github.com/raphi011/skillsync/internal/storage"
)

// SchemaVersion is the current on-disk record format.
const SchemaVersion = 1

// Default windows, overridable per Store.
const (
	FreshTTL    = 6 * time.Hour
	StaleTTL    = 7 * 24 * time.Hour
	LockTimeout = 5 * time.Minute
)

// guardTimeout bounds the wait for another process's read-modify-write.
const guardTimeout = 2 * time.Second

// SourceState is the fetch metadata remembered for one remote source.
type SourceState struct {
	ETag         string     `json:"etag,omitempty"`
	LastModified string     `json:"last_modified,omitempty"`
	ContentHash  string     `json:"content_hash,omitempty"`
	CheckedAt    *time.Time `json:"checked_utc,omitempty"`
}

// Record is the single persisted cache entity stored in cache.json.
type Record struct {
	SchemaVersion int    `json:"schema_version"`
	SkillVersion  string `json:"skill_version,omitempty"`

	LastCheckedAt *time.Time             `json:"last_checked_utc,omitempty"` // last successful check cycle
	Sources       map[string]SourceState `json:"sources"`

	UpdateAvailable  bool   `json:"update_available"`
	PendingVersion   string `json:"pending_version,omitempty"`
	PendingChangelog string `json:"pending_changelog,omitempty"`
	NotifiedVersion  string `json:"notified_version,omitempty"`

	UpdateInProgress bool       `json:"update_in_progress"`
	LockAcquiredAt   *time.Time `json:"lock_acquired_utc,omitempty"`

	LastError  string `json:"last_error,omitempty"`
	ErrorCount int    `json:"error_count"`
}

// NewRecord returns an empty default record.
func NewRecord() *Record {
	return &Record{
		SchemaVersion: SchemaVersion,
		Sources:       make(map[string]SourceState),
	}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Sources = maps.Clone(r.Sources)
	if c.Sources == nil {
		c.Sources = make(map[string]SourceState)
	}
	return &c
}

// LockPath returns the path of the guard lock file for a cache file
func LockPath(cachePath string) string {
	return cachePath + ".lock"
}

// load reads the record at path. Missing or corrupted files yield a fresh
// default record; reading never fails.
func load(path string) *Record {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewRecord()
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// Corrupted - start fresh
		return NewRecord()
	}

	// Initialize nil maps
	if rec.Sources == nil {
		rec.Sources = make(map[string]SourceState)
	}
	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = SchemaVersion
	}

	return &rec
}

// Store owns all access to the cache file. Every mutation re-reads the file,
// applies the change and atomically rewrites the whole record.
type Store struct {
	path        string
	freshTTL    time.Duration
	staleTTL    time.Duration
	lockTimeout time.Duration
	now         func() time.Time

	rec *Record
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTTLs sets the fresh and stale windows.
func WithTTLs(fresh, stale time.Duration) Option {
	return func(s *Store) {
		s.freshTTL = fresh
		s.staleTTL = stale
	}
}

// WithLockTimeout sets the age after which a refresh lock counts as abandoned.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// Open loads the record at path and returns a Store for it.
func Open(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		freshTTL:    FreshTTL,
		staleTTL:    StaleTTL,
		lockTimeout: LockTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rec = load(path)
	return s
}

// Path returns the cache file path.
func (s *Store) Path() string {
	return s.path
}

// Load re-reads the record from disk and returns a copy of it.
func (s *Store) Load() *Record {
	s.rec = load(s.path)
	return s.rec.Clone()
}

// Record returns a copy of the last loaded record without touching disk.
func (s *Store) Record() *Record {
	return s.rec.Clone()
}

// Save atomically replaces the file with rec. On failure the previous file
// is left intact and the error is returned.
func (s *Store) Save(rec *Record) error {
	s.rec = rec.Clone()
	return storage.SaveJSON(s.path, s.rec)
}

// mutate runs fn inside a read-modify-write cycle guarded by the flock.
// fn returns false to abort without writing. If strict is set and the guard
// cannot be taken, mutate gives up instead of writing unguarded.
func (s *Store) mutate(strict bool, fn func(r *Record) bool) (bool, error) {
	guard := NewFileLock(LockPath(s.path))
	if err := guard.Lock(context.Background(), guardTimeout); err != nil {
		if strict {
			return false, err
		}
	} else {
		defer guard.Unlock()
	}

	// Pick up whatever other processes committed since we last looked
	rec := load(s.path)
	if !fn(rec) {
		s.rec = rec
		return false, nil
	}
	return true, s.Save(rec)
}

func (s *Store) nowUTC() *time.Time {
	t := s.now().UTC()
	return &t
}

// Age returns the time since the last successful check, and false if there
// never was one.
func (s *Store) Age() (time.Duration, bool) {
	if s.rec.LastCheckedAt == nil {
		return 0, false
	}
	return s.now().Sub(*s.rec.LastCheckedAt), true
}

// IsFresh reports whether the last check is younger than the fresh TTL.
func (s *Store) IsFresh() bool {
	age, ok := s.Age()
	return ok && age < s.freshTTL
}

// IsStaleButUsable reports whether the last check is past the fresh TTL but
// still within the stale TTL.
func (s *Store) IsStaleButUsable() bool {
	age, ok := s.Age()
	return ok && age >= s.freshTTL && age < s.staleTTL
}

// NeedsRefresh reports whether a check is due.
func (s *Store) NeedsRefresh() bool {
	return !s.IsFresh()
}

// LockHeld reports whether a refresh lock is set and not yet abandoned.
func (s *Store) LockHeld() bool {
	return lockHeld(s.rec, s.now(), s.lockTimeout)
}

func lockHeld(r *Record, now time.Time, timeout time.Duration) bool {
	if !r.UpdateInProgress || r.LockAcquiredAt == nil {
		return false
	}
	// A timestamp in the future cannot be aged and counts as abandoned
	age := now.Sub(*r.LockAcquiredAt)
	return age >= 0 && age < timeout
}

// AcquireUpdateLock sets the advisory refresh lock. It returns false without
// changing anything when a lock younger than the lock timeout is present;
// an older lock is treated as abandoned and taken over.
func (s *Store) AcquireUpdateLock() (bool, error) {
	return s.mutate(true, func(r *Record) bool {
		if lockHeld(r, s.now(), s.lockTimeout) {
			return false
		}
		r.UpdateInProgress = true
		r.LockAcquiredAt = s.nowUTC()
		return true
	})
}

// ReleaseUpdateLock clears both lock fields.
func (s *Store) ReleaseUpdateLock() error {
	_, err := s.mutate(false, func(r *Record) bool {
		r.UpdateInProgress = false
		r.LockAcquiredAt = nil
		return true
	})
	return err
}

// UpdateSourceState stores the fetch metadata for one source.
func (s *Store) UpdateSourceState(name string, state SourceState) error {
	_, err := s.mutate(false, func(r *Record) bool {
		r.Sources[name] = state
		return true
	})
	return err
}

// RecordCheck stores per-source state from a completed check cycle and
// advances last_checked_utc. The timestamp never moves backwards.
func (s *Store) RecordCheck(states map[string]SourceState) error {
	_, err := s.mutate(false, func(r *Record) bool {
		maps.Copy(r.Sources, states)
		now := s.nowUTC()
		if r.LastCheckedAt == nil || now.After(*r.LastCheckedAt) {
			r.LastCheckedAt = now
		}
		return true
	})
	return err
}

// SetUpdateAvailable flags a detected but not yet applied update.
func (s *Store) SetUpdateAvailable(version, changelog string) error {
	_, err := s.mutate(false, func(r *Record) bool {
		r.UpdateAvailable = true
		r.PendingVersion = version
		r.PendingChangelog = changelog
		return true
	})
	return err
}

// ClearUpdateAvailable drops the pending update and the notification marker.
func (s *Store) ClearUpdateAvailable() error {
	_, err := s.mutate(false, func(r *Record) bool {
		r.UpdateAvailable = false
		r.PendingVersion = ""
		r.PendingChangelog = ""
		r.NotifiedVersion = ""
		return true
	})
	return err
}

// MarkNotified records that the user was told about version.
func (s *Store) MarkNotified(version string) error {
	_, err := s.mutate(false, func(r *Record) bool {
		r.NotifiedVersion = version
		return true
	})
	return err
}

// SetSkillVersion records the currently installed skill version.
func (s *Store) SetSkillVersion(version string) error {
	_, err := s.mutate(false, func(r *Record) bool {
		r.SkillVersion = version
		return true
	})
	return err
}

// RecordError stores the failure and bumps the error tally.
func (s *Store) RecordError(cause error) error {
	if cause == nil {
		return errors.New("record error: nil cause")
	}
	_, err := s.mutate(false, func(r *Record) bool {
		r.LastError = cause.Error()
		r.ErrorCount++
		return true
	})
	return err
}

// ClearErrors resets the error fields.
func (s *Store) ClearErrors() error {
	_, err := s.mutate(false, func(r *Record) bool {
		r.LastError = ""
		r.ErrorCount = 0
		return true
	})
	return err
}

// ShouldNotifyUser reports whether a pending version exists that the user
// has not been told about yet.
func (s *Store) ShouldNotifyUser() bool {
	r := s.rec
	return r.UpdateAvailable && r.PendingVersion != "" && r.PendingVersion != r.NotifiedVersion
}
