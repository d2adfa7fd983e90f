// Package updater coordinates keeping the bundled references in sync with
// their remote sources.
//
// Four entry points share one cache record:
//
//   - Check is the activation path. It reads the local record, may print a
//     one-time notice and may spawn a background refresh, but never touches
//     the network.
//   - BackgroundRefresh runs detached under the advisory lock. It only
//     detects changes and flags an available update.
//   - Update applies an update synchronously: it fetches everything,
//     regenerates the artifacts and bumps the skill version.
//   - Status reports the record without changing it.
package updater

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"strings"
	"time"

	"github.com/raphi011/skillsync/internal/artifact"
	"github.com/raphi011/skillsync/internal/cache"
	"github.com/raphi011/skillsync/internal/detect"
	"github.com/raphi011/skillsync/internal/log"
	"github.com/raphi011/skillsync/internal/skill"
)

var (
	// ErrRefreshInProgress is returned by BackgroundRefresh when another
	// refresh holds a live lock.
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrSourcesUnreachable means no source answered during a check cycle.
	ErrSourcesUnreachable = errors.New("no source could be reached")
)

// RefreshCommand is the hidden subcommand the activation check spawns.
const RefreshCommand = "background-refresh"

// Detector finds changed sources and fetches their content.
type Detector interface {
	DetectChanges(ctx context.Context, cached map[string]cache.SourceState) (detect.Changes, error)
	FetchAllContent(ctx context.Context) (detect.Content, error)
}

// Spawner starts a detached process. The caller never waits for it.
type Spawner interface {
	Spawn(ctx context.Context, args ...string) error
}

// Orchestrator composes the cache store, detector and generator.
type Orchestrator struct {
	store       *cache.Store
	detector    Detector
	generator   artifact.Generator
	spawner     Spawner
	versionPath string
	refreshArgs []string
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the time source for the version file's updated_at.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRefreshArgs sets the arguments passed to the spawned refresh.
func WithRefreshArgs(args ...string) Option {
	return func(o *Orchestrator) { o.refreshArgs = args }
}

// New creates an Orchestrator. versionPath locates the skill version file.
func New(store *cache.Store, d Detector, g artifact.Generator, s Spawner, versionPath string, opts ...Option) *Orchestrator {
	if g == nil {
		g = artifact.Unavailable()
	}
	o := &Orchestrator{
		store:       store,
		detector:    d,
		generator:   g,
		spawner:     s,
		versionPath: versionPath,
		refreshArgs: []string{RefreshCommand},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CheckResult reports what the activation check did.
type CheckResult struct {
	NotifyVersion string // set when the user should be told about an update
	Changelog     string
	Fresh         bool
	Spawned       bool
	RefreshActive bool // a live refresh lock made spawning pointless
}

// Check is the non-blocking activation path. It only reads the local record
// and at most starts a detached refresh; all failures are swallowed.
func (o *Orchestrator) Check(ctx context.Context) CheckResult {
	l := log.FromContext(ctx)
	rec := o.store.Load()

	var res CheckResult
	if o.store.ShouldNotifyUser() {
		res.NotifyVersion = rec.PendingVersion
		res.Changelog = rec.PendingChangelog
		if err := o.store.MarkNotified(rec.PendingVersion); err != nil {
			l.Debug().Err(err).Msg("mark notified")
		}
	}

	if o.store.IsFresh() {
		res.Fresh = true
		return res
	}

	if o.store.LockHeld() {
		res.RefreshActive = true
		return res
	}

	if err := o.spawner.Spawn(ctx, o.refreshArgs...); err != nil {
		l.Debug().Err(err).Msg("spawn background refresh")
		return res
	}
	res.Spawned = true
	return res
}

// RefreshResult reports a completed background refresh.
type RefreshResult struct {
	Changed        []string
	Unreachable    []string
	PendingVersion string
}

// BackgroundRefresh detects changes under the advisory lock and flags an
// available update. It does not fetch content. Failures are recorded in the
// cache record and returned; the lock is released on every path.
func (o *Orchestrator) BackgroundRefresh(ctx context.Context) (res RefreshResult, err error) {
	l := log.FromContext(ctx)

	ok, err := o.store.AcquireUpdateLock()
	if err != nil {
		return res, fmt.Errorf("acquire update lock: %w", err)
	}
	if !ok {
		return res, ErrRefreshInProgress
	}
	defer func() {
		if rerr := o.store.ReleaseUpdateLock(); rerr != nil {
			l.Error().Err(rerr).Msg("release update lock")
			err = errors.Join(err, rerr)
		}
	}()

	res, err = o.refresh(ctx)
	if err != nil {
		if rerr := o.store.RecordError(err); rerr != nil {
			l.Error().Err(rerr).Msg("record error")
		}
		return res, err
	}
	return res, nil
}

func (o *Orchestrator) refresh(ctx context.Context) (RefreshResult, error) {
	l := log.FromContext(ctx)
	rec := o.store.Load()

	changes, err := o.detector.DetectChanges(ctx, rec.Sources)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("detect changes: %w", err)
	}
	res := RefreshResult{Changed: changes.Changed, Unreachable: changes.Unreachable}
	if changes.AllUnreachable() {
		return res, ErrSourcesUnreachable
	}

	if changes.HasChanges {
		vf, err := skill.ReadVersion(o.versionPath)
		if err != nil {
			return res, err
		}
		version, err := candidateVersion(vf.Version, changes.LatestVersion)
		if err != nil {
			return res, err
		}
		if err := o.store.SetUpdateAvailable(version, Summary(changes.Changed)); err != nil {
			return res, fmt.Errorf("set update available: %w", err)
		}
		res.PendingVersion = version
		l.Info().Str("version", version).Strs("changed", changes.Changed).Msg("update available")
	}

	if err := o.store.RecordCheck(changes.States); err != nil {
		return res, fmt.Errorf("record check: %w", err)
	}
	if err := o.store.ClearErrors(); err != nil {
		return res, fmt.Errorf("clear errors: %w", err)
	}
	return res, nil
}

// candidateVersion prefers a probed version newer than current, else bumps
// the patch level of current.
func candidateVersion(current, latest string) (string, error) {
	if latest != "" && skill.IsNewer(latest, current) {
		return latest, nil
	}
	return skill.BumpPatch(current)
}

// Summary describes the changed sources for the pending changelog field.
func Summary(changed []string) string {
	return "Changed sources: " + strings.Join(changed, ", ")
}

// UpdateResult reports a forced update.
type UpdateResult struct {
	UpToDate        bool // nothing changed and nothing was pending
	Regenerated     bool
	PreviousVersion string
	Version         string
	Changed         []string
	Unreachable     []string
	Failed          []string // sources whose full fetch failed
	Artifacts       []artifact.Artifact
}

// Update applies an update synchronously. On failure the error is recorded
// and returned; artifacts already written stay, but the skill version is
// only bumped after everything else succeeded.
func (o *Orchestrator) Update(ctx context.Context) (UpdateResult, error) {
	res, err := o.update(ctx)
	if err != nil {
		if rerr := o.store.RecordError(err); rerr != nil {
			log.FromContext(ctx).Error().Err(rerr).Msg("record error")
		}
		return res, err
	}
	return res, nil
}

func (o *Orchestrator) update(ctx context.Context) (UpdateResult, error) {
	l := log.FromContext(ctx)
	rec := o.store.Load()

	vf, err := skill.ReadVersion(o.versionPath)
	if err != nil {
		return UpdateResult{}, err
	}
	res := UpdateResult{PreviousVersion: vf.Version, Version: vf.Version}

	changes, err := o.detector.DetectChanges(ctx, rec.Sources)
	if err != nil {
		return res, fmt.Errorf("detect changes: %w", err)
	}
	res.Changed = changes.Changed
	res.Unreachable = changes.Unreachable
	if changes.AllUnreachable() {
		return res, ErrSourcesUnreachable
	}

	if !changes.HasChanges && !rec.UpdateAvailable {
		res.UpToDate = true
		if err := o.store.RecordCheck(changes.States); err != nil {
			return res, fmt.Errorf("record check: %w", err)
		}
		return res, nil
	}

	if !o.generator.Available() {
		l.Warn().Msg("artifact generation unavailable, recording check only")
		if err := o.store.RecordCheck(changes.States); err != nil {
			return res, fmt.Errorf("record check: %w", err)
		}
		return res, nil
	}

	content, err := o.detector.FetchAllContent(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch content: %w", err)
	}
	res.Failed = content.Failed
	if len(content.Docs) == 0 {
		return res, ErrSourcesUnreachable
	}

	res.Artifacts, err = o.generator.RegenerateAll(ctx, content.Docs)
	if err != nil {
		return res, fmt.Errorf("regenerate artifacts: %w", err)
	}
	res.Regenerated = true

	if err := o.generator.UpdateMarkerTimestamp(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return res, fmt.Errorf("update marker: %w", err)
		}
		l.Warn().Err(err).Msg("root document missing, marker not updated")
	}

	version, err := updateVersion(vf.Version, content.Version)
	if err != nil {
		return res, err
	}
	if err := skill.WriteVersion(o.versionPath, vf, version, o.now()); err != nil {
		return res, err
	}
	res.Version = version

	states := maps.Clone(changes.States)
	if states == nil {
		states = make(map[string]cache.SourceState)
	}
	maps.Copy(states, content.States)
	// Sources whose content never arrived keep their cached validators so the
	// next check reports them as changed again.
	for _, name := range content.Failed {
		delete(states, name)
	}
	if len(content.Failed) > 0 {
		l.Warn().Strs("failed", content.Failed).Msg("some sources could not be fetched, their artifacts were skipped")
	}

	if err := o.store.SetSkillVersion(version); err != nil {
		return res, fmt.Errorf("record skill version: %w", err)
	}
	if err := o.store.ClearUpdateAvailable(); err != nil {
		return res, fmt.Errorf("clear update available: %w", err)
	}
	if err := o.store.RecordCheck(states); err != nil {
		return res, fmt.Errorf("record check: %w", err)
	}
	if err := o.store.ClearErrors(); err != nil {
		return res, fmt.Errorf("clear errors: %w", err)
	}

	l.Info().Str("from", res.PreviousVersion).Str("to", version).Msg("update applied")
	return res, nil
}

// updateVersion prefers the authoritative source's version unless it is
// older than current, else bumps the patch level.
func updateVersion(current, authoritative string) (string, error) {
	if authoritative != "" && skill.AtLeast(authoritative, current) {
		return authoritative, nil
	}
	return skill.BumpPatch(current)
}

// Status is a read-only snapshot.
type Status struct {
	Record         *cache.Record
	SkillVersion   string
	Age            time.Duration
	Checked        bool // false when no check ever succeeded
	Fresh          bool
	StaleButUsable bool
	LockHeld       bool
	VersionErr     error
}

// Status reads the record and the skill version file without writing.
func (o *Orchestrator) Status() Status {
	rec := o.store.Load()
	age, checked := o.store.Age()
	st := Status{
		Record:         rec,
		Age:            age,
		Checked:        checked,
		Fresh:          o.store.IsFresh(),
		StaleButUsable: o.store.IsStaleButUsable(),
		LockHeld:       o.store.LockHeld(),
	}
	vf, err := skill.ReadVersion(o.versionPath)
	if err != nil {
		st.VersionErr = err
		st.SkillVersion = rec.SkillVersion
		return st
	}
	st.SkillVersion = vf.Version
	return st
}
