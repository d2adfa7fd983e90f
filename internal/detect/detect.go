// Package detect decides which remote sources changed since the last check
// and fetches their full content when an update is applied.
//
// Change detection only issues HEAD requests. A source counts as changed
// when the server reports an ETag that differs from the cached one, or the
// cache never had one. Servers without ETags fall back to Last-Modified.
// Sources that cannot be reached keep their cached state and are reported
// as unreachable rather than changed.
package detect

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raphi011/skillsync/internal/cache"
	"github.com/raphi011/skillsync/internal/config"
	"github.com/raphi011/skillsync/internal/fetch"
	"github.com/raphi011/skillsync/internal/log"
)

// Fetcher is the subset of fetch.Fetcher the detector needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string, cached fetch.Validators) fetch.Result
	Head(ctx context.Context, url string) fetch.Result
}

// Changes is the outcome of one DetectChanges call.
type Changes struct {
	HasChanges    bool
	Changed       []string // source names, in declaration order
	Unreachable   []string
	Reached       int // sources that answered
	States        map[string]cache.SourceState
	LatestVersion string // only set by the version probe
}

// AllUnreachable reports whether no source answered at all.
func (c Changes) AllUnreachable() bool {
	return c.Reached == 0 && len(c.Unreachable) > 0
}

// Content is the outcome of FetchAllContent.
type Content struct {
	Docs    map[string]string // source name -> body, successful fetches only
	States  map[string]cache.SourceState
	Failed  []string
	Version string // version token from the authoritative source
}

// Detector runs change checks and full fetches over a fixed source list.
type Detector struct {
	sources       []config.Source
	fetcher       Fetcher
	authoritative string
	concurrency   int
	probeVersion  bool
	now           func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithConcurrency bounds the number of in-flight requests.
func WithConcurrency(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithVersionProbe makes DetectChanges fetch the authoritative source when
// it changed, to fill Changes.LatestVersion.
func WithVersionProbe() Option {
	return func(d *Detector) { d.probeVersion = true }
}

// WithClock sets the time source for checked_utc stamps.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// New creates a Detector. authoritative names the source whose content
// carries the version heading.
func New(sources []config.Source, f Fetcher, authoritative string, opts ...Option) *Detector {
	d := &Detector{
		sources:       sources,
		fetcher:       f,
		authoritative: authoritative,
		concurrency:   4,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFromConfig creates a Detector for every source in cfg.
func NewFromConfig(cfg *config.Config, f Fetcher, opts ...Option) *Detector {
	base := []Option{WithConcurrency(cfg.HTTP.Concurrency)}
	return New(cfg.SourceList(), f, cfg.Sources.Authoritative, append(base, opts...)...)
}

// Sources returns the tracked sources.
func (d *Detector) Sources() []config.Source {
	return d.sources
}

// each runs fn for every source with bounded concurrency. Results land at
// the source's index so callers can report in declaration order.
func (d *Detector) each(ctx context.Context, fn func(ctx context.Context, i int, src config.Source)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, src := range d.sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(gctx, i, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// DetectChanges issues a HEAD per source and compares the answers with the
// cached per-source state. Fetch failures never fail the call; only a
// cancelled context does.
func (d *Detector) DetectChanges(ctx context.Context, cached map[string]cache.SourceState) (Changes, error) {
	l := log.FromContext(ctx)

	results := make([]fetch.Result, len(d.sources))
	checkedAt := d.now().UTC()

	err := d.each(ctx, func(ctx context.Context, i int, src config.Source) {
		results[i] = d.fetcher.Head(ctx, src.URL)
	})
	if err != nil {
		return Changes{}, err
	}

	changes := Changes{States: make(map[string]cache.SourceState, len(d.sources))}
	for i, src := range d.sources {
		res := results[i]
		prev, seen := cached[src.Name]

		if !res.Success {
			l.Warn().Str("source", src.Name).Err(res.Err).Msg("source unreachable")
			changes.Unreachable = append(changes.Unreachable, src.Name)
			if seen {
				changes.States[src.Name] = prev
			}
			continue
		}

		changes.Reached++
		changed := sourceChanged(prev, seen, res)
		if changed {
			changes.Changed = append(changes.Changed, src.Name)
		}
		changes.States[src.Name] = cache.SourceState{
			ETag:         res.ETag,
			LastModified: res.LastModified,
			ContentHash:  prev.ContentHash,
			CheckedAt:    &checkedAt,
		}
		l.Debug().Str("source", src.Name).Str("etag", res.ETag).Bool("changed", changed).Msg("checked source")
	}
	changes.HasChanges = len(changes.Changed) > 0

	if d.probeVersion && d.authoritativeChanged(changes.Changed) {
		v, err := d.LatestVersion(ctx)
		if err != nil {
			l.Debug().Err(err).Msg("version probe failed")
		}
		changes.LatestVersion = v
	}

	return changes, nil
}

func (d *Detector) authoritativeChanged(changed []string) bool {
	for _, name := range changed {
		if name == d.authoritative {
			return true
		}
	}
	return false
}

// sourceChanged compares a HEAD answer with what the cache remembers.
func sourceChanged(prev cache.SourceState, seen bool, res fetch.Result) bool {
	switch {
	case res.ETag != "":
		return !seen || prev.ETag != res.ETag
	case res.LastModified != "":
		return !seen || prev.LastModified != res.LastModified
	default:
		return !seen
	}
}

// FetchAllContent GETs every source. Requests are unconditional: change
// detection has already refreshed the cached validators, so a conditional
// GET would answer 304 without the body regeneration needs.
func (d *Detector) FetchAllContent(ctx context.Context) (Content, error) {
	l := log.FromContext(ctx)

	results := make([]fetch.Result, len(d.sources))
	checkedAt := d.now().UTC()

	err := d.each(ctx, func(ctx context.Context, i int, src config.Source) {
		results[i] = d.fetcher.Fetch(ctx, src.URL, fetch.Validators{})
	})
	if err != nil {
		return Content{}, err
	}

	content := Content{
		Docs:   make(map[string]string, len(d.sources)),
		States: make(map[string]cache.SourceState, len(d.sources)),
	}
	for i, src := range d.sources {
		res := results[i]
		if !res.Success {
			l.Warn().Str("source", src.Name).Err(res.Err).Msg("fetch failed")
			content.Failed = append(content.Failed, src.Name)
			continue
		}
		content.Docs[src.Name] = string(res.Content)
		content.States[src.Name] = cache.SourceState{
			ETag:         res.ETag,
			LastModified: res.LastModified,
			ContentHash:  res.ContentHash,
			CheckedAt:    &checkedAt,
		}
		l.Debug().Str("source", src.Name).Int("bytes", len(res.Content)).Msg("fetched source")
	}

	if body, ok := content.Docs[d.authoritative]; ok {
		content.Version = ExtractVersion(body)
	}

	return content, nil
}

// LatestVersion fetches only the authoritative source and returns its
// version token, or "" if it has none.
func (d *Detector) LatestVersion(ctx context.Context) (string, error) {
	src, ok := d.source(d.authoritative)
	if !ok {
		return "", &UnknownSourceError{Name: d.authoritative}
	}
	res := d.fetcher.Fetch(ctx, src.URL, fetch.Validators{})
	if !res.Success {
		return "", res.Err
	}
	return ExtractVersion(string(res.Content)), nil
}

func (d *Detector) source(name string) (config.Source, bool) {
	for _, s := range d.sources {
		if s.Name == name {
			return s, true
		}
	}
	return config.Source{}, false
}

// UnknownSourceError is returned when a source name is not tracked.
type UnknownSourceError struct {
	Name string
}

func (e *UnknownSourceError) Error() string {
	return "unknown source: " + e.Name
}
