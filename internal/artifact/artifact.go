// Package artifact turns fetched source documents into the generated
// reference files and keeps the "last updated" marker of the root document
// current.
//
// Generation is a capability: callers receive a Generator that is either
// backed by the file system or explicitly unavailable, and check Available
// instead of probing for it at runtime.
//
// Output is a pure function of the content map and the injected clock's
// date, so running RegenerateAll twice with the same inputs produces
// byte-identical files.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/raphi011/skillsync/internal/config"
	"github.com/raphi011/skillsync/internal/log"
	"github.com/raphi011/skillsync/internal/storage"
)

// ErrUnavailable is returned by every operation of the unavailable generator.
var ErrUnavailable = errors.New("artifact generation unavailable")

// DateLayout is the date format used in headers and the marker.
const DateLayout = "2006-01-02"

// Artifact describes one declared output after a RegenerateAll call.
type Artifact struct {
	Name    string
	Path    string
	Sources []string
	Missing []string // sources absent from the content map
	Skipped bool     // not written because sources were missing
	Changed bool     // bytes on disk differ from before
	Size    int
}

// Generator produces reference artifacts.
type Generator interface {
	Available() bool
	RegenerateAll(ctx context.Context, docs map[string]string) ([]Artifact, error)
	UpdateMarkerTimestamp() error
}

// Unavailable returns a Generator that cannot generate anything.
func Unavailable() Generator {
	return unavailable{}
}

type unavailable struct{}

func (unavailable) Available() bool { return false }

func (unavailable) RegenerateAll(context.Context, map[string]string) ([]Artifact, error) {
	return nil, ErrUnavailable
}

func (unavailable) UpdateMarkerTimestamp() error { return ErrUnavailable }

// FileGenerator writes artifacts into a references directory.
type FileGenerator struct {
	dir     string
	rootDoc string
	outputs []config.Output
	urls    map[string]string // source name -> URL for provenance
	now     func() time.Time
}

// Option configures a FileGenerator.
type Option func(*FileGenerator)

// WithClock sets the time source for the generated-on date.
func WithClock(now func() time.Time) Option {
	return func(g *FileGenerator) { g.now = now }
}

// New creates a FileGenerator writing outputs into dir and the marker into
// rootDoc.
func New(dir, rootDoc string, outputs []config.Output, sources []config.Source, opts ...Option) *FileGenerator {
	urls := make(map[string]string, len(sources))
	for _, s := range sources {
		urls[s.Name] = s.URL
	}
	g := &FileGenerator{
		dir:     dir,
		rootDoc: rootDoc,
		outputs: outputs,
		urls:    urls,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewFromConfig returns the file-backed generator, or the unavailable one
// when no outputs are declared.
func NewFromConfig(cfg *config.Config, opts ...Option) Generator {
	if len(cfg.Outputs) == 0 {
		return Unavailable()
	}
	return New(cfg.ReferencesDir(), cfg.RootDocPath(), cfg.Outputs, cfg.SourceList(), opts...)
}

// Available reports true.
func (g *FileGenerator) Available() bool { return true }

func (g *FileGenerator) date() string {
	return g.now().UTC().Format(DateLayout)
}

// RegenerateAll writes every declared output whose sources are all present
// in docs. Outputs with missing sources are skipped and reported, not
// failed. The first write error aborts; artifacts written before it stay.
func (g *FileGenerator) RegenerateAll(ctx context.Context, docs map[string]string) ([]Artifact, error) {
	l := log.FromContext(ctx)
	date := g.date()

	artifacts := make([]Artifact, 0, len(g.outputs))
	for _, out := range g.outputs {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}

		a := Artifact{
			Name:    out.Name,
			Path:    filepath.Join(g.dir, out.Name),
			Sources: slices.Clone(out.Sources),
		}
		for _, src := range out.Sources {
			if _, ok := docs[src]; !ok {
				a.Missing = append(a.Missing, src)
			}
		}
		if len(a.Missing) > 0 {
			a.Skipped = true
			l.Warn().Str("artifact", out.Name).Strs("missing", a.Missing).Msg("skipping artifact")
			artifacts = append(artifacts, a)
			continue
		}

		data := []byte(g.render(out, docs, date))
		a.Size = len(data)

		prev, err := os.ReadFile(a.Path)
		a.Changed = err != nil || !bytes.Equal(prev, data)
		if a.Changed {
			if err := storage.WriteFileAtomic(a.Path, data, 0o644); err != nil {
				return artifacts, fmt.Errorf("write %s: %w", out.Name, err)
			}
		}
		l.Debug().Str("artifact", out.Name).Int("bytes", a.Size).Bool("changed", a.Changed).Msg("generated artifact")
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

// render builds one artifact: provenance header, optional title, then each
// source's normalized content separated by a blank line.
func (g *FileGenerator) render(out config.Output, docs map[string]string, date string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- Generated by skillsync on %s. Do not edit by hand. -->\n", date)
	for _, src := range out.Sources {
		url := g.urls[src]
		if url == "" {
			url = src
		}
		fmt.Fprintf(&b, "<!-- Source: %s -->\n", url)
	}
	b.WriteString("\n")

	parts := make([]string, 0, len(out.Sources)+1)
	if out.Title != "" {
		parts = append(parts, "# "+out.Title)
	}
	for _, src := range out.Sources {
		if body := Normalize(docs[src]); body != "" {
			parts = append(parts, strings.TrimSuffix(body, "\n"))
		}
	}
	b.WriteString(strings.Join(parts, "\n\n"))

	return Normalize(b.String())
}

// Normalize converts line endings to LF, strips trailing whitespace,
// collapses runs of blank lines into one, trims leading and trailing blank
// lines and ends the text with exactly one newline. Empty input stays empty.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if len(out) > 0 {
				blank = true
			}
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}
