// Package fetch provides conditional HTTP GET/HEAD with retry for remote
// documentation sources.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	digest "github.com/opencontainers/go-digest"
	"golang.org/x/time/rate"

	"github.com/raphi011/skillsync/internal/config"
	"github.com/raphi011/skillsync/internal/log"
)

const (
	// DefaultTimeout is the default timeout for a single HTTP request
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response size (32MB)
	MaxResponseSize = 32 * 1024 * 1024

	// UserAgent is the default user agent string
	UserAgent = "skillsync/1.0"
)

// ErrUnreachable marks a source that could not be fetched this cycle after
// all retries. It is never fatal to the caller.
var ErrUnreachable = errors.New("source unreachable")

// HTTPError is a non-success HTTP status.
type HTTPError struct {
	StatusCode int
	URL        string
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Validators are the cached values sent with a conditional request.
type Validators struct {
	ETag         string
	LastModified string
}

// Result is the outcome of one Fetch or Head call, retries included.
// Failures are reported in Err; Fetch and Head never return Go errors.
type Result struct {
	Success      bool
	StatusCode   int
	Content      []byte
	ETag         string
	LastModified string
	ContentHash  string
	NotModified  bool
	Err          error
	Attempts     int

	transient bool // the last failure was a network, 429, 5xx or body-read fault
}

// Hash returns the content-addressable digest of b ("sha256:<hex>").
func Hash(b []byte) string {
	return digest.FromBytes(b).String()
}

// Fetcher performs conditional requests with retry and pacing.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration
	limiter     *rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithRetry sets the retry ceiling and the exponential backoff base and cap.
// The cap also bounds Retry-After.
func WithRetry(maxRetries int, base, max time.Duration) Option {
	return func(f *Fetcher) {
		f.maxRetries = maxRetries
		f.backoffBase = base
		f.backoffMax = max
	}
}

// WithRateLimit paces requests to rps per second. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// New creates a Fetcher with defaults: 3 retries, 1s base, 30s cap, no pacing.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: DefaultTimeout},
		userAgent:   UserAgent,
		maxRetries:  3,
		backoffBase: time.Second,
		backoffMax:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFromConfig creates a Fetcher from the [http] config section.
func NewFromConfig(c config.HTTPConfig) *Fetcher {
	return New(
		WithHTTPClient(&http.Client{Timeout: c.Timeout.Duration}),
		WithRetry(c.MaxRetries, c.BackoffBase.Duration, c.BackoffMax.Duration),
		WithRateLimit(c.RequestsPerSecond),
		WithUserAgent(c.UserAgent),
	)
}

// Fetch performs a GET, conditional on any cached validators. A 304 yields
// NotModified with no content; a body is hashed into ContentHash.
func (f *Fetcher) Fetch(ctx context.Context, url string, cached Validators) Result {
	return f.do(ctx, http.MethodGet, url, cached)
}

// Head performs a HEAD to learn the current ETag and Last-Modified.
func (f *Fetcher) Head(ctx context.Context, url string) Result {
	return f.do(ctx, http.MethodHead, url, Validators{})
}

func (f *Fetcher) do(ctx context.Context, method, url string, cached Validators) Result {
	l := log.FromContext(ctx)

	var last Result
	attempts := 0
	operation := func() (Result, error) {
		attempts++
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				last = Result{Err: err, transient: true}
				return last, backoff.Permanent(err)
			}
		}
		r, err := f.once(ctx, method, url, cached)
		last = r
		return r, err
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     f.backoffBase,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         f.backoffMax,
	}
	b.Reset()

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(f.maxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			l.Debug().Err(err).Str("url", url).Dur("retry_in", next).Msg("request failed, retrying")
		}),
	)

	res := last
	res.Attempts = attempts
	if err != nil {
		res.Success = false
		if res.Err == nil {
			res.Err = err
		}
		if res.transient {
			res.Err = fmt.Errorf("%w: %s after %d attempts: %w", ErrUnreachable, url, attempts, res.Err)
		}
	}
	return res
}

// once performs a single request. The returned error drives the retry loop:
// nil stops with success, a Permanent error stops immediately, anything else
// is retried.
func (f *Fetcher) once(ctx context.Context, method, url string, cached Validators) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		err = fmt.Errorf("failed to create request: %w", err)
		return Result{Err: err}, backoff.Permanent(err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	if cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}
	if cached.LastModified != "" {
		req.Header.Set("If-Modified-Since", cached.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to execute request: %w", err)
		if ctx.Err() != nil {
			return Result{Err: err, transient: true}, backoff.Permanent(err)
		}
		return Result{Err: err, transient: true}, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
	}()

	r := Result{
		StatusCode:   resp.StatusCode,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}

	switch {
	case resp.StatusCode == http.StatusNotModified:
		// Servers may omit validators on 304; the cached ones still hold
		if r.ETag == "" {
			r.ETag = cached.ETag
		}
		if r.LastModified == "" {
			r.LastModified = cached.LastModified
		}
		r.Success = true
		r.NotModified = true
		return r, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		r.Err = &HTTPError{StatusCode: resp.StatusCode, URL: url, Status: resp.Status}
		r.transient = true
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			return r, &backoff.RetryAfterError{Duration: min(d, f.backoffMax)}
		}
		return r, r.Err

	case resp.StatusCode >= 500:
		r.Err = &HTTPError{StatusCode: resp.StatusCode, URL: url, Status: resp.Status}
		r.transient = true
		return r, r.Err

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		r.Err = &HTTPError{StatusCode: resp.StatusCode, URL: url, Status: resp.Status}
		return r, backoff.Permanent(r.Err)
	}

	if method == http.MethodHead {
		r.Success = true
		return r, nil
	}

	// Check Content-Length header if available
	if resp.ContentLength > MaxResponseSize {
		r.Err = fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes", resp.ContentLength, MaxResponseSize)
		return r, backoff.Permanent(r.Err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		r.Err = fmt.Errorf("failed to read response body: %w", err)
		r.transient = true
		return r, r.Err
	}
	if int64(len(body)) > MaxResponseSize {
		r.Err = fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
		return r, backoff.Permanent(r.Err)
	}

	r.Success = true
	r.Content = body
	r.ContentHash = Hash(body)
	return r, nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
