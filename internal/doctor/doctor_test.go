package doctor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphi011/skillsync/internal/cache"
	"github.com/raphi011/skillsync/internal/config"
	"github.com/raphi011/skillsync/internal/output"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func ptr(t time.Time) *time.Time { return &t }

func actions(issues []Issue) []string {
	var out []string
	for _, i := range issues {
		out = append(out, i.FixAction)
	}
	return out
}

func TestCheckRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  cache.Record
		want []string
	}{
		{
			name: "healthy",
			rec:  cache.Record{LastCheckedAt: ptr(testNow.Add(-time.Hour))},
			want: nil,
		},
		{
			name: "live lock is fine",
			rec:  cache.Record{UpdateInProgress: true, LockAcquiredAt: ptr(testNow.Add(-time.Minute))},
			want: nil,
		},
		{
			name: "lock flag without timestamp",
			rec:  cache.Record{UpdateInProgress: true},
			want: []string{FixClearLock},
		},
		{
			name: "lock timestamp without flag",
			rec:  cache.Record{LockAcquiredAt: ptr(testNow)},
			want: []string{FixClearLock},
		},
		{
			name: "abandoned lock",
			rec:  cache.Record{UpdateInProgress: true, LockAcquiredAt: ptr(testNow.Add(-time.Hour))},
			want: []string{FixClearLock},
		},
		{
			name: "lock acquired in the future",
			rec:  cache.Record{UpdateInProgress: true, LockAcquiredAt: ptr(testNow.Add(time.Hour))},
			want: []string{FixClearLock},
		},
		{
			name: "pending without update_available",
			rec:  cache.Record{PendingVersion: "2.0.75"},
			want: []string{FixClearPending},
		},
		{
			name: "update_available without pending",
			rec:  cache.Record{UpdateAvailable: true},
			want: []string{FixClearPending},
		},
		{
			name: "notified ahead of pending",
			rec:  cache.Record{UpdateAvailable: true, PendingVersion: "2.0.75", NotifiedVersion: "2.0.80"},
			want: []string{FixResetNotified},
		},
		{
			name: "notified equal to pending is fine",
			rec:  cache.Record{UpdateAvailable: true, PendingVersion: "2.0.75", NotifiedVersion: "2.0.75"},
			want: nil,
		},
		{
			name: "last check in the future",
			rec:  cache.Record{LastCheckedAt: ptr(testNow.Add(time.Hour))},
			want: []string{FixClearChecked},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := tt.rec
			assert.Equal(t, tt.want, actions(CheckRecord(&rec, testNow, 5*time.Minute)))
		})
	}
}

func setup(t *testing.T, rec *cache.Record) (*config.Config, context.Context, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default(t.TempDir())
	if rec != nil {
		require.NoError(t, cache.Open(cfg.CachePath()).Save(rec))
	}
	var buf bytes.Buffer
	return &cfg, output.WithPrinter(context.Background(), &buf), &buf
}

func TestRun_NoIssues(t *testing.T) {
	t.Parallel()

	cfg, ctx, buf := setup(t, &cache.Record{SchemaVersion: 1, Sources: map[string]cache.SourceState{}})

	report, err := Run(ctx, cfg, false, clock)
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
	assert.Contains(t, buf.String(), "No issues found")
}

func TestRun_ReportsWithoutFixing(t *testing.T) {
	t.Parallel()

	rec := cache.NewRecord()
	rec.UpdateInProgress = true
	cfg, ctx, buf := setup(t, rec)

	report, err := Run(ctx, cfg, false, clock)
	require.NoError(t, err)
	assert.Len(t, report.Issues, 1)
	assert.Equal(t, 1, report.Unfixed())
	assert.Contains(t, buf.String(), "doctor --fix")

	assert.True(t, cache.Open(cfg.CachePath()).Load().UpdateInProgress, "check only must not write")
}

// Scenario: abandoned lock, stray pending version and temp debris
// Expected: --fix repairs all of them in one pass
func TestRun_Fix(t *testing.T) {
	t.Parallel()

	rec := cache.NewRecord()
	rec.UpdateInProgress = true
	rec.LockAcquiredAt = ptr(testNow.Add(-time.Hour))
	rec.PendingVersion = "2.0.75"
	cfg, ctx, _ := setup(t, rec)

	debris := cfg.CachePath() + ".123.tmp"
	require.NoError(t, os.WriteFile(debris, []byte("{"), 0o600))

	report, err := Run(ctx, cfg, true, clock)
	require.NoError(t, err)
	assert.Len(t, report.Issues, 3)
	assert.Equal(t, 3, report.Fixed)
	assert.Zero(t, report.Failed)
	assert.Zero(t, report.Unfixed())

	got := cache.Open(cfg.CachePath()).Load()
	assert.False(t, got.UpdateInProgress)
	assert.Nil(t, got.LockAcquiredAt)
	assert.Empty(t, got.PendingVersion)
	assert.NoFileExists(t, debris)

	again, err := Run(ctx, cfg, false, clock)
	require.NoError(t, err)
	assert.Empty(t, again.Issues)
}

func TestRun_CorruptCache(t *testing.T) {
	t.Parallel()

	cfg, ctx, _ := setup(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.CachePath()), 0o755))
	require.NoError(t, os.WriteFile(cfg.CachePath(), []byte("{not json"), 0o600))

	report, err := Run(ctx, cfg, true, clock)
	require.NoError(t, err)
	assert.Equal(t, []string{FixResetCache}, actions(report.Issues))
	assert.Equal(t, 1, report.Fixed)

	data, err := os.ReadFile(cfg.CachePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"schema_version": 1`)
}

func TestRun_UnreadableVersionFile(t *testing.T) {
	t.Parallel()

	cfg, ctx, _ := setup(t, nil)
	require.NoError(t, os.WriteFile(cfg.VersionPath(), []byte("nope"), 0o644))

	report, err := Run(ctx, cfg, true, clock)
	require.NoError(t, err)
	assert.Equal(t, []string{FixManual}, actions(report.Issues))
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Unfixed())
}
