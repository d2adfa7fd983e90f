package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/raphi011/skillsync/internal/cache"
	"github.com/raphi011/skillsync/internal/config"
	"github.com/raphi011/skillsync/internal/output"
	"github.com/raphi011/skillsync/internal/skill"
	"github.com/raphi011/skillsync/internal/storage"
	"github.com/raphi011/skillsync/internal/ui/styles"
)

// Run checks the cache record and related files, prints the findings and
// optionally repairs them.
func Run(ctx context.Context, cfg *config.Config, fix bool, now func() time.Time) (Report, error) {
	out := output.FromContext(ctx)
	cachePath := cfg.CachePath()

	out.Println("Checking cache record...")
	issues, err := checkCacheFile(cachePath)
	if err != nil {
		return Report{}, err
	}
	if len(issues) == 0 {
		rec := cache.Open(cachePath).Load()
		issues = append(issues, CheckRecord(rec, now(), cfg.Timing.LockTimeout.Duration)...)
	}

	out.Println("Checking files...")
	fileIssues, err := checkFiles(cfg)
	if err != nil {
		return Report{}, err
	}
	issues = append(issues, fileIssues...)

	report := Report{Issues: issues}
	if len(issues) == 0 {
		out.Println()
		out.Println(styles.OK("No issues found"))
		return report, nil
	}

	out.Printf("\nFound %d issues:\n", len(issues))
	for _, issue := range issues {
		out.Printf("  %s %s\n", styles.WarningStyle.Render("["+string(issue.Category)+"]"), issue.Description)
	}

	if !fix {
		out.Println("\nRun 'skillsync doctor --fix' to repair.")
		return report, nil
	}

	out.Println("\nFixing...")
	report.Fixed, report.Failed = applyFixes(ctx, cachePath, issues)
	out.Printf("\nFixed %d, failed %d\n", report.Fixed, report.Failed)
	return report, nil
}

// checkCacheFile reports a cache file that exists but cannot be parsed.
// Loading would silently replace it with a default record.
func checkCacheFile(path string) ([]Issue, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	var probe map[string]any
	if err := json.Unmarshal(data, &probe); err != nil {
		return []Issue{{
			Key:         path,
			Description: fmt.Sprintf("cache file is not valid JSON: %v", err),
			FixAction:   FixResetCache,
			Category:    CategoryFiles,
		}}, nil
	}
	return nil, nil
}

// CheckRecord reports invariant violations in rec.
func CheckRecord(rec *cache.Record, now time.Time, lockTimeout time.Duration) []Issue {
	var issues []Issue
	add := func(cat IssueCategory, key, action, format string, args ...any) {
		issues = append(issues, Issue{
			Key:         key,
			Description: fmt.Sprintf(format, args...),
			FixAction:   action,
			Category:    cat,
		})
	}

	switch {
	case rec.UpdateInProgress && rec.LockAcquiredAt == nil:
		add(CategoryLock, "update_in_progress", FixClearLock, "lock flag set without a timestamp")
	case !rec.UpdateInProgress && rec.LockAcquiredAt != nil:
		add(CategoryLock, "lock_acquired_utc", FixClearLock, "lock timestamp set without the lock flag")
	case rec.LockAcquiredAt != nil && rec.LockAcquiredAt.After(now):
		add(CategoryLock, "lock_acquired_utc", FixClearLock, "lock acquired %s is in the future", rec.LockAcquiredAt.Format(time.RFC3339))
	case rec.UpdateInProgress && now.Sub(*rec.LockAcquiredAt) >= lockTimeout:
		add(CategoryLock, "lock_acquired_utc", FixClearLock, "lock abandoned since %s", rec.LockAcquiredAt.Format(time.RFC3339))
	}

	switch {
	case rec.PendingVersion != "" && !rec.UpdateAvailable:
		add(CategoryPending, "pending_version", FixClearPending, "pending version %s without update_available", rec.PendingVersion)
	case rec.UpdateAvailable && rec.PendingVersion == "":
		add(CategoryPending, "update_available", FixClearPending, "update_available without a pending version")
	}

	if rec.NotifiedVersion != "" && rec.PendingVersion != "" && skill.IsNewer(rec.NotifiedVersion, rec.PendingVersion) {
		add(CategoryPending, "notified_version", FixResetNotified,
			"notified version %s is ahead of pending version %s", rec.NotifiedVersion, rec.PendingVersion)
	}

	if rec.LastCheckedAt != nil && rec.LastCheckedAt.After(now) {
		add(CategoryFiles, "last_checked_utc", FixClearChecked, "last check %s is in the future", rec.LastCheckedAt.Format(time.RFC3339))
	}

	return issues
}

// checkFiles reports leftover temp files and an unreadable version file.
func checkFiles(cfg *config.Config) ([]Issue, error) {
	var issues []Issue
	for _, path := range []string{cfg.CachePath(), cfg.VersionPath()} {
		debris, err := storage.TempFiles(path)
		if err != nil {
			return nil, err
		}
		for _, d := range debris {
			issues = append(issues, Issue{
				Key:         d,
				Description: fmt.Sprintf("leftover temp file %s", d),
				FixAction:   FixRemoveTemp,
				Category:    CategoryFiles,
			})
		}
	}

	if _, err := skill.ReadVersion(cfg.VersionPath()); err != nil {
		issues = append(issues, Issue{
			Key:         cfg.VersionPath(),
			Description: err.Error(),
			FixAction:   FixManual,
			Category:    CategoryFiles,
		})
	}
	return issues, nil
}

// applyFixes repairs what it can in one record rewrite plus file removals.
func applyFixes(ctx context.Context, cachePath string, issues []Issue) (fixed, failed int) {
	out := output.FromContext(ctx)
	store := cache.Open(cachePath)
	rec := store.Load()
	dirty := 0

	for _, issue := range issues {
		switch issue.FixAction {
		case FixResetCache:
			rec = cache.NewRecord()
			dirty++
		case FixClearLock:
			rec.UpdateInProgress = false
			rec.LockAcquiredAt = nil
			dirty++
		case FixClearPending:
			rec.UpdateAvailable = false
			rec.PendingVersion = ""
			rec.PendingChangelog = ""
			dirty++
		case FixResetNotified:
			rec.NotifiedVersion = ""
			dirty++
		case FixClearChecked:
			rec.LastCheckedAt = nil
			dirty++
		case FixRemoveTemp:
			if err := os.Remove(issue.Key); err != nil && !errors.Is(err, fs.ErrNotExist) {
				out.Println("  " + styles.Fail(fmt.Sprintf("Failed to remove %s: %v", issue.Key, err)))
				failed++
				continue
			}
			out.Println("  " + styles.OK("Removed "+issue.Key))
			fixed++
		default:
			out.Println("  " + styles.Warn("Cannot fix automatically: "+issue.Description))
			failed++
		}
	}

	if dirty == 0 {
		return fixed, failed
	}
	if err := store.Save(rec); err != nil {
		out.Println("  " + styles.Fail(fmt.Sprintf("Failed to save cache record: %v", err)))
		return fixed, failed + dirty
	}
	out.Println("  " + styles.OK(fmt.Sprintf("Repaired %d cache record issues", dirty)))
	return fixed + dirty, failed
}
