package doctor

// IssueCategory groups issues by type.
type IssueCategory string

const (
	// CategoryLock represents problems with the advisory refresh lock.
	CategoryLock IssueCategory = "lock"
	// CategoryPending represents inconsistent pending-update fields.
	CategoryPending IssueCategory = "pending"
	// CategoryFiles represents problems with files on disk.
	CategoryFiles IssueCategory = "files"
)

// Fix actions
const (
	FixClearLock     = "clear_lock"
	FixClearPending  = "clear_pending"
	FixResetNotified = "reset_notified"
	FixClearChecked  = "clear_last_checked"
	FixRemoveTemp    = "remove_temp"
	FixResetCache    = "reset_cache"
	FixManual        = "manual"
)

// Issue represents a problem detected by doctor.
type Issue struct {
	Key         string        // record field or file path
	Description string        // human-readable description
	FixAction   string        // what --fix would do
	Category    IssueCategory // issue category
}

// Report is the outcome of a doctor run.
type Report struct {
	Issues []Issue
	Fixed  int
	Failed int
}

// Unfixed returns the number of issues still present after the run.
func (r Report) Unfixed() int {
	return len(r.Issues) - r.Fixed
}
