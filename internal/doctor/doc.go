// Package doctor diagnoses and repairs the cache record and its files.
//
// The record's invariants can only be broken by crashes, manual edits or
// two refreshes racing past an abandoned lock. Doctor detects:
//
//   - Lock issues: a lock flag without a timestamp (or the reverse), and
//     locks older than the lock timeout.
//   - Pending issues: a pending version without update_available (or the
//     reverse), and a notified version ahead of the pending one.
//   - File issues: an unparsable cache file, a last check in the future,
//     and temp files left behind by interrupted atomic writes.
//
// # Usage
//
//	report, err := doctor.Run(ctx, cfg, false, time.Now)  // check only
//	report, err := doctor.Run(ctx, cfg, true, time.Now)   // check and fix
//
// Each [Issue] carries a description and the fix action --fix applies.
package doctor
