// Package hooks runs user-defined shell commands after skillsync operations.
//
// Hooks are declared in skillsync.toml and run in the install directory once
// an update has been applied, e.g. to commit the regenerated references:
//
//	[hooks.commit]
//	command = "git commit -am {version}"
//	description = "Commit regenerated references"
//	on = ["update"]
//
// A hook without "on" never runs automatically. The special trigger "all"
// matches every trigger.
//
// # Placeholder Substitution
//
//   - {dir}: install directory
//   - {version}: skill version after the operation
//   - {previous}: skill version before the operation
//   - {changed}: changed source names, comma separated
//   - {trigger}: trigger that ran the hook
//
// Values are shell-quoted. Append ":raw" ({version:raw}) to embed a value
// inside an existing quoted string.
//
// Hook failures are reported as warnings; they never undo the operation.
package hooks
