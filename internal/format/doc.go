// Package format renders timestamps and durations for status output.
//
// Recent times are shown relative to now ("5m ago", "yesterday"); anything a
// week or older is shown as a date.
package format
