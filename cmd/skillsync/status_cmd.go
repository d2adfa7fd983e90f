package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/skillsync/internal/cache"
	"github.com/raphi011/skillsync/internal/config"
	"github.com/raphi011/skillsync/internal/format"
	"github.com/raphi011/skillsync/internal/output"
	"github.com/raphi011/skillsync/internal/ui/static"
	"github.com/raphi011/skillsync/internal/ui/styles"
	"github.com/raphi011/skillsync/internal/updater"
)

// Freshness states reported by status
const (
	StateFresh   = "fresh"
	StateStale   = "stale"
	StateExpired = "expired"
	StateNever   = "never"
)

func newStatusCmd() *cobra.Command {
	var (
		jsonOut bool
		source  string
	)

	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show cache and update state",
		GroupID: GroupCore,
		Args:    cobra.NoArgs,
		Long: `Show the skill version, when sources were last checked, whether an
update is pending and the last recorded error. Never writes anything.`,
		Example: `  skillsync status
  skillsync status --json
  skillsync status --source hooks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			opts := statusOptions{JSON: jsonOut, Source: source, Now: time.Now}
			return runStatus(cmd.Context(), c, newOrchestrator(c), opts)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().StringVarP(&source, "source", "s", "", "Show a single source")

	cmd.RegisterFlagCompletionFunc("source", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		loadConfig()
		return cfg.SourceNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

type statusOptions struct {
	JSON   bool
	Source string
	Now    func() time.Time
}

// statusJSON is the --json shape.
type statusJSON struct {
	Dir            string        `json:"dir"`
	SkillVersion   string        `json:"skill_version"`
	State          string        `json:"state"`
	AgeSeconds     *int64        `json:"age_seconds,omitempty"`
	RefreshRunning bool          `json:"refresh_running"`
	VersionError   string        `json:"version_error,omitempty"`
	Cache          *cache.Record `json:"cache"`
}

// sourceJSON is the --json --source shape.
type sourceJSON struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	cache.SourceState
	Seen bool `json:"seen"`
}

func runStatus(ctx context.Context, c *config.Config, o *updater.Orchestrator, opts statusOptions) error {
	out := output.FromContext(ctx)
	st := o.Status()

	if opts.Source != "" {
		return printSourceStatus(out, c, st.Record, opts)
	}

	if opts.JSON {
		js := statusJSON{
			Dir:            c.Dir,
			SkillVersion:   st.SkillVersion,
			State:          freshness(st),
			RefreshRunning: st.LockHeld,
			Cache:          st.Record,
		}
		if st.Checked {
			secs := int64(st.Age / time.Second)
			js.AgeSeconds = &secs
		}
		if st.VersionErr != nil {
			js.VersionError = st.VersionErr.Error()
		}
		return out.JSON(js)
	}

	now := opts.Now()
	rec := st.Record
	pairs := [][2]string{
		{"Install dir", c.Dir},
		{"Skill version", styles.PrimaryStyle.Render(st.SkillVersion)},
		{"Last check", lastCheck(st, c, now)},
		{"Update", pendingUpdate(rec)},
		{"Refresh", refreshState(st, now)},
	}
	if st.VersionErr != nil {
		pairs = append(pairs, [2]string{"Version file", styles.ErrorStyle.Render(st.VersionErr.Error())})
	}
	if rec.LastError != "" {
		pairs = append(pairs, [2]string{"Last error", styles.ErrorStyle.Render(rec.LastError) +
			styles.MutedStyle.Render(fmt.Sprintf(" (%d consecutive)", rec.ErrorCount))})
	}
	out.Print(static.RenderKV(pairs))

	rows := sourceRows(c, rec, now)
	if len(rows) > 0 {
		out.Println()
		out.Print(static.RenderTable([]string{"SOURCE", "ETAG", "LAST MODIFIED", "CHECKED"}, rows))
	}
	return nil
}

func printSourceStatus(out *output.Printer, c *config.Config, rec *cache.Record, opts statusOptions) error {
	names := c.SourceNames()
	if !slices.Contains(names, opts.Source) {
		return config.UnknownSourceError(opts.Source, names)
	}

	var url string
	for _, s := range c.SourceList() {
		if s.Name == opts.Source {
			url = s.URL
		}
	}
	state, seen := rec.Sources[opts.Source]

	if opts.JSON {
		return out.JSON(sourceJSON{Name: opts.Source, URL: url, SourceState: state, Seen: seen})
	}

	pairs := [][2]string{
		{"Source", opts.Source},
		{"URL", url},
	}
	if !seen {
		pairs = append(pairs, [2]string{"State", styles.MutedStyle.Render("never checked")})
		out.Print(static.RenderKV(pairs))
		return nil
	}
	pairs = append(pairs,
		[2]string{"ETag", orDash(state.ETag)},
		[2]string{"Last modified", orDash(state.LastModified)},
		[2]string{"Content hash", orDash(state.ContentHash)},
		[2]string{"Checked", checkedAt(state.CheckedAt, opts.Now())},
	)
	out.Print(static.RenderKV(pairs))
	return nil
}

func freshness(st updater.Status) string {
	switch {
	case !st.Checked:
		return StateNever
	case st.Fresh:
		return StateFresh
	case st.StaleButUsable:
		return StateStale
	}
	return StateExpired
}

func lastCheck(st updater.Status, c *config.Config, now time.Time) string {
	if !st.Checked {
		return styles.WarningStyle.Render("never")
	}
	when := format.RelativeTimeFrom(*st.Record.LastCheckedAt, now)
	switch freshness(st) {
	case StateFresh:
		return when + styles.MutedStyle.Render(" (fresh for "+format.Duration(c.Timing.FreshTTL.Duration)+")")
	case StateStale:
		return when + styles.WarningStyle.Render(" (stale, refresh on next check)")
	}
	return when + styles.ErrorStyle.Render(" (expired, older than "+format.Duration(c.Timing.StaleTTL.Duration)+")")
}

func pendingUpdate(rec *cache.Record) string {
	if !rec.UpdateAvailable {
		return styles.MutedStyle.Render("none")
	}
	s := styles.NoticeStyle.Render(rec.PendingVersion + " available")
	if rec.PendingChangelog != "" {
		s += styles.MutedStyle.Render(" (" + rec.PendingChangelog + ")")
	}
	if rec.NotifiedVersion == rec.PendingVersion {
		s += styles.MutedStyle.Render(", notified")
	}
	return s
}

func refreshState(st updater.Status, now time.Time) string {
	rec := st.Record
	switch {
	case st.LockHeld:
		return styles.PrimaryStyle.Render("running since " + format.RelativeTimeFrom(*rec.LockAcquiredAt, now))
	case rec.UpdateInProgress:
		return styles.WarningStyle.Render("abandoned lock, reclaimed by the next refresh")
	}
	return styles.MutedStyle.Render("idle")
}

func sourceRows(c *config.Config, rec *cache.Record, now time.Time) [][]string {
	var rows [][]string
	for _, name := range c.SourceNames() {
		state, ok := rec.Sources[name]
		if !ok {
			rows = append(rows, []string{name, "-", "-", styles.MutedStyle.Render("never")})
			continue
		}
		rows = append(rows, []string{name, orDash(state.ETag), orDash(state.LastModified), checkedAt(state.CheckedAt, now)})
	}
	return rows
}

func checkedAt(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	return format.RelativeTimeFrom(*t, now)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
