package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphi011/skillsync/internal/artifact"
	"github.com/raphi011/skillsync/internal/config"
	"github.com/raphi011/skillsync/internal/hooks"
	"github.com/raphi011/skillsync/internal/output"
	"github.com/raphi011/skillsync/internal/ui/progress"
	"github.com/raphi011/skillsync/internal/ui/static"
	"github.com/raphi011/skillsync/internal/ui/styles"
	"github.com/raphi011/skillsync/internal/updater"
)

func newUpdateCmd() *cobra.Command {
	var noHook bool

	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Fetch sources and regenerate references",
		GroupID: GroupCore,
		Args:    cobra.NoArgs,
		Long: `Apply an update synchronously.

Detects changed sources, fetches all content, regenerates the reference
documents, refreshes the "Last updated" marker and bumps the skill version.
Exits non-zero when the update fails; the failure is also recorded in the
cache and shown by 'skillsync status'.

Hooks with on = ["update"] run after the references were regenerated.`,
		Example: `  skillsync update
  skillsync update --dir ~/.skills/docs
  skillsync update --no-hook`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			opts := updateOptions{Stderr: cmd.ErrOrStderr()}
			if !noHook {
				opts.Hooks = hooks.Select(c.Hooks, hooks.TriggerUpdate)
			}
			return runUpdate(cmd.Context(), c, newOrchestrator(c), opts)
		},
	}

	cmd.Flags().BoolVar(&noHook, "no-hook", false, "Skip update hooks")

	return cmd
}

type updateOptions struct {
	Stderr io.Writer // spinner and hook stderr
	Hooks  []hooks.Match
}

// runUpdate applies the update with a spinner on stderr, prints the outcome
// and runs the selected hooks.
func runUpdate(ctx context.Context, c *config.Config, o *updater.Orchestrator, opts updateOptions) error {
	out := output.FromContext(ctx)

	var res updater.UpdateResult
	err := progress.Run(opts.Stderr, "Updating references...", func() error {
		var err error
		res, err = o.Update(ctx)
		return err
	})

	for _, name := range res.Unreachable {
		out.Println(styles.Warn(name + " unreachable, kept its cached state"))
	}
	for _, name := range res.Failed {
		out.Println(styles.Warn(name + " could not be fetched"))
	}
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	switch {
	case res.UpToDate:
		out.Println(styles.OK("Already up to date (" + res.Version + ")"))
	case !res.Regenerated:
		out.Println(styles.Warn("Artifact generation unavailable, update left pending"))
	default:
		out.Print(static.RenderTable([]string{"ARTIFACT", "STATUS", "SOURCES"}, artifactRows(res.Artifacts)))
		out.Println(styles.OK(fmt.Sprintf("Updated %s → %s", res.PreviousVersion, res.Version)))

		r := hooks.Runner{Stdout: styles.Writer(out.Writer()), Stderr: styles.Writer(opts.Stderr)}
		r.RunAllNonFatal(ctx, opts.Hooks, hooks.Context{
			Dir:      c.Dir,
			Version:  res.Version,
			Previous: res.PreviousVersion,
			Changed:  res.Changed,
			Trigger:  hooks.TriggerUpdate,
		})
	}
	return nil
}

func artifactRows(arts []artifact.Artifact) [][]string {
	rows := make([][]string, 0, len(arts))
	for _, a := range arts {
		var status string
		switch {
		case a.Skipped:
			status = styles.WarningStyle.Render("skipped (missing " + strings.Join(a.Missing, ", ") + ")")
		case a.Changed:
			status = styles.SuccessStyle.Render("updated")
		default:
			status = styles.MutedStyle.Render("unchanged")
		}
		rows = append(rows, []string{a.Name, status, strings.Join(a.Sources, ", ")})
	}
	return rows
}
