package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/raphi011/skillsync/internal/log"
	"github.com/raphi011/skillsync/internal/output"
	"github.com/raphi011/skillsync/internal/ui/styles"
	"github.com/raphi011/skillsync/internal/updater"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "check",
		Short:   "Activation check (non-blocking)",
		GroupID: GroupCore,
		Args:    cobra.NoArgs,
		Long: `Run on every skill activation.

Reads only the local cache record. When an update is pending and the user
has not been told yet, prints a one-line notice. When the cache is stale,
starts a detached background refresh and returns immediately.

Never touches the network and never prints errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := requireConfig()
			if err != nil {
				log.FromContext(ctx).Debug().Err(err).Msg("load config")
				return nil
			}
			runCheck(ctx, newOrchestrator(c))
			return nil
		},
	}
}

func runCheck(ctx context.Context, o *updater.Orchestrator) updater.CheckResult {
	res := o.Check(ctx)
	if res.NotifyVersion != "" {
		output.FromContext(ctx).Println(styles.Notice(res.NotifyVersion, res.Changelog))
	}
	log.FromContext(ctx).Debug().
		Bool("fresh", res.Fresh).
		Bool("spawned", res.Spawned).
		Bool("refresh_active", res.RefreshActive).
		Msg("check")
	return res
}
