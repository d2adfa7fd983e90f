package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/raphi011/skillsync/internal/detect"
	"github.com/raphi011/skillsync/internal/log"
	"github.com/raphi011/skillsync/internal/updater"
)

func newRefreshCmd() *cobra.Command {
	var probeVersion bool

	cmd := &cobra.Command{
		Use:    updater.RefreshCommand,
		Short:  "Detect changes in the background (spawned by check)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, closeLog := withRefreshLogger(cmd.Context())
			defer closeLog()

			c, err := requireConfig()
			if err != nil {
				log.FromContext(ctx).Error().Err(err).Msg("load config")
				return nil
			}

			var opts []detect.Option
			if probeVersion {
				opts = append(opts, detect.WithVersionProbe())
			}
			runRefresh(ctx, newOrchestrator(c, opts...))
			return nil
		},
	}

	cmd.Flags().BoolVar(&probeVersion, "probe-version", false, "Read the latest version from the authoritative source when it changed")

	return cmd
}

// withRefreshLogger swaps the console logger for the JSON log file. The
// refresh has no terminal; when the file cannot be opened nothing is logged.
func withRefreshLogger(ctx context.Context) (context.Context, func()) {
	l, closeFn := log.Discard(), func() {}
	if path, err := log.FilePath(); err == nil {
		if fl, f, err := log.OpenFile(path); err == nil {
			l, closeFn = fl, func() { _ = f.Close() }
		}
	}
	return log.WithLogger(ctx, l.WithField("run_id", uuid.NewString())), closeFn
}

// runRefresh runs one background refresh. Failures are already recorded in
// the cache record; here they only reach the log.
func runRefresh(ctx context.Context, o *updater.Orchestrator) {
	l := log.FromContext(ctx)
	l.Info().Msg("background refresh started")

	res, err := o.BackgroundRefresh(ctx)
	switch {
	case errors.Is(err, updater.ErrRefreshInProgress):
		l.Info().Msg("another refresh holds the lock")
	case err != nil:
		l.Error().Err(err).Strs("unreachable", res.Unreachable).Msg("background refresh failed")
	default:
		l.Info().
			Strs("changed", res.Changed).
			Strs("unreachable", res.Unreachable).
			Str("pending_version", res.PendingVersion).
			Msg("background refresh finished")
	}
}
