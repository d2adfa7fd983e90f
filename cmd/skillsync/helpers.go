package main

import (
	"github.com/raphi011/skillsync/internal/artifact"
	"github.com/raphi011/skillsync/internal/cache"
	"github.com/raphi011/skillsync/internal/config"
	"github.com/raphi011/skillsync/internal/detect"
	"github.com/raphi011/skillsync/internal/fetch"
	"github.com/raphi011/skillsync/internal/spawn"
	"github.com/raphi011/skillsync/internal/updater"
)

// openStore opens the cache record with the configured timing.
func openStore(c *config.Config) *cache.Store {
	return cache.Open(c.CachePath(),
		cache.WithTTLs(c.Timing.FreshTTL.Duration, c.Timing.StaleTTL.Duration),
		cache.WithLockTimeout(c.Timing.LockTimeout.Duration),
	)
}

// newOrchestrator wires the production components for c. The spawned
// refresh gets the same install dir so it reads the same config.
func newOrchestrator(c *config.Config, detectOpts ...detect.Option) *updater.Orchestrator {
	f := fetch.NewFromConfig(c.HTTP)
	d := detect.NewFromConfig(c, f, detectOpts...)
	return updater.New(
		openStore(c),
		d,
		artifact.NewFromConfig(c),
		spawn.Self(),
		c.VersionPath(),
		updater.WithRefreshArgs(updater.RefreshCommand, "--dir", c.Dir),
	)
}
