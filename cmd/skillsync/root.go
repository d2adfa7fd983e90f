package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphi011/skillsync/internal/config"
	"github.com/raphi011/skillsync/internal/log"
	"github.com/raphi011/skillsync/internal/output"
	"github.com/raphi011/skillsync/internal/ui/styles"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	noColor bool
	dirFlag string

	// Shared state injected into commands. cfgErr is kept instead of
	// failing early so check and background-refresh can stay silent.
	cfg    *config.Config
	cfgErr error
)

// Command group IDs for organizing help output
const (
	GroupCore   = "core"
	GroupConfig = "config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skillsync",
	Short: "Keep a documentation skill in sync with its upstream sources",
	Long: `skillsync keeps the reference documents of a locally installed skill
in sync with the remote documentation they are generated from.

Run 'skillsync check' on activation: it never blocks and never touches the
network, but starts a background refresh when the cache is stale and prints
a one-line notice when an update is available. 'skillsync update' applies
the update.`,
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 2, // Enable typo suggestions
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "help" {
			return nil
		}

		styles.Init(noColor)

		ctx := cmd.Context()
		ctx = log.WithLogger(ctx, log.New(os.Stderr, verbose, quiet))
		ctx = output.WithPrinter(ctx, cmd.OutOrStdout())
		cmd.SetContext(ctx)

		loadConfig()
		return nil
	},
	// Run is not set - shows help when no subcommand provided
}

// loadConfig resolves the install dir and reads its config into cfg.
// On failure cfg holds the defaults and cfgErr the reason.
func loadConfig() {
	dir, err := config.ResolveDir(dirFlag)
	if err != nil {
		c := config.Default("")
		cfg, cfgErr = &c, err
		return
	}
	c, err := config.Load(dir)
	cfg, cfgErr = &c, err
}

// requireConfig returns the loaded config or the load error.
func requireConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	return cfg, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Create context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.Fail(err.Error()))
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "C", "", "Install directory of the skill (default $SKILLSYNC_DIR or the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	_ = rootCmd.MarkPersistentFlagDirname("dir")

	// Version flag
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Add command groups for organized help output
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupCore, Title: "Core Commands:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration Commands:"},
	)

	// Core commands
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newRefreshCmd())

	// Config commands
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newCompletionCmd())
}
