package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/skillsync/internal/doctor"
)

func newDoctorCmd() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:     "doctor",
		Short:   "Diagnose and repair issues",
		GroupID: GroupConfig,
		Args:    cobra.NoArgs,
		Long: `Diagnose and repair the cache record.

Checks:
- Cache file is valid JSON
- Refresh lock flag and timestamp agree, and the lock is not abandoned
- Pending version and update_available agree
- Notified version is not ahead of the pending version
- Last check is not in the future
- No temp files left over from interrupted writes
- Skill version file is readable

Examples:
  skillsync doctor          # Check for issues
  skillsync doctor --fix    # Repair what can be repaired`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireConfig()
			if err != nil {
				return err
			}

			report, err := doctor.Run(cmd.Context(), c, fix, time.Now)
			if err != nil {
				return err
			}
			if n := report.Unfixed(); n > 0 {
				return fmt.Errorf("%d issues remain", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Auto-fix recoverable issues")

	return cmd
}
