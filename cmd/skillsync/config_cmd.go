package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/raphi011/skillsync/internal/config"
	"github.com/raphi011/skillsync/internal/output"
	"github.com/raphi011/skillsync/internal/ui/styles"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage configuration",
		Aliases: []string{"cfg"},
		GroupID: GroupConfig,
		Args:    cobra.NoArgs,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default config file",
		Long:  `Write a commented skillsync.toml with the built-in defaults to the install directory.`,
		Args:  cobra.NoArgs,
		Example: `  skillsync config init
  skillsync config init --force   # overwrite an existing file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ResolveDir(dirFlag)
			if err != nil {
				return err
			}
			path, err := config.Init(dir, force)
			if err != nil {
				return err
			}
			output.FromContext(cmd.Context()).Println(styles.OK("Created " + path))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config file")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after defaults and skillsync.toml are merged, as TOML.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			out := output.FromContext(cmd.Context())
			out.Printf("# %s\n", config.Path(c.Dir))
			if err := toml.NewEncoder(out.Writer()).Encode(c); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return nil
		},
	}
}
