package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/topdraw/topdraw/pkg/buildinfo"
	"github.com/topdraw/topdraw/pkg/compositor"
)

// configCommand prints the effective configuration as TOML.
func (c *CLI) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Path != "" {
				fmt.Fprintln(stdout, "# "+cfg.Path)
			} else {
				fmt.Fprintln(stdout, "# defaults (no config file found)")
			}
			return cfg.Write(stdout)
		},
	}
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, buildinfo.String(compositor.SupportedVersion))
		},
	}
}
