package cli

import (
	"github.com/spf13/cobra"

	"github.com/topdraw/topdraw/pkg/export"
	"github.com/topdraw/topdraw/pkg/pipeline"
)

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List the scripts in a directory",
		Long:  `List the .tds scripts in dir, or in the script storage directory when dir is omitted.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				var err error
				if dir, err = export.ScriptStorageDir(); err != nil {
					return err
				}
			}
			scripts, err := pipeline.ScriptsInDirectory(dir)
			if err != nil {
				return err
			}
			if len(scripts) == 0 {
				printInfo("No scripts in %s", dir)
				return nil
			}
			for _, s := range scripts {
				printKeyValue(s.Name, s.Path)
			}
			return nil
		},
	}
}
