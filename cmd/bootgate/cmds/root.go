package cmds

import (
	"github.com/go-go-golems/bootgate/cmd/bootgate/cmds/dev"
	"github.com/spf13/cobra"
)

func AddCommands(root *cobra.Command) error {
	root.AddCommand(dev.NewCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newWaitCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newLogsCmd())
	root.AddCommand(newStopCmd())
	root.AddCommand(newTuiCmd())
	return nil
}
