package main

import (
	"os"

	"github.com/go-go-golems/bootgate/cmd/bootgate/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "bootgate",
	Short:   "bootgate starts a primary service and gates a dependent on its readiness",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitLoggerFromCobra(cmd)
	},
}

func main() {
	cobra.CheckErr(logging.AddLoggingLayerToRootCommand(rootCmd, "bootgate"))
	cmds.AddRootFlags(rootCmd)
	cobra.CheckErr(cmds.AddCommands(rootCmd))

	err := rootCmd.Execute()
	os.Exit(cmds.ResolveExitCode(err))
}
