package cmd

import (
	"github.com/spf13/cobra"
)

// defaultCmd represents the command that runs when no subcommand is specified
var defaultCmd = &cobra.Command{
	Use:    "default",
	Short:  "Default command when no subcommand is provided",
	Long:   `Lists the modpacks.`,
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		listCmd.Run(cmd, []string{})
	},
}

func init() {
	rootCmd.AddCommand(defaultCmd)
	// Run defaultCmd when no subcommand is provided
	rootCmd.Run = defaultCmd.Run
}
