package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ax5-sect",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ax5-sect version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
