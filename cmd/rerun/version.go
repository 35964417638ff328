package main

import (
	"fmt"

	"github.com/aretw0/rerun"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of rerun",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rerun version %s\n", rerun.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
