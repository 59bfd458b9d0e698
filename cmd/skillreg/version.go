package main

import (
	"fmt"

	"github.com/jingkaihe/skillreg/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version information of skillreg in JSON format.`,
	Run: func(cmd *cobra.Command, _ []string) {
		info := version.Get()
		json, err := info.JSON()
		if err != nil {
			exitOnError(err, "Error formatting version info")
		}
		fmt.Fprintln(cmd.OutOrStdout(), json)
	},
}
