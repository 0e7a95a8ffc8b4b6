package main

import (
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/gotune-core/internal/app"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "Print only the version")
}

// versionCmd prints version and build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := app.GetVersionInfo()

		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(info.Version)
			return
		}

		cmd.Println(info.FullString())
	},
}
