package cmd

import (
	"fmt"

	"github.com/jeremyhahn/go-test-pki/pkg/app"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Displays the program version",
	Run: func(cmd *cobra.Command, args []string) {
		version := app.GetVersion()
		cmd.Println(fmt.Sprintf("%s %s", version.Name, version.Version))
		if version.GitHash != "" {
			cmd.Println(fmt.Sprintf("git hash: %s", version.GitHash))
		}
		if version.BuildDate != "" {
			cmd.Println(fmt.Sprintf("build date: %s", version.BuildDate))
		}
	},
}
