package cmd

import (
	"github.com/jeremyhahn/go-test-pki/pkg/cmd/ca"

	"github.com/spf13/cobra"
)

func init() {

	caCmd.PersistentFlags().StringVarP(&ca.Dir, "dir", "d", ".", "Directory the CA material is read from and written to")

	rootCmd.AddCommand(caCmd)

	caCmd.AddCommand(ca.InitCmd)
	caCmd.AddCommand(ca.IssueCmd)
}

var caCmd = &cobra.Command{
	Use:   "ca",
	Short: "Certificate Authority",
	Long: `Create a reusable certificate authority on disk and issue
certificates from it. The one-shot issue command fabricates a fresh CA
every run; these commands keep one around so multiple certificates can
share a trust root.`,
	Run: func(cmd *cobra.Command, args []string) {
	},
}
