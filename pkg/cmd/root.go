package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/jeremyhahn/go-test-pki/pkg/app"
	"github.com/jeremyhahn/go-test-pki/pkg/cmd/ca"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	App        *app.App
	InitParams *app.AppInitParams
)

var rootCmd = &cobra.Command{
	Use:   app.Name,
	Short: "Throwaway PKI for tests",
	Long: `test-pki fabricates a certificate authority and issues TLS
certificates from it, so test suites can exercise real certificate
verification without touching production trust stores or waiting on
a public CA. Everything it creates is fake: valid in shape, worthless
as an identity.`,
	Run: func(cmd *cobra.Command, args []string) {
	},
	TraverseChildren: true,
}

func init() {

	cobra.OnInitialize(func() {
		var err error
		App, err = app.NewApp().Init(InitParams)
		if err != nil {
			log.Fatal(err)
		}
		ca.App = App
	})

	InitParams = &app.AppInitParams{}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	dataDir := fmt.Sprintf("%s/%s", wd, "pki-data")

	rootCmd.PersistentFlags().BoolVarP(&InitParams.Debug, "debug", "", false, "Enable debug mode")
	rootCmd.PersistentFlags().BoolVarP(&InitParams.Quiet, "quiet", "q", false, "Suppress banner and file listings")
	rootCmd.PersistentFlags().StringVarP(&InitParams.ConfigDir, "config-dir", "", "", "Configuration file directory")
	rootCmd.PersistentFlags().StringVarP(&InitParams.DataDir, "data-dir", "", dataDir, "Directory where issuance records are stored")
	rootCmd.PersistentFlags().StringVarP(&InitParams.LogDir, "log-dir", "", "", "Log file directory")
	rootCmd.PersistentFlags().StringVarP(&InitParams.KeyType, "key-type", "", "ecdsa", "Private key type [ ecdsa | rsa ]")

	viper.BindPFlags(rootCmd.PersistentFlags())
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
	return nil
}
