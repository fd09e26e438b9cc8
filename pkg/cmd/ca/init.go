package ca

import (
	"fmt"
	"os"

	"github.com/jeremyhahn/go-test-pki/pkg/app"
	"github.com/jeremyhahn/go-test-pki/pkg/pki"
	"github.com/jeremyhahn/go-test-pki/pkg/platform/prompt"
	"github.com/jeremyhahn/go-test-pki/pkg/store/blob"
	"github.com/spf13/cobra"
)

func init() {
	InitCmd.PersistentFlags().BoolVar(&Encrypt, "encrypt", false, "Encrypt the CA private key with a passphrase")
}

var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a Certificate Authority",
	Long: `Creates a certificate authority and writes its certificate and
private key into the target directory as ca.pem and ca.key. The key is
written in the clear unless --encrypt prompts for a passphrase and
writes password protected PKCS#8 instead.`,
	Run: func(cmd *cobra.Command, args []string) {

		if !App.QuietFlag {
			prompt.PrintBanner(app.Version)
		}

		keyType, err := pki.ParseKeyType(App.KeyType)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		ca, err := pki.New(&pki.Options{
			KeyType: keyType,
			Rand:    App.Random,
		})
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		keyPEM := ca.PrivateKeyPEM()
		if Encrypt {
			password := prompt.KeyPassword()
			keyPEM, err = ca.EncryptedPrivateKeyPEM(password)
			if err != nil {
				cmd.PrintErrln(err)
				return
			}
		}

		if err := App.FS.MkdirAll(Dir, os.ModePerm); err != nil {
			cmd.PrintErrln(err)
			return
		}
		certPath := fmt.Sprintf("%s/%s", Dir, caCertFile)
		keyPath := fmt.Sprintf("%s/%s", Dir, caKeyFile)
		if err := ca.CertPEM().WriteToPath(App.FS, certPath, false); err != nil {
			cmd.PrintErrln(err)
			return
		}
		if err := keyPEM.WriteToPath(App.FS, keyPath, false); err != nil {
			cmd.PrintErrln(err)
			return
		}

		if err := App.BlobStore.Save(
			blob.NewKey("ca", caCertFile), ca.CertPEM().Bytes()); err != nil {
			cmd.PrintErrln(err)
			return
		}

		cmd.Println("Certificate Authority successfully initialized")
		if !App.QuietFlag {
			cmd.Println(fmt.Sprintf("  cert=%s", certPath))
			cmd.Println(fmt.Sprintf("  key=%s", keyPath))
		}
	},
}
