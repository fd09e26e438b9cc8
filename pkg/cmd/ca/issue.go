package ca

import (
	"bytes"
	"fmt"

	"github.com/jeremyhahn/go-test-pki/pkg/pki"
	"github.com/jeremyhahn/go-test-pki/pkg/platform/prompt"
	"github.com/jeremyhahn/go-test-pki/pkg/store/blob"
	"github.com/jeremyhahn/go-test-pki/pkg/util"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func init() {
	IssueCmd.PersistentFlags().StringSliceVarP(&Identities, "identity", "i", []string{"localhost", "127.0.0.1", "::1"}, "Identity to place in the certificate. May be repeated")
	IssueCmd.PersistentFlags().StringVar(&CommonName, "common-name", "", "Common name for the certificate subject")
}

var IssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issues a new x509 certificate",
	Long: `Reloads the certificate authority from ca.pem and ca.key in the
target directory and issues a server certificate for the requested
identities, writing server.key and server.pem alongside it.`,
	Run: func(cmd *cobra.Command, args []string) {

		certPEM, err := afero.ReadFile(
			App.FS, fmt.Sprintf("%s/%s", Dir, caCertFile))
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		keyPEM, err := afero.ReadFile(
			App.FS, fmt.Sprintf("%s/%s", Dir, caKeyFile))
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		var ca *pki.CA
		if bytes.Contains(keyPEM, []byte("ENCRYPTED PRIVATE KEY")) {
			password := prompt.KeyPassword()
			ca, err = pki.FromEncryptedPEM(certPEM, keyPEM, password)
		} else {
			ca, err = pki.FromPEM(certPEM, keyPEM)
		}
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		keyType, err := pki.ParseKeyType(App.KeyType)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		leaf, err := ca.IssueCert(pki.CertificateRequest{
			Identities: Identities,
			CommonName: CommonName,
			KeyType:    keyType,
		})
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		serverKey := fmt.Sprintf("%s/server.key", Dir)
		serverPEM := fmt.Sprintf("%s/server.pem", Dir)
		if err := leaf.PrivateKeyPEM.WriteToPath(App.FS, serverKey, false); err != nil {
			cmd.PrintErrln(err)
			return
		}
		var chain []byte
		for i, chainPEM := range leaf.CertChainPEMs {
			if err := chainPEM.WriteToPath(App.FS, serverPEM, i > 0); err != nil {
				cmd.PrintErrln(err)
				return
			}
			chain = append(chain, chainPEM.Bytes()...)
		}

		subject := CommonName
		if len(Identities) > 0 {
			subject = Identities[0]
		}
		if err := App.BlobStore.Save(
			blob.NewKey(subject, "server.pem"), chain); err != nil {
			cmd.PrintErrln(err)
			return
		}
		App.Logger.Infof("issued certificate %d for %s",
			util.NewID(chain), subject)

		cmd.Println("Certificate issued")
		if !App.QuietFlag {
			cmd.Println("Configure your server to use the following files:")
			cmd.Println(fmt.Sprintf("  cert=%s", serverPEM))
			cmd.Println(fmt.Sprintf("  key=%s", serverKey))
			cmd.Println("Configure your client to use the following files:")
			cmd.Println(fmt.Sprintf("  cert=%s/%s", Dir, caCertFile))
		}
	},
}
