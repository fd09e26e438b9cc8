package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeremyhahn/go-test-pki/pkg/pki"
	"github.com/jeremyhahn/go-test-pki/pkg/store/blob"
	"github.com/jeremyhahn/go-test-pki/pkg/util"

	"github.com/spf13/cobra"
)

var (
	IssueDir        string
	IssueIdentities []string
	IssueCommonName string
)

func init() {

	issueCmd.PersistentFlags().StringVarP(&IssueDir, "dir", "d", ".", "Directory to write the PEM files to")
	issueCmd.PersistentFlags().StringSliceVarP(&IssueIdentities, "identity", "i", []string{"localhost", "127.0.0.1", "::1"}, "Identity to place in the certificate. May be repeated")
	issueCmd.PersistentFlags().StringVar(&IssueCommonName, "common-name", "", "Common name for the certificate subject")

	rootCmd.AddCommand(issueCmd)
}

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issues a server certificate from a throwaway CA",
	Long: `Creates a single-use certificate authority, issues a server
certificate for the requested identities, and writes server.key,
server.pem and client.pem into the target directory. Point the server
under test at server.key/server.pem and the client at client.pem.`,
	Run: func(cmd *cobra.Command, args []string) {

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

		leaf, err := ca.IssueCert(pki.CertificateRequest{
			Identities: IssueIdentities,
			CommonName: IssueCommonName,
			KeyType:    keyType,
		})
		if err != nil {
			cmd.PrintErrln(err)
			return
		}

		if err := App.FS.MkdirAll(IssueDir, os.ModePerm); err != nil {
			cmd.PrintErrln(err)
			return
		}

		serverKey := fmt.Sprintf("%s/server.key", IssueDir)
		serverPEM := fmt.Sprintf("%s/server.pem", IssueDir)
		clientPEM := fmt.Sprintf("%s/client.pem", IssueDir)

		if err := leaf.PrivateKeyPEM.WriteToPath(App.FS, serverKey, false); err != nil {
			cmd.PrintErrln(err)
			return
		}
		var chain []byte
		for i, certPEM := range leaf.CertChainPEMs {
			if err := certPEM.WriteToPath(App.FS, serverPEM, i > 0); err != nil {
				cmd.PrintErrln(err)
				return
			}
			chain = append(chain, certPEM.Bytes()...)
		}
		if err := ca.CertPEM().WriteToPath(App.FS, clientPEM, false); err != nil {
			cmd.PrintErrln(err)
			return
		}

		subject := IssueCommonName
		if len(IssueIdentities) > 0 {
			subject = IssueIdentities[0]
		}
		if err := App.BlobStore.Save(
			blob.NewKey(subject, "server.pem"), chain); err != nil {
			cmd.PrintErrln(err)
			return
		}
		App.Logger.Infof("issued certificate %d for %s",
			util.NewID(chain), subject)

		if App.QuietFlag {
			return
		}
		cmd.Println(fmt.Sprintf(
			"Generated a certificate for %s", quoteIdentities()))
		cmd.Println("Configure your server to use the following files:")
		cmd.Println(fmt.Sprintf("  cert=%s", serverPEM))
		cmd.Println(fmt.Sprintf("  key=%s", serverKey))
		cmd.Println("Configure your client to use the following files:")
		cmd.Println(fmt.Sprintf("  cert=%s", clientPEM))
	},
}

func quoteIdentities() string {
	if len(IssueIdentities) == 0 {
		return fmt.Sprintf("'%s'", IssueCommonName)
	}
	quoted := make([]string, len(IssueIdentities))
	for i, identity := range IssueIdentities {
		quoted[i] = fmt.Sprintf("'%s'", identity)
	}
	return strings.Join(quoted, ", ")
}
