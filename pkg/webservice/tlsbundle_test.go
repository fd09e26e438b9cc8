package webservice

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"testing"

	"github.com/jeremyhahn/go-test-pki/pkg/logging"
	"github.com/jeremyhahn/go-test-pki/pkg/pki"
	"github.com/jeremyhahn/go-test-pki/pkg/store/blob"
	"github.com/jeremyhahn/go-test-pki/pkg/util"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func defaultBundle(t *testing.T, fs afero.Fs, bundleDir string) *TLSBundle {
	bundle, err := NewTLSBundle(logging.DefaultLogger(), fs, bundleDir)
	assert.Nil(t, err)
	return bundle
}

func TestInstallTrustPersists(t *testing.T) {

	fs := afero.NewMemMapFs()
	bundleDir := "/etc/pki/bundle"
	bundle := defaultBundle(t, fs, bundleDir)

	ca, err := pki.New(nil)
	assert.Nil(t, err)
	assert.Nil(t, ca.ConfigureTrust(bundle))

	id := util.NewID(ca.CertPEM().Bytes())
	path := fmt.Sprintf("%s/%s%d.pem", bundleDir, trustFilePrefix, id)
	assert.True(t, util.FileExists(fs, path))

	// A new bundle opened on the same directory picks the root back up
	reopened := defaultBundle(t, fs, bundleDir)
	config, err := reopened.ClientConfig("server.example.com")
	assert.Nil(t, err)
	assert.NotNil(t, config.RootCAs)

	leaf, err := ca.IssueCert(pki.CertificateRequest{
		Identities: []string{"server.example.com"},
	})
	assert.Nil(t, err)
	certificate, err := leaf.TLSCertificate()
	assert.Nil(t, err)
	parsed, err := x509.ParseCertificate(certificate.Certificate[0])
	assert.Nil(t, err)
	_, err = parsed.Verify(x509.VerifyOptions{
		DNSName: "server.example.com",
		Roots:   reopened.TrustedRootCertPool(),
	})
	assert.Nil(t, err)
}

func TestInstallTrustRejectsGarbage(t *testing.T) {

	bundle := defaultBundle(t, afero.NewMemMapFs(), "/etc/pki/bundle")
	err := bundle.InstallTrust(blob.New([]byte("not a certificate")))
	assert.ErrorIs(t, err, ErrInvalidTrust)
}

func TestInstallIdentity(t *testing.T) {

	fs := afero.NewMemMapFs()
	bundleDir := "/etc/pki/bundle"
	bundle := defaultBundle(t, fs, bundleDir)

	ca, err := pki.New(nil)
	assert.Nil(t, err)
	leaf, err := ca.IssueCert(pki.CertificateRequest{
		Identities: []string{"localhost"},
	})
	assert.Nil(t, err)
	assert.Nil(t, leaf.ConfigureCert(bundle))

	assert.True(t, util.FileExists(
		fs, fmt.Sprintf("%s/%s", bundleDir, identityFileName)))

	config, err := bundle.ServerConfig()
	assert.Nil(t, err)
	assert.Equal(t, 1, len(config.Certificates))
}

func TestEmptyBundleConfigs(t *testing.T) {

	bundle := defaultBundle(t, afero.NewMemMapFs(), "/etc/pki/bundle")

	_, err := bundle.ServerConfig()
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, err = bundle.ClientConfig("localhost")
	assert.ErrorIs(t, err, ErrNoTrustedRoots)

	ca, err := pki.New(nil)
	assert.Nil(t, err)
	leaf, err := ca.IssueCert(pki.CertificateRequest{
		Identities: []string{"localhost"},
	})
	assert.Nil(t, err)
	assert.Nil(t, leaf.ConfigureCert(bundle))

	// Identity alone is not enough to verify client certificates
	_, err = bundle.MutualTLSServerConfig()
	assert.ErrorIs(t, err, ErrNoTrustedRoots)
}

func TestBundleHandshake(t *testing.T) {

	fs := afero.NewMemMapFs()
	ca, err := pki.New(nil)
	assert.Nil(t, err)
	leaf, err := ca.IssueCert(pki.CertificateRequest{
		Identities: []string{"localhost", "127.0.0.1", "::1"},
	})
	assert.Nil(t, err)

	serverBundle := defaultBundle(t, fs, "/etc/pki/server")
	assert.Nil(t, leaf.ConfigureCert(serverBundle))
	serverConfig, err := serverBundle.ServerConfig()
	assert.Nil(t, err)

	clientBundle := defaultBundle(t, fs, "/etc/pki/client")
	assert.Nil(t, ca.ConfigureTrust(clientBundle))
	clientConfig, err := clientBundle.ClientConfig("localhost")
	assert.Nil(t, err)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- tls.Server(serverConn, serverConfig).Handshake()
	}()

	client := tls.Client(clientConn, clientConfig)
	assert.Nil(t, client.Handshake())
	assert.Nil(t, <-serverErr)
}

func TestBundleMutualTLSHandshake(t *testing.T) {

	fs := afero.NewMemMapFs()
	ca, err := pki.New(nil)
	assert.Nil(t, err)
	serverLeaf, err := ca.IssueCert(pki.CertificateRequest{
		Identities: []string{"localhost"},
	})
	assert.Nil(t, err)
	clientLeaf, err := ca.IssueCert(pki.CertificateRequest{
		Identities: []string{"spam@example.org"},
	})
	assert.Nil(t, err)

	serverBundle := defaultBundle(t, fs, "/etc/pki/server")
	assert.Nil(t, serverLeaf.ConfigureCert(serverBundle))
	assert.Nil(t, ca.ConfigureTrust(serverBundle))
	serverConfig, err := serverBundle.MutualTLSServerConfig()
	assert.Nil(t, err)
	assert.Equal(t, tls.RequireAndVerifyClientCert, serverConfig.ClientAuth)

	clientBundle := defaultBundle(t, fs, "/etc/pki/client")
	assert.Nil(t, clientLeaf.ConfigureCert(clientBundle))
	assert.Nil(t, ca.ConfigureTrust(clientBundle))
	clientConfig, err := clientBundle.ClientConfig("localhost")
	assert.Nil(t, err)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	server := tls.Server(serverConn, serverConfig)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Handshake()
	}()

	client := tls.Client(clientConn, clientConfig)
	assert.Nil(t, client.Handshake())
	assert.Nil(t, <-serverErr)

	peers := server.ConnectionState().PeerCertificates
	assert.Equal(t, 1, len(peers))
	assert.Equal(t, []string{"spam@example.org"}, peers[0].EmailAddresses)
}
