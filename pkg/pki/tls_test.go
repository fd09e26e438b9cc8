package pki

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"testing"

	"github.com/jeremyhahn/go-test-pki/pkg/store/blob"
	"github.com/stretchr/testify/assert"
)

type fakeTrustInstaller struct {
	installed []blob.Blob
	err       error
}

func (f *fakeTrustInstaller) InstallTrust(certPEM blob.Blob) error {
	if f.err != nil {
		return f.err
	}
	f.installed = append(f.installed, certPEM)
	return nil
}

type fakeIdentityInstaller struct {
	installed []tls.Certificate
}

func (f *fakeIdentityInstaller) InstallIdentity(certificate tls.Certificate) error {
	f.installed = append(f.installed, certificate)
	return nil
}

func TestConfigureTrustTLSConfig(t *testing.T) {

	ca, err := New(nil)
	assert.Nil(t, err)

	config := &tls.Config{}
	assert.Nil(t, ca.ConfigureTrust(config))
	assert.NotNil(t, config.RootCAs)
	assert.NotNil(t, config.ClientCAs)

	leaf, err := ca.IssueCert(CertificateRequest{
		Identities: []string{"server.example.com"},
	})
	assert.Nil(t, err)
	_, err = leafCertificate(t, leaf).Verify(x509.VerifyOptions{
		DNSName: "server.example.com",
		Roots:   config.RootCAs,
	})
	assert.Nil(t, err)
}

func TestConfigureTrustCertPool(t *testing.T) {

	ca, err := New(nil)
	assert.Nil(t, err)

	pool := x509.NewCertPool()
	assert.Nil(t, ca.ConfigureTrust(pool))

	leaf, err := ca.IssueCert(CertificateRequest{
		Identities: []string{"server.example.com"},
	})
	assert.Nil(t, err)
	_, err = leafCertificate(t, leaf).Verify(x509.VerifyOptions{
		DNSName: "server.example.com",
		Roots:   pool,
	})
	assert.Nil(t, err)
}

func TestConfigureTrustInstaller(t *testing.T) {

	ca, err := New(nil)
	assert.Nil(t, err)

	installer := &fakeTrustInstaller{}
	assert.Nil(t, ca.ConfigureTrust(installer))
	assert.Equal(t, 1, len(installer.installed))
	assert.Equal(t, ca.CertPEM().Bytes(), installer.installed[0].Bytes())

	failed := &fakeTrustInstaller{err: assert.AnError}
	assert.ErrorIs(t, ca.ConfigureTrust(failed), assert.AnError)
}

func TestConfigureTrustUnknownContext(t *testing.T) {

	ca, err := New(nil)
	assert.Nil(t, err)

	err = ca.ConfigureTrust("/etc/ssl/certs")
	assert.ErrorIs(t, err, ErrTrustContext)
	assert.Contains(t, err.Error(), "string")
}

func TestConfigureCertTLSConfig(t *testing.T) {

	ca, err := New(nil)
	assert.Nil(t, err)
	leaf, err := ca.IssueCert(CertificateRequest{
		Identities: []string{"localhost"},
	})
	assert.Nil(t, err)

	config := &tls.Config{}
	assert.Nil(t, leaf.ConfigureCert(config))
	assert.Equal(t, 1, len(config.Certificates))
}

func TestConfigureCertInstaller(t *testing.T) {

	ca, err := New(nil)
	assert.Nil(t, err)
	leaf, err := ca.IssueCert(CertificateRequest{
		Identities: []string{"localhost"},
	})
	assert.Nil(t, err)

	installer := &fakeIdentityInstaller{}
	assert.Nil(t, leaf.ConfigureCert(installer))
	assert.Equal(t, 1, len(installer.installed))
	assert.Equal(t, leafDER(t, leaf), installer.installed[0].Certificate[0])
}

func TestConfigureCertRejectsCertPool(t *testing.T) {

	ca, err := New(nil)
	assert.Nil(t, err)
	leaf, err := ca.IssueCert(CertificateRequest{
		Identities: []string{"localhost"},
	})
	assert.Nil(t, err)

	err = leaf.ConfigureCert(x509.NewCertPool())
	assert.ErrorIs(t, err, ErrCertContext)

	err = leaf.ConfigureCert(42)
	assert.ErrorIs(t, err, ErrCertContext)
	assert.Contains(t, err.Error(), "int")
}

func TestTLSCertificateChain(t *testing.T) {

	root, err := New(nil)
	assert.Nil(t, err)
	intermediate, err := root.CreateChildCA(KeyTypeECDSA)
	assert.Nil(t, err)
	leaf, err := intermediate.IssueCert(CertificateRequest{
		Identities: []string{"localhost"},
	})
	assert.Nil(t, err)

	certificate, err := leaf.TLSCertificate()
	assert.Nil(t, err)
	assert.Equal(t, 2, len(certificate.Certificate))
	assert.Equal(t, intermediate.Certificate().Raw, certificate.Certificate[1])
	assert.NotNil(t, certificate.PrivateKey)
}

func TestTLSHandshake(t *testing.T) {

	ca, err := New(nil)
	assert.Nil(t, err)
	leaf, err := ca.IssueCert(CertificateRequest{
		Identities: []string{"localhost", "127.0.0.1", "::1"},
	})
	assert.Nil(t, err)

	serverConfig := &tls.Config{}
	assert.Nil(t, leaf.ConfigureCert(serverConfig))

	clientConfig := &tls.Config{ServerName: "localhost"}
	assert.Nil(t, ca.ConfigureTrust(clientConfig))

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

	peer := client.ConnectionState().PeerCertificates[0]
	assert.Equal(t, []string{"localhost"}, peer.DNSNames)
	assert.Equal(t, 2, len(peer.IPAddresses))
}

func TestMutualTLSHandshake(t *testing.T) {

	ca, err := New(nil)
	assert.Nil(t, err)

	serverLeaf, err := ca.IssueCert(CertificateRequest{
		Identities: []string{"localhost"},
	})
	assert.Nil(t, err)
	clientLeaf, err := ca.IssueCert(CertificateRequest{
		Identities: []string{"spam@example.org"},
	})
	assert.Nil(t, err)

	serverConfig := &tls.Config{ClientAuth: tls.RequireAndVerifyClientCert}
	assert.Nil(t, serverLeaf.ConfigureCert(serverConfig))
	assert.Nil(t, ca.ConfigureTrust(serverConfig))

	clientConfig := &tls.Config{ServerName: "localhost"}
	assert.Nil(t, clientLeaf.ConfigureCert(clientConfig))
	assert.Nil(t, ca.ConfigureTrust(clientConfig))

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
