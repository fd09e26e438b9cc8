package webservice

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-test-pki/pkg/logging"
	"github.com/jeremyhahn/go-test-pki/pkg/store/blob"
	"github.com/jeremyhahn/go-test-pki/pkg/util"
	"github.com/spf13/afero"
)

const (
	identityFileName = "identity.pem"
	trustFilePrefix  = "trust-"
)

var (
	ErrNoIdentity     = errors.New("webservice: bundle has no identity certificate")
	ErrNoTrustedRoots = errors.New("webservice: bundle has no trusted roots")
	ErrInvalidTrust   = errors.New("webservice: invalid trusted root PEM")
)

// TLSBundle collects the TLS material a test server or client needs.
// Trusted root certificates are persisted to the bundle directory and
// reloaded the next time a bundle is opened there. Identity chains are
// written out for inspection but the private key is held in memory only.
type TLSBundle struct {
	logger    *logging.Logger
	fs        afero.Fs
	bundleDir string
	identity  *tls.Certificate
	roots     *x509.CertPool
	trusted   int
}

func NewTLSBundle(
	logger *logging.Logger,
	fs afero.Fs,
	bundleDir string) (*TLSBundle, error) {

	if err := fs.MkdirAll(bundleDir, 0755); err != nil {
		return nil, err
	}
	bundle := &TLSBundle{
		logger:    logger,
		fs:        fs,
		bundleDir: bundleDir,
		roots:     x509.NewCertPool(),
	}
	if err := bundle.loadTrust(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// InstallTrust adds a CA certificate to the bundle's verification roots
// and persists it under the bundle directory.
func (bundle *TLSBundle) InstallTrust(certPEM blob.Blob) error {

	certificate, err := parseTrustPEM(certPEM.Bytes())
	if err != nil {
		return err
	}

	id := util.NewID(certPEM.Bytes())
	path := fmt.Sprintf("%s/%s%d.pem", bundle.bundleDir, trustFilePrefix, id)
	if err := certPEM.WriteToPath(bundle.fs, path, false); err != nil {
		return err
	}

	bundle.roots.AddCert(certificate)
	bundle.trusted++

	bundle.logger.Infof("webservice: installed trusted root %s (%d)",
		certificate.Subject.String(), id)
	return nil
}

// InstallIdentity sets the certificate chain and private key this bundle
// presents, writing the chain to the bundle directory.
func (bundle *TLSBundle) InstallIdentity(certificate tls.Certificate) error {

	var chainPEM []byte
	for _, der := range certificate.Certificate {
		chainPEM = append(chainPEM, pem.EncodeToMemory(
			&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}

	path := fmt.Sprintf("%s/%s", bundle.bundleDir, identityFileName)
	if err := blob.New(chainPEM).WriteToPath(bundle.fs, path, false); err != nil {
		return err
	}

	bundle.identity = &certificate

	bundle.logger.Infof("webservice: installed identity certificate (%d)",
		util.NewID(chainPEM))
	return nil
}

// ServerConfig returns a tls.Config that presents the bundle's identity.
func (bundle *TLSBundle) ServerConfig() (*tls.Config, error) {
	if bundle.identity == nil {
		return nil, ErrNoIdentity
	}
	return &tls.Config{
		Certificates: []tls.Certificate{*bundle.identity},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// MutualTLSServerConfig returns a ServerConfig that also requires and
// verifies client certificates against the bundle's trusted roots.
func (bundle *TLSBundle) MutualTLSServerConfig() (*tls.Config, error) {
	config, err := bundle.ServerConfig()
	if err != nil {
		return nil, err
	}
	if bundle.trusted == 0 {
		return nil, ErrNoTrustedRoots
	}
	config.ClientCAs = bundle.roots
	config.ClientAuth = tls.RequireAndVerifyClientCert
	return config, nil
}

// ClientConfig returns a tls.Config that verifies servers against the
// bundle's trusted roots. If the bundle holds an identity it is included
// for servers that request client certificates.
func (bundle *TLSBundle) ClientConfig(serverName string) (*tls.Config, error) {
	if bundle.trusted == 0 {
		return nil, ErrNoTrustedRoots
	}
	config := &tls.Config{
		RootCAs:    bundle.roots,
		ServerName: serverName,
		MinVersion: tls.VersionTLS13,
	}
	if bundle.identity != nil {
		config.Certificates = []tls.Certificate{*bundle.identity}
	}
	return config, nil
}

// TrustedRootCertPool returns the pool of installed verification roots.
func (bundle *TLSBundle) TrustedRootCertPool() *x509.CertPool {
	return bundle.roots
}

func (bundle *TLSBundle) loadTrust() error {

	entries, err := afero.ReadDir(bundle.fs, bundle.bundleDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), trustFilePrefix) {
			continue
		}
		path := fmt.Sprintf("%s/%s", bundle.bundleDir, entry.Name())
		certPEM, err := afero.ReadFile(bundle.fs, path)
		if err != nil {
			return err
		}
		certificate, err := parseTrustPEM(certPEM)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidTrust, path)
		}
		bundle.roots.AddCert(certificate)
		bundle.trusted++
	}

	if bundle.trusted > 0 {
		bundle.logger.Debugf("webservice: loaded %d trusted roots from %s",
			bundle.trusted, bundle.bundleDir)
	}
	return nil
}

func parseTrustPEM(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, ErrInvalidTrust
	}
	return x509.ParseCertificate(block.Bytes)
}
