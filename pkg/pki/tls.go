package pki

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/jeremyhahn/go-test-pki/pkg/store/blob"
)

// TrustInstaller is implemented by TLS context types that can install a
// CA certificate as a verification anchor.
type TrustInstaller interface {
	InstallTrust(certPEM blob.Blob) error
}

// IdentityInstaller is implemented by TLS context types that can present
// a certificate chain and private key as their own identity.
type IdentityInstaller interface {
	InstallIdentity(certificate tls.Certificate) error
}

// ConfigureTrust installs this CA as a trust anchor in the provided TLS
// context. Supported contexts are *tls.Config (the CA is added to both
// the RootCAs and ClientCAs pools, creating them as needed),
// *x509.CertPool, and any TrustInstaller. Anything else is rejected with
// an error naming the offending type.
func (ca *CA) ConfigureTrust(ctx any) error {
	switch ctx := ctx.(type) {
	case *tls.Config:
		if ctx.RootCAs == nil {
			ctx.RootCAs = x509.NewCertPool()
		}
		if ctx.ClientCAs == nil {
			ctx.ClientCAs = x509.NewCertPool()
		}
		ctx.RootCAs.AddCert(ca.certificate)
		ctx.ClientCAs.AddCert(ca.certificate)
	case *x509.CertPool:
		ctx.AddCert(ca.certificate)
	case TrustInstaller:
		return ctx.InstallTrust(ca.certPEM)
	default:
		return fmt.Errorf("%w: %T", ErrTrustContext, ctx)
	}
	return nil
}

// TLSCertificate assembles the certificate chain and private key into a
// tls.Certificate.
func (leaf *LeafCert) TLSCertificate() (tls.Certificate, error) {
	var chain bytes.Buffer
	for _, certPEM := range leaf.CertChainPEMs {
		chain.Write(certPEM.Bytes())
	}
	return tls.X509KeyPair(chain.Bytes(), leaf.PrivateKeyPEM.Bytes())
}

// ConfigureCert presents this certificate as the provided TLS context's
// identity. Supported contexts are *tls.Config and any
// IdentityInstaller. A certificate pool can hold trust anchors but not
// present an identity, so passing one is rejected, as is any other type.
func (leaf *LeafCert) ConfigureCert(ctx any) error {
	certificate, err := leaf.TLSCertificate()
	if err != nil {
		return err
	}
	switch ctx := ctx.(type) {
	case *tls.Config:
		ctx.Certificates = []tls.Certificate{certificate}
	case IdentityInstaller:
		return ctx.InstallIdentity(certificate)
	case *x509.CertPool:
		return fmt.Errorf("%w: %T cannot present an identity", ErrCertContext, ctx)
	default:
		return fmt.Errorf("%w: %T", ErrCertContext, ctx)
	}
	return nil
}
