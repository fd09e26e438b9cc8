package pki

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"time"

	"github.com/jeremyhahn/go-test-pki/pkg/store/blob"
	"github.com/jeremyhahn/go-test-pki/pkg/util"
)

// CertificateRequest describes an end-entity certificate to issue.
type CertificateRequest struct {
	// Identities become the certificate's subject alternative names, in
	// the order given. Email addresses, IP addresses, CIDR networks and
	// DNS names are recognized; see ParseIdentity.
	Identities []string `yaml:"identities" json:"identities" mapstructure:"identities"`

	// CommonName is optional, but a request without identities must
	// provide one.
	CommonName string `yaml:"cn" json:"cn" mapstructure:"cn"`

	Organization       string `yaml:"organization" json:"organization" mapstructure:"organization"`
	OrganizationalUnit string `yaml:"organizational-unit" json:"organizational_unit" mapstructure:"organizational-unit"`

	// KeyType selects the leaf key algorithm. The zero value is ECDSA
	// P-256.
	KeyType KeyType `yaml:"-" json:"-" mapstructure:"-"`

	// NotBefore and NotAfter override the default validity window.
	NotBefore *time.Time `yaml:"-" json:"-" mapstructure:"-"`
	NotAfter  *time.Time `yaml:"-" json:"-" mapstructure:"-"`
}

// LeafCert is an issued end-entity certificate together with its private
// key and the chain back to, but not including, the root CA.
type LeafCert struct {
	// PrivateKeyPEM is the leaf's private key.
	PrivateKeyPEM blob.Blob

	// CertChainPEMs holds the leaf certificate first, followed by the
	// intermediate CA certificates ordered nearest-to-leaf first. The
	// root certificate is excluded.
	CertChainPEMs []blob.Blob

	// PrivateKeyAndCertChainPEM is the private key and certificate
	// chain concatenated in order, for servers that load all of their
	// TLS material from a single file.
	PrivateKeyAndCertChainPEM blob.Blob
}

// IssueCert issues a leaf certificate signed by this CA. At least one
// identity or a common name is required.
func (ca *CA) IssueCert(request CertificateRequest) (*LeafCert, error) {

	if len(request.Identities) == 0 && request.CommonName == "" {
		return nil, ErrNoIdentities
	}
	entries, err := parseIdentities(request.Identities)
	if err != nil {
		return nil, err
	}

	privateKey, err := request.KeyType.generateKey(ca.random)
	if err != nil {
		return nil, err
	}

	orgUnit := request.OrganizationalUnit
	if orgUnit == "" {
		text, err := util.RandomText(ca.random)
		if err != nil {
			return nil, err
		}
		orgUnit = "Testing cert #" + text
	}
	subject := buildName(orgUnit, request.Organization, request.CommonName)

	skid, err := subjectKeyID(privateKey.Public())
	if err != nil {
		return nil, err
	}
	skiExt, err := marshalSubjectKeyID(skid)
	if err != nil {
		return nil, err
	}
	bcExt, err := marshalBasicConstraints(false, -1)
	if err != nil {
		return nil, err
	}
	akiExt, err := marshalAuthorityKeyID(ca.certificate.SubjectKeyId)
	if err != nil {
		return nil, err
	}
	sanExt, err := marshalSANs(entries)
	if err != nil {
		return nil, err
	}
	kuExt, err := marshalKeyUsage(
		x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment)
	if err != nil {
		return nil, err
	}
	ekuExt, err := marshalExtKeyUsage([]asn1.ObjectIdentifier{
		oidExtKeyUsageClientAuth,
		oidExtKeyUsageServerAuth,
		oidExtKeyUsageCodeSigning,
	})
	if err != nil {
		return nil, err
	}

	validFrom := notBefore
	validTo := notAfter
	if request.NotBefore != nil {
		validFrom = *request.NotBefore
	}
	if request.NotAfter != nil {
		validTo = *request.NotAfter
	}

	serialNumber, err := util.X509SerialNumber(ca.random)
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject:      subject,
		NotBefore:    validFrom,
		NotAfter:     validTo,
		ExtraExtensions: []pkix.Extension{
			skiExt, bcExt, akiExt, sanExt, kuExt, ekuExt,
		},
	}
	der, err := x509.CreateCertificate(
		ca.random, template, ca.certificate, privateKey.Public(), ca.privateKey)
	if err != nil {
		return nil, err
	}

	keyPEM, err := encodePrivateKeyPEM(privateKey)
	if err != nil {
		return nil, err
	}
	certPEM := encodeCertificatePEM(der)

	chain := []blob.Blob{blob.New(certPEM)}
	bundle := make([]byte, 0, len(keyPEM)+len(certPEM))
	bundle = append(bundle, keyPEM...)
	bundle = append(bundle, certPEM...)
	for issuer := ca; issuer.parent != nil; issuer = issuer.parent {
		chain = append(chain, issuer.certPEM)
		bundle = append(bundle, issuer.certPEM.Bytes()...)
	}

	return &LeafCert{
		PrivateKeyPEM:             blob.New(keyPEM),
		CertChainPEMs:             chain,
		PrivateKeyAndCertChainPEM: blob.New(bundle),
	}, nil
}
