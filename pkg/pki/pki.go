package pki

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"time"

	"github.com/jeremyhahn/go-test-pki/pkg/store/blob"
	"github.com/jeremyhahn/go-test-pki/pkg/util"
)

var (
	ErrIdentityType         = errors.New("pki: identities must be strings")
	ErrIdentityEncoding     = errors.New("pki: invalid DNS identity")
	ErrInvalidKeyType       = errors.New("pki: invalid key type")
	ErrNoIdentities         = errors.New("pki: at least one identity or common name is required")
	ErrPathLengthExhausted  = errors.New("pki: cannot create a child CA: path length is 0")
	ErrTrustContext         = errors.New("pki: unrecognized trust context")
	ErrCertContext          = errors.New("pki: unrecognized certificate context")
	ErrDecodePEM            = errors.New("pki: invalid PEM encoding")
	ErrMalformedCertificate = errors.New("pki: malformed certificate")
	ErrInvalidPassword      = errors.New("pki: invalid private key password")
)

// DefaultPathLength bounds how many levels of intermediates a fresh root
// CA may have below it.
const DefaultPathLength = 9

// Certificates are valid from well before to well after any clock a test
// could plausibly run under, so expiry never interferes with a test run.
var (
	notBefore = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	notAfter  = time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Options configures a new certificate authority. The zero value creates
// a self-signed root CA with an ECDSA P-256 key and the default path
// length.
type Options struct {
	// Parent signs the new CA's certificate when present. When nil the
	// CA signs its own certificate.
	Parent *CA

	// PathLength bounds the depth of the intermediate hierarchy below
	// this CA. Defaults to DefaultPathLength.
	PathLength *int

	// Subject overrides. OrganizationalUnit defaults to
	// "Testing CA #<random>", Organization to the library name.
	Organization       string
	OrganizationalUnit string

	// KeyType selects the key algorithm. The zero value is ECDSA P-256.
	KeyType KeyType

	// Rand is the entropy source used for key generation, serial
	// numbers and random subject text. Defaults to crypto/rand.Reader.
	Rand io.Reader
}

// CA is a disposable in-memory certificate authority for tests. Creating
// one generates a fresh keypair and certificate; nothing is persisted
// unless the caller exports the PEM encodings.
//
// A CA is immutable after construction and safe for concurrent use.
type CA struct {
	parent      *CA
	privateKey  crypto.Signer
	certificate *x509.Certificate
	certPEM     blob.Blob
	keyPEM      blob.Blob
	pathLength  int
	random      io.Reader
}

// New creates a certificate authority. A nil opts creates a self-signed
// root CA with defaults.
func New(opts *Options) (*CA, error) {

	if opts == nil {
		opts = &Options{}
	}
	random := opts.Rand
	if random == nil {
		random = rand.Reader
	}
	pathLength := DefaultPathLength
	if opts.PathLength != nil {
		pathLength = *opts.PathLength
	}

	privateKey, err := opts.KeyType.generateKey(random)
	if err != nil {
		return nil, err
	}

	orgUnit := opts.OrganizationalUnit
	if orgUnit == "" {
		text, err := util.RandomText(random)
		if err != nil {
			return nil, err
		}
		orgUnit = "Testing CA #" + text
	}
	subject := buildName(orgUnit, opts.Organization, "")

	// The extension list is marshaled by hand and passed through
	// ExtraExtensions so the encoded order and criticality are under
	// this package's control rather than the certificate builder's.
	skid, err := subjectKeyID(privateKey.Public())
	if err != nil {
		return nil, err
	}
	skiExt, err := marshalSubjectKeyID(skid)
	if err != nil {
		return nil, err
	}
	bcExt, err := marshalBasicConstraints(true, pathLength)
	if err != nil {
		return nil, err
	}
	extensions := []pkix.Extension{skiExt, bcExt}
	if opts.Parent != nil {
		akiExt, err := marshalAuthorityKeyID(opts.Parent.certificate.SubjectKeyId)
		if err != nil {
			return nil, err
		}
		extensions = append(extensions, akiExt)
	}
	kuExt, err := marshalKeyUsage(
		x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign | x509.KeyUsageCRLSign)
	if err != nil {
		return nil, err
	}
	extensions = append(extensions, kuExt)

	serialNumber, err := util.X509SerialNumber(random)
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber:    serialNumber,
		Subject:         subject,
		NotBefore:       notBefore,
		NotAfter:        notAfter,
		ExtraExtensions: extensions,
	}

	issuer := template
	signer := privateKey
	if opts.Parent != nil {
		issuer = opts.Parent.certificate
		signer = opts.Parent.privateKey
	}
	der, err := x509.CreateCertificate(
		random, template, issuer, privateKey.Public(), signer)
	if err != nil {
		return nil, err
	}
	certificate, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	keyPEM, err := encodePrivateKeyPEM(privateKey)
	if err != nil {
		return nil, err
	}

	return &CA{
		parent:      opts.Parent,
		privateKey:  privateKey,
		certificate: certificate,
		certPEM:     blob.New(encodeCertificatePEM(der)),
		keyPEM:      blob.New(keyPEM),
		pathLength:  pathLength,
		random:      random,
	}, nil
}

// CreateChildCA issues an intermediate CA below this one. The child's
// path length is one less than this CA's; once the path length reaches
// zero no further children can be created.
func (ca *CA) CreateChildCA(keyType KeyType) (*CA, error) {
	if ca.pathLength == 0 {
		return nil, ErrPathLengthExhausted
	}
	childPathLength := ca.pathLength - 1
	return New(&Options{
		Parent:     ca,
		PathLength: &childPathLength,
		KeyType:    keyType,
		Rand:       ca.random,
	})
}

// Certificate returns the CA's parsed certificate.
func (ca *CA) Certificate() *x509.Certificate {
	return ca.certificate
}

// CertPEM returns the PEM encoded CA certificate.
func (ca *CA) CertPEM() blob.Blob {
	return ca.certPEM
}

// PrivateKeyPEM returns the CA private key in its traditional PEM
// encoding (SEC 1 for ECDSA, PKCS#1 for RSA).
func (ca *CA) PrivateKeyPEM() blob.Blob {
	return ca.keyPEM
}

// Parent returns the CA that signed this CA's certificate, or nil for a
// self-signed root.
func (ca *CA) Parent() *CA {
	return ca.parent
}

// PathLength returns the remaining intermediate depth below this CA.
func (ca *CA) PathLength() int {
	return ca.pathLength
}
