package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-test-pki/pkg/store/blob"
	"github.com/youmark/pkcs8"
)

// PEM block types understood by the codec.
const (
	pemTypeCertificate         = "CERTIFICATE"
	pemTypeRSAPrivateKey       = "RSA PRIVATE KEY"
	pemTypeECPrivateKey        = "EC PRIVATE KEY"
	pemTypePKCS8PrivateKey     = "PRIVATE KEY"
	pemTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
)

func encodeCertificatePEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: der})
}

// encodePrivateKeyPEM serializes a private key in its traditional
// encoding: SEC 1 for ECDSA, PKCS#1 for RSA.
func encodePrivateKeyPEM(privateKey crypto.Signer) ([]byte, error) {
	switch key := privateKey.(type) {
	case *ecdsa.PrivateKey:
		der, err := x509.MarshalECPrivateKey(key)
		if err != nil {
			return nil, err
		}
		return pem.EncodeToMemory(&pem.Block{
			Type:  pemTypeECPrivateKey,
			Bytes: der,
		}), nil
	case *rsa.PrivateKey:
		return pem.EncodeToMemory(&pem.Block{
			Type:  pemTypeRSAPrivateKey,
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		}), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidKeyType, privateKey)
}

// decodePrivateKeyPEM parses any of the private key encodings produced
// by this package, plus plain and password protected PKCS#8.
func decodePrivateKeyPEM(keyPEM, password []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, ErrDecodePEM
	}
	switch block.Type {
	case pemTypeECPrivateKey:
		return x509.ParseECPrivateKey(block.Bytes)
	case pemTypeRSAPrivateKey:
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case pemTypePKCS8PrivateKey, pemTypeEncryptedPrivateKey:
		var key any
		var err error
		if len(password) > 0 {
			key, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes, password)
		} else {
			key, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes)
		}
		if err != nil {
			// The pkcs8 package doesn't always say "invalid password";
			// parsing an encrypted key without the right password can
			// also surface as this ASN.1 structure error.
			if strings.Contains(err.Error(), "asn1: structure error: tags don't match") ||
				strings.Contains(err.Error(), "invalid padding") ||
				strings.Contains(err.Error(), "incorrect password") {
				return nil, ErrInvalidPassword
			}
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrInvalidKeyType, key)
		}
		return signer, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrDecodePEM, block.Type)
}

// FromPEM reconstructs a parentless CA from its PEM encoded certificate
// and private key, as produced by CertPEM and PrivateKeyPEM.
func FromPEM(certPEM, keyPEM []byte) (*CA, error) {
	return fromPEM(certPEM, keyPEM, nil)
}

// FromEncryptedPEM is FromPEM for private keys exported with
// EncryptedPrivateKeyPEM.
func FromEncryptedPEM(certPEM, keyPEM, password []byte) (*CA, error) {
	return fromPEM(certPEM, keyPEM, password)
}

func fromPEM(certPEM, keyPEM, password []byte) (*CA, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != pemTypeCertificate {
		return nil, ErrDecodePEM
	}
	certificate, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	privateKey, err := decodePrivateKeyPEM(keyPEM, password)
	if err != nil {
		return nil, err
	}

	// Certificates created by this package always encode the path
	// length they were created with; the default applies only when the
	// imported encoding omits it.
	pathLength := DefaultPathLength
	if certificate.BasicConstraintsValid {
		if certificate.MaxPathLen > 0 || certificate.MaxPathLenZero {
			pathLength = certificate.MaxPathLen
		}
	}

	keyPEMOut, err := encodePrivateKeyPEM(privateKey)
	if err != nil {
		return nil, err
	}
	return &CA{
		privateKey:  privateKey,
		certificate: certificate,
		certPEM:     blob.New(encodeCertificatePEM(block.Bytes)),
		keyPEM:      blob.New(keyPEMOut),
		pathLength:  pathLength,
		random:      rand.Reader,
	}, nil
}

// EncryptedPrivateKeyPEM exports the CA private key as password
// protected PKCS#8, for parking a CA on shared storage.
func (ca *CA) EncryptedPrivateKeyPEM(password []byte) (blob.Blob, error) {
	der, err := pkcs8.MarshalPrivateKey(ca.privateKey, password, nil)
	if err != nil {
		return blob.Blob{}, err
	}
	return blob.New(pem.EncodeToMemory(&pem.Block{
		Type:  pemTypeEncryptedPrivateKey,
		Bytes: der,
	})), nil
}
