package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
	"io"
	"strings"
)

const rsaKeyBits = 2048

// KeyType selects the algorithm used when generating CA and leaf keys.
// The zero value generates ECDSA keys on the P-256 curve.
type KeyType int

const (
	KeyTypeECDSA KeyType = iota
	KeyTypeRSA
)

func (keyType KeyType) String() string {
	switch keyType {
	case KeyTypeRSA:
		return "rsa"
	default:
		return "ecdsa"
	}
}

// ParseKeyType maps the CLI and config spelling of a key algorithm to a
// KeyType. The empty string selects the default.
func ParseKeyType(name string) (KeyType, error) {
	switch strings.ToLower(name) {
	case "", "ecdsa":
		return KeyTypeECDSA, nil
	case "rsa":
		return KeyTypeRSA, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidKeyType, name)
}

func (keyType KeyType) generateKey(random io.Reader) (crypto.Signer, error) {
	switch keyType {
	case KeyTypeECDSA:
		return ecdsa.GenerateKey(elliptic.P256(), random)
	case KeyTypeRSA:
		return rsa.GenerateKey(random, rsaKeyBits)
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidKeyType, keyType)
}
