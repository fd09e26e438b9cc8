package util

import (
	"crypto/rand"
	"io"
	"math/big"
)

// X509SerialNumber returns a random serial number suitable for an X.509
// certificate. Serials are drawn uniformly from [0, 2^128) using the
// provided entropy source, or crypto/rand when random is nil.
func X509SerialNumber(random io.Reader) (*big.Int, error) {
	if random == nil {
		random = rand.Reader
	}
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	return rand.Int(random, serialNumberLimit)
}
