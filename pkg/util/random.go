package util

import (
	"crypto/rand"
	"encoding/base64"
	"io"
)

const randomTextBytes = 12

// RandomText returns a short URL-safe base64 string sourced from the
// provided reader, or crypto/rand when random is nil. Used to make
// default certificate subjects unique.
func RandomText(random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	buf := make([]byte, randomTextBytes)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
