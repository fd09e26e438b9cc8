package pki

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		identity string
		kind     SANKind
		value    string
	}{
		{"walter@sobchak.com", SANEmail, "walter@sobchak.com"},
		{"docs@пример.рф", SANEmail, "docs@пример.рф"},
		{"127.0.0.1", SANIPAddress, "127.0.0.1"},
		{"::1", SANIPAddress, "::1"},
		{"10.0.0.0/8", SANIPNetwork, "10.0.0.0/8"},
		{"fd00::/16", SANIPNetwork, "fd00::/16"},
		{"example.com", SANDNS, "example.com"},
		{"localhost", SANDNS, "localhost"},
		{"Example.COM", SANDNS, "example.com"},
		{"xn--caf-dma.com", SANDNS, "xn--caf-dma.com"},
		{"café.com", SANDNS, "xn--caf-dma.com"},
		{"*.example.com", SANDNS, "*.example.com"},
		{"*.café.com", SANDNS, "*.xn--caf-dma.com"},
	}
	for _, test := range tests {
		entry, err := ParseIdentity(test.identity)
		assert.Nil(t, err, test.identity)
		assert.Equal(t, test.kind, entry.Kind, test.identity)
		assert.Equal(t, test.value, entry.String(), test.identity)
	}
}

// An address is always classified as a single address, never as the
// /32 network containing it.
func TestParseIdentityPrecedence(t *testing.T) {
	entry, err := ParseIdentity("127.0.0.1")
	assert.Nil(t, err)
	assert.Equal(t, SANIPAddress, entry.Kind)
	assert.Nil(t, entry.Network)

	entry, err = ParseIdentity("127.0.0.0/32")
	assert.Nil(t, err)
	assert.Equal(t, SANIPNetwork, entry.Kind)

	// Email wins over everything else
	entry, err = ParseIdentity("root@10.0.0.1")
	assert.Nil(t, err)
	assert.Equal(t, SANEmail, entry.Kind)
}

func TestParseIdentityRejectsNonStrings(t *testing.T) {
	_, err := ParseIdentity(42)
	assert.ErrorIs(t, err, ErrIdentityType)
	assert.Contains(t, err.Error(), "int")

	_, err = ParseIdentity([]byte("example.com"))
	assert.ErrorIs(t, err, ErrIdentityType)
	assert.Contains(t, err.Error(), "[]uint8")

	_, err = ParseIdentity(nil)
	assert.ErrorIs(t, err, ErrIdentityType)
}

func TestParseIdentityEncodingError(t *testing.T) {
	_, err := ParseIdentity("not a hostname")
	assert.ErrorIs(t, err, ErrIdentityEncoding)

	// The wildcard remainder must encode cleanly too
	_, err = ParseIdentity("*.not a hostname")
	assert.ErrorIs(t, err, ErrIdentityEncoding)
}
