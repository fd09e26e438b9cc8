package pki

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// SANKind enumerates the subject alternative name forms produced by the
// identity classifier.
type SANKind int

const (
	SANEmail SANKind = iota
	SANIPAddress
	SANIPNetwork
	SANDNS
)

func (kind SANKind) String() string {
	switch kind {
	case SANEmail:
		return "email"
	case SANIPAddress:
		return "ip"
	case SANIPNetwork:
		return "network"
	case SANDNS:
		return "dns"
	}
	return "unknown"
}

// SANEntry is one classified identity bound for the subject alternative
// name extension of an issued certificate. Exactly one of the value
// fields is populated, according to Kind.
type SANEntry struct {
	Kind    SANKind
	Email   string
	DNS     string
	IP      net.IP
	Network *net.IPNet
}

func (entry SANEntry) String() string {
	switch entry.Kind {
	case SANEmail:
		return entry.Email
	case SANIPAddress:
		return entry.IP.String()
	case SANIPNetwork:
		return entry.Network.String()
	}
	return entry.DNS
}

// ParseIdentity classifies an identity into the subject alternative name
// form it occupies in an issued certificate. Identities arrive untyped
// from YAML configuration, so any value may be passed; anything but a
// string is rejected with ErrIdentityType.
//
// Classification precedence: email addresses (any string containing "@"),
// IP addresses, CIDR networks, then DNS names. DNS names are converted
// to their ASCII form with the UTS-46 lookup profile; a leading "*."
// wildcard label is preserved and only the remainder is converted.
func ParseIdentity(value any) (SANEntry, error) {
	identity, ok := value.(string)
	if !ok {
		return SANEntry{}, fmt.Errorf("%w: %T", ErrIdentityType, value)
	}
	return parseIdentity(identity)
}

func parseIdentity(identity string) (SANEntry, error) {
	if strings.Contains(identity, "@") {
		return SANEntry{Kind: SANEmail, Email: identity}, nil
	}
	if ip := net.ParseIP(identity); ip != nil {
		return SANEntry{Kind: SANIPAddress, IP: ip}, nil
	}
	if _, network, err := net.ParseCIDR(identity); err == nil {
		return SANEntry{Kind: SANIPNetwork, Network: network}, nil
	}
	if rest, ok := strings.CutPrefix(identity, "*."); ok {
		encoded, err := idna.Lookup.ToASCII(rest)
		if err != nil {
			return SANEntry{}, fmt.Errorf("%w: %q: %v", ErrIdentityEncoding, identity, err)
		}
		return SANEntry{Kind: SANDNS, DNS: "*." + encoded}, nil
	}
	encoded, err := idna.Lookup.ToASCII(identity)
	if err != nil {
		return SANEntry{}, fmt.Errorf("%w: %q: %v", ErrIdentityEncoding, identity, err)
	}
	return SANEntry{Kind: SANDNS, DNS: encoded}, nil
}

// parseIdentities classifies every identity of a certificate request,
// preserving order.
func parseIdentities(identities []string) ([]SANEntry, error) {
	entries := make([]SANEntry, len(identities))
	for i, identity := range identities {
		entry, err := parseIdentity(identity)
		if err != nil {
			return nil, err
		}
		entries[i] = entry
	}
	return entries, nil
}
