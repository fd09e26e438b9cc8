package pki

import (
	"crypto"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"net"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// RFC 5280 4.2 extension and extended key usage identifiers.
var (
	oidExtensionSubjectKeyID     = asn1.ObjectIdentifier{2, 5, 29, 14}
	oidExtensionKeyUsage         = asn1.ObjectIdentifier{2, 5, 29, 15}
	oidExtensionSubjectAltName   = asn1.ObjectIdentifier{2, 5, 29, 17}
	oidExtensionBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
	oidExtensionAuthorityKeyID   = asn1.ObjectIdentifier{2, 5, 29, 35}
	oidExtensionExtKeyUsage      = asn1.ObjectIdentifier{2, 5, 29, 37}

	oidExtKeyUsageServerAuth  = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
	oidExtKeyUsageClientAuth  = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}
	oidExtKeyUsageCodeSigning = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 3}
)

// GeneralName tag numbers from RFC 5280 4.2.1.6.
const (
	nameTypeEmail = 1
	nameTypeDNS   = 2
	nameTypeIP    = 7
)

// subjectKeyID derives the key identifier for a public key using RFC 5280
// 4.2.1.2 method 1: the SHA-1 digest of the subjectPublicKey BIT STRING.
func subjectKeyID(pub crypto.PublicKey) ([]byte, error) {
	spkiDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	var spki struct {
		Algorithm        pkix.AlgorithmIdentifier
		SubjectPublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(spkiDER, &spki); err != nil {
		return nil, err
	}
	skid := sha1.Sum(spki.SubjectPublicKey.Bytes)
	return skid[:], nil
}

func marshalSubjectKeyID(skid []byte) (pkix.Extension, error) {
	value, err := asn1.Marshal(skid)
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: oidExtensionSubjectKeyID, Value: value}, nil
}

type authorityKeyID struct {
	ID []byte `asn1:"optional,tag:0"`
}

func marshalAuthorityKeyID(keyID []byte) (pkix.Extension, error) {
	value, err := asn1.Marshal(authorityKeyID{ID: keyID})
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: oidExtensionAuthorityKeyID, Value: value}, nil
}

type basicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

// marshalBasicConstraints encodes the CA flag and path length. A negative
// path length is omitted from the encoding.
func marshalBasicConstraints(isCA bool, pathLength int) (pkix.Extension, error) {
	value, err := asn1.Marshal(basicConstraints{IsCA: isCA, MaxPathLen: pathLength})
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: oidExtensionBasicConstraints, Critical: true, Value: value}, nil
}

func reverseBitsInAByte(in byte) byte {
	b1 := in>>4 | in<<4
	b2 := b1>>2&0x33 | b1<<2&0xcc
	b3 := b2>>1&0x55 | b2<<1&0xaa
	return b3
}

// asn1BitLength returns the bit-length of bitString by considering the
// most-significant bit in a byte to be the "first" bit. This convention
// matches ASN.1 X.690 bit string encoding.
func asn1BitLength(bitString []byte) int {
	bitLen := len(bitString) * 8
	for i := range bitString {
		b := bitString[len(bitString)-i-1]
		for bit := uint(0); bit < 8; bit++ {
			if (b>>bit)&1 == 1 {
				return bitLen
			}
			bitLen--
		}
	}
	return 0
}

func marshalKeyUsage(keyUsage x509.KeyUsage) (pkix.Extension, error) {
	var a [2]byte
	a[0] = reverseBitsInAByte(byte(keyUsage))
	a[1] = reverseBitsInAByte(byte(keyUsage >> 8))
	l := 1
	if a[1] != 0 {
		l = 2
	}
	bitString := a[:l]
	value, err := asn1.Marshal(asn1.BitString{
		Bytes:     bitString,
		BitLength: asn1BitLength(bitString),
	})
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: oidExtensionKeyUsage, Critical: true, Value: value}, nil
}

func marshalExtKeyUsage(oids []asn1.ObjectIdentifier) (pkix.Extension, error) {
	value, err := asn1.Marshal(oids)
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: oidExtensionExtKeyUsage, Critical: true, Value: value}, nil
}

// marshalSANs encodes the subject alternative name extension with one
// GeneralName per entry, in the order given. IP networks encode as an
// iPAddress holding the masked base address followed by the mask bytes.
// The extension is marked critical regardless of the subject, which the
// crypto/x509 certificate builder cannot express.
func marshalSANs(entries []SANEntry) (pkix.Extension, error) {
	rawValues := make([]asn1.RawValue, 0, len(entries))
	for _, entry := range entries {
		switch entry.Kind {
		case SANEmail:
			rawValues = append(rawValues, asn1.RawValue{
				Tag: nameTypeEmail, Class: 2, Bytes: []byte(entry.Email)})
		case SANIPAddress:
			ip := entry.IP
			if v4 := ip.To4(); v4 != nil {
				ip = v4
			}
			rawValues = append(rawValues, asn1.RawValue{
				Tag: nameTypeIP, Class: 2, Bytes: ip})
		case SANIPNetwork:
			base := entry.Network.IP
			if v4 := base.To4(); v4 != nil {
				base = v4
			}
			value := make([]byte, 0, len(base)+len(entry.Network.Mask))
			value = append(value, base...)
			value = append(value, entry.Network.Mask...)
			rawValues = append(rawValues, asn1.RawValue{
				Tag: nameTypeIP, Class: 2, Bytes: value})
		case SANDNS:
			rawValues = append(rawValues, asn1.RawValue{
				Tag: nameTypeDNS, Class: 2, Bytes: []byte(entry.DNS)})
		default:
			return pkix.Extension{}, fmt.Errorf("%w: %d", ErrIdentityType, entry.Kind)
		}
	}
	value, err := asn1.Marshal(rawValues)
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: oidExtensionSubjectAltName, Critical: true, Value: value}, nil
}

// CertificateSANs extracts the subject alternative name entries from a
// DER encoded certificate. Unlike crypto/x509, IP network entries are
// understood, so certificates issued for CIDR identities can still be
// inspected.
func CertificateSANs(der []byte) ([]SANEntry, error) {
	extensions, err := certificateExtensions(der)
	if err != nil {
		return nil, err
	}
	for _, ext := range extensions {
		if ext.Id.Equal(oidExtensionSubjectAltName) {
			return parseSANs(ext.Value)
		}
	}
	return nil, nil
}

// certificateExtensions walks the TBSCertificate structure and returns
// the raw extension list.
func certificateExtensions(der []byte) ([]pkix.Extension, error) {
	input := cryptobyte.String(der)
	var cert cryptobyte.String
	if !input.ReadASN1(&cert, cryptobyte_asn1.SEQUENCE) {
		return nil, ErrMalformedCertificate
	}
	var tbs cryptobyte.String
	if !cert.ReadASN1(&tbs, cryptobyte_asn1.SEQUENCE) {
		return nil, ErrMalformedCertificate
	}
	if !tbs.SkipOptionalASN1(cryptobyte_asn1.Tag(0).Constructed().ContextSpecific()) ||
		!tbs.SkipASN1(cryptobyte_asn1.INTEGER) || // serial number
		!tbs.SkipASN1(cryptobyte_asn1.SEQUENCE) || // signature algorithm
		!tbs.SkipASN1(cryptobyte_asn1.SEQUENCE) || // issuer
		!tbs.SkipASN1(cryptobyte_asn1.SEQUENCE) || // validity
		!tbs.SkipASN1(cryptobyte_asn1.SEQUENCE) || // subject
		!tbs.SkipASN1(cryptobyte_asn1.SEQUENCE) { // subject public key info
		return nil, ErrMalformedCertificate
	}
	if !tbs.SkipOptionalASN1(cryptobyte_asn1.Tag(1).ContextSpecific()) ||
		!tbs.SkipOptionalASN1(cryptobyte_asn1.Tag(2).ContextSpecific()) {
		return nil, ErrMalformedCertificate
	}
	var wrapper cryptobyte.String
	var present bool
	if !tbs.ReadOptionalASN1(&wrapper, &present,
		cryptobyte_asn1.Tag(3).Constructed().ContextSpecific()) {
		return nil, ErrMalformedCertificate
	}
	if !present {
		return nil, nil
	}
	var extList cryptobyte.String
	if !wrapper.ReadASN1(&extList, cryptobyte_asn1.SEQUENCE) {
		return nil, ErrMalformedCertificate
	}
	var extensions []pkix.Extension
	for !extList.Empty() {
		var extDER cryptobyte.String
		if !extList.ReadASN1(&extDER, cryptobyte_asn1.SEQUENCE) {
			return nil, ErrMalformedCertificate
		}
		var ext pkix.Extension
		if !extDER.ReadASN1ObjectIdentifier(&ext.Id) {
			return nil, ErrMalformedCertificate
		}
		if extDER.PeekASN1Tag(cryptobyte_asn1.BOOLEAN) {
			if !extDER.ReadASN1Boolean(&ext.Critical) {
				return nil, ErrMalformedCertificate
			}
		}
		var value cryptobyte.String
		if !extDER.ReadASN1(&value, cryptobyte_asn1.OCTET_STRING) {
			return nil, ErrMalformedCertificate
		}
		ext.Value = value
		extensions = append(extensions, ext)
	}
	return extensions, nil
}

func parseSANs(value []byte) ([]SANEntry, error) {
	emailTag := cryptobyte_asn1.Tag(nameTypeEmail).ContextSpecific()
	dnsTag := cryptobyte_asn1.Tag(nameTypeDNS).ContextSpecific()
	ipTag := cryptobyte_asn1.Tag(nameTypeIP).ContextSpecific()

	der := cryptobyte.String(value)
	var seq cryptobyte.String
	if !der.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, ErrMalformedCertificate
	}
	var entries []SANEntry
	for !seq.Empty() {
		var v cryptobyte.String
		var tag cryptobyte_asn1.Tag
		if !seq.ReadAnyASN1(&v, &tag) {
			return nil, ErrMalformedCertificate
		}
		switch tag {
		case emailTag:
			entries = append(entries, SANEntry{Kind: SANEmail, Email: string(v)})
		case dnsTag:
			entries = append(entries, SANEntry{Kind: SANDNS, DNS: string(v)})
		case ipTag:
			switch len(v) {
			case net.IPv4len, net.IPv6len:
				entries = append(entries, SANEntry{Kind: SANIPAddress, IP: net.IP(v)})
			case 2 * net.IPv4len, 2 * net.IPv6len:
				half := len(v) / 2
				entries = append(entries, SANEntry{Kind: SANIPNetwork, Network: &net.IPNet{
					IP:   net.IP(v[:half]),
					Mask: net.IPMask(v[half:]),
				}})
			default:
				return nil, fmt.Errorf("%w: IP address of length %d",
					ErrMalformedCertificate, len(v))
			}
		}
	}
	return entries, nil
}
