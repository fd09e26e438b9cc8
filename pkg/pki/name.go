package pki

import "crypto/x509/pkix"

// Organization recorded in generated subjects when the caller does not
// provide one.
const defaultOrganization = "go-test-pki"

// buildName assembles a certificate subject. Attribute order is fixed:
// organization, organizational unit, then an optional common name.
func buildName(orgUnit, organization, commonName string) pkix.Name {
	if organization == "" {
		organization = defaultOrganization
	}
	name := pkix.Name{
		Organization:       []string{organization},
		OrganizationalUnit: []string{orgUnit},
	}
	if commonName != "" {
		name.CommonName = commonName
	}
	return name
}
