package ca

import (
	"github.com/jeremyhahn/go-test-pki/pkg/app"
)

const (
	caCertFile = "ca.pem"
	caKeyFile  = "ca.key"
)

var (
	App        *app.App
	Dir        string
	Identities []string
	CommonName string
	Encrypt    bool
)
