package main

import (
	"github.com/jeremyhahn/go-test-pki/pkg/cmd"
)

func main() {
	cmd.Execute()
}
