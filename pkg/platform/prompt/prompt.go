package prompt

import (
	"fmt"
	"log"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const (
	userPrompt = "test-pki> $ "
)

func PrintBanner(version string) {
	color.New(color.FgGreen).Printf("test-pki v%s\n\n", version)
}

func PasswordPrompt(message string) []byte {
	fmt.Printf("%s: \n", message)
	fmt.Printf(userPrompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println()
	return password
}

func KeyPassword() []byte {
	return PasswordPrompt("Private Key Password")
}
