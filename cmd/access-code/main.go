package main

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/config"
)

// access-code hashes an interview access code for registration with the
// platform backend. With no input it generates a random code first.
func main() {
	cfg := config.Load()

	fmt.Println("=== Interview Access Code ===")
	fmt.Print("Enter access code (empty to generate): ")

	byteCode, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading access code")
		return
	}
	fmt.Println() // Newline after hidden input

	code := strings.TrimSpace(string(byteCode))
	if code == "" {
		code, err = generateCode()
		if err != nil {
			fmt.Printf("Error generating code: %v\n", err)
			return
		}
		fmt.Printf("Generated code: %s\n", code)
	}

	if len(code) < 4 {
		fmt.Println("Error: Access code must be at least 4 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), cfg.BcryptCost)
	if err != nil {
		fmt.Printf("Error hashing code: %v\n", err)
		return
	}

	fmt.Printf("\nHash (register this with the platform):\n%s\n", string(hash))
}

// generateCode returns a short, unambiguous base32 code.
func generateCode() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}
