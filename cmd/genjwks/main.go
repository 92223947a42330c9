package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"Vouch/internal/auth"
)

// genjwks generates the ES256 key that signs admin API tokens, and optionally
// the bcrypt hash of the admin password.
//
// Usage:
//
//	go run ./cmd/genjwks [-password secret] [-save]
//
// The key goes in ADMIN_PRIVATE_JWK and the hash in ADMIN_PASSWORD_HASH.
func main() {
	password := flag.String("password", "", "admin password to hash for ADMIN_PASSWORD_HASH")
	save := flag.Bool("save", false, "also write the key to admin-private-key.json")
	flag.Parse()

	fmt.Println("Generating ES256 keypair for admin API tokens...")

	key, err := auth.GenerateSigningKey()
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	jsonData, err := json.Marshal(key)
	if err != nil {
		log.Fatalf("Failed to marshal JWK: %v", err)
	}

	fmt.Println("\nES256 keypair generated.")
	fmt.Println("\nAdd this to your .env.dev file:")
	fmt.Println("\nADMIN_PRIVATE_JWK='" + string(jsonData) + "'")

	if *password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println("ADMIN_PASSWORD_HASH='" + string(hash) + "'")
	}

	fmt.Println("\nIMPORTANT:")
	fmt.Println("   - Keep this private key SECRET")
	fmt.Println("   - Never commit it to version control")
	fmt.Println("   - Rotating the key invalidates every issued admin token")

	if *save {
		filename := "admin-private-key.json"
		if err := os.WriteFile(filename, jsonData, 0600); err != nil {
			log.Fatalf("Failed to write key file: %v", err)
		}
		fmt.Printf("\nPrivate key saved to %s (remember to add to .gitignore!)\n", filename)
	}
}
