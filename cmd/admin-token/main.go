package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/servicecart/pkg/config"
	"github.com/angelmondragon/servicecart/pkg/security"
)

// admin-token prints a fresh admin bearer token and the argon2id hash to store in
// SERVICECART_ADMIN_TOKEN_HASH. Pass -token to hash an existing secret instead.
func main() {
	existing := flag.String("token", "", "hash this token instead of generating one")
	length := flag.Int("bytes", 32, "random bytes in a generated token")
	flag.Parse()

	token := *existing
	if token == "" {
		generated, err := security.GenerateToken(*length)
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate token: %v\n", err)
			os.Exit(1)
		}
		token = generated
	}

	hash, err := security.HashToken(token, security.DefaultParams)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("token: %s\n", token)
	fmt.Printf("%s=%s\n", config.EnvAdminTokenHash, hash)
}
