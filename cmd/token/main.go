// cmd/token mints an access token for the write and admin routes.
//
//	go run ./cmd/token -sub ops -role admin -ttl 24h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"book-catalog/internal/shared"
	"book-catalog/pkg/jwt"
)

func main() {
	_ = godotenv.Load()

	subject := flag.String("sub", "", "token subject (required)")
	role := flag.String("role", shared.RoleEditor, "role claim: editor or admin")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (default $JWT_SECRET)")
	flag.Parse()

	if *subject == "" || *secret == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *role != shared.RoleEditor && *role != shared.RoleAdmin {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	token, err := jwt.NewManager(*secret, *ttl).GenerateAccessToken(*subject, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
