package main

import (
	"flag"
	"fmt"
	"os"

	"pickup-market/internal/auth"
	"pickup-market/internal/config"

	"github.com/google/uuid"
)

func main() {
	subject := flag.String("subject", "", "User or courier ID (UUID), random if empty")
	role := flag.String("role", auth.RoleUser, "Role (user|courier|admin)")
	flag.Parse()

	id := uuid.New()
	if *subject != "" {
		parsed, err := uuid.Parse(*subject)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid subject: %v\n", err)
			os.Exit(1)
		}
		id = parsed
	}

	cfg := config.Load()
	jwtService := auth.NewJWTService(cfg.Auth)

	token, err := jwtService.GenerateToken(id, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Subject: %s\n", id)
	fmt.Printf("Role:    %s\n", *role)
	fmt.Printf("\nAuthorization: Bearer %s\n", token)
}
