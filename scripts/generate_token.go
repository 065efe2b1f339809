package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/your-org/storefront-orders/internal/config"
	"github.com/your-org/storefront-orders/internal/pkg/auth"
)

// Mints an access token for local testing against the order API.
func main() {
	userID := flag.Uint("user", 1, "customer id")
	email := flag.String("email", "dev@example.com", "customer email")
	admin := flag.Bool("admin", false, "issue an admin token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to mint tokens in production")
	}

	token, err := auth.NewJWTManager(cfg.JWT).GenerateAccessToken(*userID, *email, *admin)
	if err != nil {
		log.Fatal("Error generating token:", err)
	}

	fmt.Printf("User: %d (admin=%t)\n", *userID, *admin)
	fmt.Printf("Token: %s\n", token)
}
