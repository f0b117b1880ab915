// Command tokengen mints a development JWT accepted by the notify server.
package main

import (
	"chat-notify/auth"
	"chat-notify/domain"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

func main() {
	userID := flag.Int64("user", 0, "user id to embed in the token")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to JWT_SECRET)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *userID <= 0 {
		log.Fatal("a positive -user id is required")
	}
	if *secret == "" {
		log.Fatal("a -secret (or JWT_SECRET) is required")
	}

	manager := auth.NewTokenManager(*secret, *ttl)
	token, err := manager.Generate(domain.UserID(*userID))
	if err != nil {
		log.Fatalf("Token generation failed: %v", err)
	}
	fmt.Println(token)
}
