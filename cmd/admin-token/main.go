package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"portfolio-be/internal/service/auth"
	"portfolio-be/pkg/logger"
)

const usage = "Usage: go run ./cmd/admin-token <subject> [ttl, default 12h]"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		log.Fatal("ADMIN_JWT_SECRET environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	subject := os.Args[1]
	ttl := 12 * time.Hour
	if len(os.Args) > 2 {
		parsed, err := time.ParseDuration(os.Args[2])
		if err != nil || parsed <= 0 {
			log.Fatalf("Invalid ttl %q", os.Args[2])
		}
		ttl = parsed
	}

	token, err := auth.NewService(secret, logger.NewNop()).IssueAdminToken(subject, ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
