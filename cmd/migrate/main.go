package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"portfolio-be/pkg/database"
)

const usage = "Usage: go run ./cmd/migrate [up|drop|seed [n]|count]"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "up":
		if _, err := conn.Exec(ctx, database.PostgresSchema); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ visits table created")

	case "drop":
		if _, err := conn.Exec(ctx, `DROP TABLE IF EXISTS visits CASCADE`); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ visits table dropped")

	case "seed":
		n := 42
		if len(os.Args) > 2 {
			if n, err = strconv.Atoi(os.Args[2]); err != nil || n < 0 {
				log.Fatalf("Invalid seed count %q", os.Args[2])
			}
		}
		if err := seedVisits(ctx, conn, n); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Printf("✅ %d visits seeded\n", n)

	case "count":
		var count int64
		if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM visits`).Scan(&count); err != nil {
			log.Fatalf("Failed to count visits: %v", err)
		}
		fmt.Printf("visits: %d\n", count)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

// seedVisits inserts n visits from documentation-range addresses, all older
// than a day so they do not count against today's quota
func seedVisits(ctx context.Context, conn *pgx.Conn, n int) error {
	rows := make([][]interface{}, 0, n)
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		ip := fmt.Sprintf("198.51.100.%d", i%256)
		createdAt := now.Add(-time.Duration(i/256+1) * 24 * time.Hour).Add(-time.Duration(i%256) * time.Minute)
		rows = append(rows, []interface{}{ip, createdAt})
	}

	copied, err := conn.CopyFrom(ctx, pgx.Identifier{"visits"}, []string{"ip", "created_at"}, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy visits: %w", err)
	}
	if int(copied) != n {
		return fmt.Errorf("copied %d of %d visits", copied, n)
	}
	return nil
}
