package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"pemilihan-be/internal/repository"
	"pemilihan-be/pkg/database"
)

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
		fmt.Println("Usage: go run ./cmd/migrate [up|drop|reset|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch command {
	case "up":
		withConn(ctx, dbURL, func(conn *pgx.Conn) error {
			return database.ApplySchema(ctx, conn)
		})
		fmt.Println("Schema applied successfully")

	case "drop":
		withConn(ctx, dbURL, func(conn *pgx.Conn) error {
			return database.DropSchema(ctx, conn)
		})
		fmt.Println("All tables dropped successfully")

	case "reset":
		withConn(ctx, dbURL, func(conn *pgx.Conn) error {
			if err := database.DropSchema(ctx, conn); err != nil {
				return err
			}
			return database.ApplySchema(ctx, conn)
		})
		fmt.Println("Schema recreated successfully")

	case "seed":
		seeded, err := seedCandidates(ctx, dbURL)
		if err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		if seeded == 0 {
			fmt.Println("Candidates already present, nothing seeded")
		} else {
			fmt.Printf("Seeded %d candidates\n", seeded)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func withConn(ctx context.Context, dbURL string, fn func(conn *pgx.Conn) error) {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	if err := fn(conn); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

func seedCandidates(ctx context.Context, dbURL string) (int, error) {
	db, err := database.NewPostgresDB(ctx, dbURL)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	return repository.SeedCandidates(ctx, repository.NewCandidateRepository(db), repository.DemoCandidates())
}
