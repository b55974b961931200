// seed inserts a development user for local testing; run with go run ./cmd/seed.
// Idempotent: skips inserts if the dev user (dev) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"vendhub/backend/internal/config"
	"vendhub/backend/internal/db"
	"vendhub/backend/internal/security"
	userrepo "vendhub/backend/internal/user/repository"
)

const (
	devUsername = "dev"
	devPassword = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)

	existing, err := users.GetByUsername(ctx, devUsername)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev user exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, is_active, created_at)
		 VALUES ($1, $2, $3, true, $4)`,
		uuid.NewString(), devUsername, passwordHash, now,
	); err != nil {
		log.Fatalf("create dev user: %v", err)
	}

	log.Printf("Seed complete. Login with %s / %s", devUsername, devPassword)
}
