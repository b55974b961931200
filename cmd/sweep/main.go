// sweep flips the is_active flag on sessions whose expiry has passed; run with
// go run ./cmd/sweep (e.g. from cron). Expiry is also enforced lazily on
// refresh, so the sweep is hygiene for the active-hint index, not correctness.
package main

import (
	"context"
	"log"
	"time"

	"vendhub/backend/internal/config"
	"vendhub/backend/internal/db"
	sessionrepo "vendhub/backend/internal/session/repository"
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessions := sessionrepo.NewPostgresRepository(conn)
	n, err := sessions.DeactivateExpired(ctx, time.Now().UTC())
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}
	log.Printf("Sweep complete. Deactivated %d expired session(s).", n)
}
