// migrate applies or rolls back the embedded schema migrations.
//
// Usage: go run ./cmd/migrate [up|down [n]|version]
package main

import (
	"errors"
	"log"
	"os"
	"strconv"

	"bizledger/internal/db"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	m, err := db.NewMigrator(url)
	if err != nil {
		log.Fatalf("[INIT] %v", err)
	}
	defer m.Close()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps <= 0 {
				log.Fatalf("[DOWN] invalid step count %q", os.Args[2])
			}
		}
		err = m.Steps(-steps)
	case "version":
	default:
		log.Fatalf("unknown command %q (want up, down [n], or version)", cmd)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("[%s] %v", cmd, err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Println("[DONE] no migrations applied")
	case err != nil:
		log.Fatalf("[VERSION] %v", err)
	case dirty:
		log.Fatalf("[VERSION] %d is dirty; fix the schema and force the version", version)
	default:
		log.Printf("[DONE] schema at version %d", version)
	}
}
