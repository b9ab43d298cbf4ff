// bizctl runs one-shot operator commands against the database as the system actor.
//
// Usage: go run ./cmd/bizctl <low-stock|statements|audit|export> [args]
package main

import (
	"context"
	"log"
	"os"

	"bizledger/internal/adapters/cli"
	"bizledger/internal/app"
	"bizledger/internal/cache"
	"bizledger/internal/core"
	"bizledger/internal/db"
	"bizledger/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	zlog, err := logger.New("development", level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	cogs, err := core.ParseCOGSMethod(os.Getenv("COGS_METHOD"))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	var reports *cache.Cache
	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		client, err := cache.Connect(ctx, addr)
		if err != nil {
			log.Printf("Warning: %v; continuing without report cache", err)
		} else {
			defer client.Close()
			reports = cache.New(client, 0, zlog.Named("cache"))
		}
	}

	svc := app.NewAppService(app.NewCoreServices(pool, core.SystemClock, app.Options{COGSMethod: cogs}), reports, zlog)

	if err := cli.Run(ctx, svc, core.SystemActor, os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}
