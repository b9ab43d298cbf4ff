package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	webAdapter "bizledger/internal/adapters/web"
	"bizledger/internal/app"
	"bizledger/internal/cache"
	"bizledger/internal/core"
	"bizledger/internal/db"
	"bizledger/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	zlog, err := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(zlog); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}

func run(zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return errors.New("JWT_SECRET environment variable not set")
	}

	cogs, err := core.ParseCOGSMethod(os.Getenv("COGS_METHOD"))
	if err != nil {
		return err
	}
	opts := app.Options{
		COGSMethod:     cogs,
		VoidWindowDays: envInt("SALE_VOID_WINDOW_DAYS", 0),
	}

	pool, err := db.NewPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	var reports *cache.Cache
	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		client, err := cache.Connect(ctx, addr)
		if err != nil {
			return err
		}
		defer client.Close()
		ttl := time.Duration(envInt("REPORT_CACHE_TTL", 60)) * time.Second
		reports = cache.New(client, ttl, zlog.Named("cache"))
		zlog.Info("report cache enabled", zap.String("redis", addr), zap.Duration("ttl", ttl))
	} else {
		zlog.Warn("REDIS_ADDRESS is not set; report cache and sale events disabled")
	}

	svc := app.NewAppService(app.NewCoreServices(pool, core.SystemClock, opts), reports, zlog.Named("app"))

	rate := os.Getenv("RATE_LIMIT")
	if rate == "" {
		rate = "300-M"
	}
	handler, err := webAdapter.NewHandler(svc, webAdapter.Config{
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		JWTSecret:      jwtSecret,
		RateLimit:      rate,
		SecureCookies:  os.Getenv("APP_ENV") != "development",
		Ping:           pool.Ping,
	}, zlog.Named("http"))
	if err != nil {
		return err
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("addr", srv.Addr), zap.String("cogs_method", string(cogs)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
