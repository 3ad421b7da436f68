package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rr4180885/myshop2/internal/cache"
	"github.com/rr4180885/myshop2/internal/config"
	"github.com/rr4180885/myshop2/internal/events"
	"github.com/rr4180885/myshop2/internal/httpapi"
	"github.com/rr4180885/myshop2/internal/service"
	"github.com/rr4180885/myshop2/internal/store"
	"github.com/rr4180885/myshop2/internal/store/memory"
	pgstore "github.com/rr4180885/myshop2/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	loc, err := cfg.Location()
	if err != nil {
		log.Printf("timezone: %v, using UTC", err)
	}

	var repo store.Repository
	closers := make([]func() error, 0, 3)
	seedAdmin := false

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatalf("postgres migrate: %v", err)
		}
		seeded, err := pg.SeedProducts(ctx)
		if err != nil {
			log.Fatalf("postgres seed: %v", err)
		}
		if seeded > 0 {
			log.Printf("seeded %d default products", seeded)
		}
		repo = pg
		closers = append(closers, pg.Close)
		seedAdmin = true
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	listCache := cache.ListCache(cache.NoopListCache{})
	revoker := cache.SessionRevoker(cache.NewMemoryRevoker())
	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		redisCache := cache.NewRedisListCache(client)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache and in-process session revocation", err)
			_ = client.Close()
		} else {
			listCache = redisCache
			revoker = cache.NewRedisRevoker(client)
			closers = append(closers, client.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	publisher := events.Publisher(events.NoopPublisher{})
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = kafkaPublisher
		closers = append(closers, kafkaPublisher.Close)
		log.Printf("events: kafka topic=%s brokers=%v", cfg.KafkaTopic, cfg.KafkaBrokers)
	} else {
		log.Println("events: disabled")
	}

	svc := service.New(repo, service.Options{
		Cache:             listCache,
		CacheTTL:          cfg.CacheTTL(),
		Events:            publisher,
		LowStockThreshold: cfg.LowStockThreshold,
		Location:          loc,
	})

	if seedAdmin {
		if err := ensureAdmin(ctx, svc); err != nil {
			log.Fatalf("admin bootstrap: %v", err)
		}
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.SessionTTL(), cfg.CookieSecure, repo, revoker)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("shop backend listening on %s (timezone %s)", cfg.Address(), svc.Location())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// ensureAdmin gives a fresh database its first login.
func ensureAdmin(ctx context.Context, svc *service.Service) error {
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}
	created, err := svc.EnsureAdmin(ctx, password)
	if err != nil {
		return err
	}
	if created && os.Getenv("SEED_ADMIN_PASSWORD") == "" {
		log.Println("WARNING: admin created with default dev credentials. Change it with `shopctl passwd admin`.")
	}
	return nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AllowedOrigin == "*" && cfg.CookieSecure {
		return fmt.Errorf("ALLOWED_ORIGIN must name a single origin when COOKIE_SECURE is enabled")
	}
	return nil
}
