package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityweather/backend/internal/config"
	"github.com/cityweather/backend/internal/delivery/http"
	"github.com/cityweather/backend/internal/repository/postgres"
	"github.com/cityweather/backend/internal/service"
)

func main() {
	// Configuration
	cfg := config.Load()

	if cfg.IsDevelopment() {
		log.SetLevel(log.LevelDebug)
	} else {
		log.SetLevel(log.LevelInfo)
	}

	if cfg.OpenWeatherAPIKey == "" {
		log.Warn("OPENWEATHER_API_KEY is not set, the provider will reject requests")
	}

	// Dependency Injection: Repositories
	lookupRepo, closeRepo := openLookupRepository(cfg.DatabaseURL)
	defer closeRepo()

	// Dependency Injection: Services
	fetcher := service.NewFetcher(service.FetcherConfig{
		APIKey:  cfg.OpenWeatherAPIKey,
		BaseURL: cfg.OpenWeatherBaseURL,
		Timeout: cfg.UpstreamTimeout,
	})
	weatherSvc := service.NewWeatherService(fetcher, lookupRepo, cfg.DefaultCity)

	// Fiber App
	app := http.NewApp(http.AppConfig{
		WriteTimeout:  cfg.UpstreamTimeout + 5*time.Second,
		LookupTimeout: cfg.UpstreamTimeout,
		AccessLog:     true,
	}, weatherSvc)

	// Graceful shutdown
	go func() {
		log.Infof("Server starting on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	weatherSvc.WaitBackground()
	log.Info("Server exited gracefully")
}

// openLookupRepository connects the lookup log, falling back to the no-op
// repository when no database is configured or reachable
func openLookupRepository(databaseURL string) (service.LookupRepository, func()) {
	noop := func() {}
	if databaseURL == "" {
		log.Info("DATABASE_URL not set, lookup log disabled")
		return postgres.NewMockRepository(), noop
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Warnf("Could not connect to database: %v", err)
		return postgres.NewMockRepository(), noop
	}

	repo := postgres.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Warnf("Lookup log disabled: %v", err)
		pool.Close()
		return postgres.NewMockRepository(), noop
	}

	log.Info("Connected to PostgreSQL")
	return repo, pool.Close
}
