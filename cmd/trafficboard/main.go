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
	"gorm.io/gorm/logger"

	"github.com/mbda/trafficboard/internal/analytics"
	"github.com/mbda/trafficboard/internal/config"
	"github.com/mbda/trafficboard/internal/database"
	"github.com/mbda/trafficboard/internal/handlers"
	"github.com/mbda/trafficboard/internal/middleware"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting TrafficBoard...")

	// The gate has no default PIN on purpose
	if cfg.AccessPIN == "" {
		log.Fatalf("ACCESS_PIN is not set")
	}

	pinHash, err := middleware.HashPIN(cfg.AccessPIN)
	if err != nil {
		log.Fatalf("Failed to hash access PIN: %v", err)
	}

	pinGate := middleware.NewPinAuthMiddleware(&middleware.PinAuthConfig{
		Enabled:      true,
		PINHash:      pinHash,
		CookieSecret: cfg.CookieSecret,
		ExpiryHours:  cfg.PINExpiryHours,
		SkipPaths: []string{
			"/healthz",
			"/pin",
			"/auth/*",
		},
	})
	log.Printf("PIN access gate enabled (cookie expiry: %dh)", cfg.PINExpiryHours)

	// Initialize database connection
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run database migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Analytics service computes all dashboard aggregates
	analyticsService := analytics.NewService(database.GetDB(), cfg.Location())
	log.Printf("Analytics service initialized (business time zone: %s)", cfg.BusinessTimezone)

	// Set up HTTP server routes
	mux := http.NewServeMux()
	handlers.NewHealthHandler().SetupRoutes(mux)
	handlers.NewAuthHandler(pinGate).SetupRoutes(mux)
	handlers.NewAnalyticsHandler(analyticsService).SetupRoutes(mux)
	handlers.NewRecordsHandler(analyticsService, database.GetDB()).SetupRoutes(mux)
	handlers.NewExportHandler(analyticsService).SetupRoutes(mux)

	// Request ID first, then CORS, then the access gate
	corsMiddleware := middleware.NewCORSMiddleware(cfg.AllowedOrigins...)
	handler := middleware.RequestIDMiddleware(corsMiddleware.Wrap(pinGate.Wrap(mux)))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Printf("Dashboard API: http://localhost:%d/api/analytics", cfg.HTTPPort)
	log.Printf("Health check endpoint: http://localhost:%d/healthz", cfg.HTTPPort)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}
