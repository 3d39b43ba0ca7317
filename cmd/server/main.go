package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/OpenCCD/archive/internal/auth"
	"github.com/OpenCCD/archive/internal/config"
	"github.com/OpenCCD/archive/internal/database"
	"github.com/OpenCCD/archive/internal/declaration/export"
	"github.com/OpenCCD/archive/internal/declaration/mapper"
	"github.com/OpenCCD/archive/internal/declaration/router"
	"github.com/OpenCCD/archive/internal/declaration/service"
	"github.com/OpenCCD/archive/internal/declaration/stats"
	"github.com/OpenCCD/archive/internal/exportstore"
	"github.com/OpenCCD/archive/internal/middleware"
	"github.com/OpenCCD/archive/internal/rates"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.Info("configuration loaded successfully",
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"db_sslmode", cfg.Database.SSLMode,
	)

	slog.Info("server configuration",
		"port", cfg.Server.Port,
		"export_archive", cfg.Export.ArchiveEnabled,
		"export_fetch_concurrency", cfg.Export.FetchConcurrency,
	)

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database schema: %v", err)
	}

	rateService := rates.NewWithClient(
		&http.Client{Timeout: time.Duration(cfg.Rates.TimeoutSeconds) * time.Second},
		cfg.Rates.BaseURL,
	)

	declMapper := mapper.XML61{}
	declarations := service.NewDeclarationService(db)
	generator := &export.Generator{Mapper: declMapper, Rates: rateService}
	aggregator := stats.New(declMapper, time.Duration(cfg.Stats.CacheTTLSeconds)*time.Second)

	authService := auth.NewAuthService(db)

	declRouter := router.NewDeclarationRouter(declarations, aggregator, generator).
		WithFetchConcurrency(cfg.Export.FetchConcurrency)
	if cfg.Export.ArchiveEnabled {
		driver, err := exportstore.NewDriverFromConfig(context.Background(), cfg.Storage)
		if err != nil {
			log.Fatalf("failed to initialize export storage: %v", err)
		}
		declRouter.WithArchiver(exportstore.NewService(driver))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(db); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Register(mux, declRouter, auth.RequireAuth(authService))

	handler := middleware.CORS(&cfg.CORS)(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	slog.Info("server stopped")
}
