// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/demandcast/internal/api"
	"github.com/andresuchdata/demandcast/internal/cache"
	"github.com/andresuchdata/demandcast/internal/config"
	"github.com/andresuchdata/demandcast/internal/orchestrator"
	"github.com/andresuchdata/demandcast/internal/provider/postgres"
	"github.com/andresuchdata/demandcast/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	if cfg.Server.Mode == "debug" {
		logger.SetLevel("debug")
		gin.SetMode(gin.DebugMode)
	} else {
		logger.SetLevel("info")
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize market cache (noop unless enabled)
	marketCache, err := cache.NewMarketCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("market cache unavailable, falling back to noop")
		marketCache = cache.NewNoopMarketCache()
	}

	// Wire collaborators into the orchestrator
	orch := orchestrator.New(orchestrator.Deps{
		Sales:       postgres.NewSalesRepository(db),
		Catalog:     postgres.NewCatalogRepository(db.DB),
		Analytics:   postgres.NewAnalyticsRepository(db.DB),
		Competitors: postgres.NewCompetitorRepository(db.DB),
		History:     postgres.NewPriceHistoryRepository(db.DB),
		Cache:       marketCache,
	}, cfg.Forecast, cfg.Pricing)

	// Initialize HTTP server
	router := api.NewRouter(orch, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
