package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"demo-trading-go/internal/auth"
	"demo-trading-go/internal/config"
	"demo-trading-go/internal/database"
	"demo-trading-go/internal/ledger"
	"demo-trading-go/internal/logger"
	"demo-trading-go/internal/pricing"
	"demo-trading-go/internal/trader"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Price sources: class router wrapped so every cataloged asset
	// always resolves to a price.
	router := pricing.NewRouter(&cfg.Pricing, log.Named("pricing"))
	prices := pricing.NewFallbackSource(router, log.Named("pricing"))

	// Core services
	ledg := ledger.New(db, log.Named("ledger"))
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	controller := trader.NewController(cfg.Trading, ledg, prices, db, rng, log.Named("controller"))
	markets := trader.NewMarkets(prices, router.Commodities,
		time.Duration(cfg.Trading.MarketRefreshInterval)*time.Second, log.Named("markets"))
	authService := auth.NewService(db, cfg.Trading.StartingBalance, log.Named("auth"))

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start the API server and run the lifecycle engine
	engine := trader.NewEngine(cfg.Trading, controller, markets, log.Named("engine"))
	api := trader.NewAPIServer(cfg.Server.Port, engine, controller, markets, authService, log)
	api.Start()

	engine.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
