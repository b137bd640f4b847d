package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/api"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/config"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/database"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/ledger"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/marketdata"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/repository"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Create repositories
	transactionRepo := repository.NewTransactionRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	// Create upstream clients
	ledgerClient := ledger.NewHTTPClient(cfg.Ledger.URL, cfg.Ledger.Token)
	marketClient := marketdata.NewFinanceClient()

	// Create services
	systemService := service.NewSystemService(db)
	portfolioService := service.NewPortfolioService(
		ledgerClient,
		marketClient,
		transactionRepo,
		priceRepo,
		snapshotRepo,
		cfg.Market,
	)

	// Nightly market data refresh keeps the cache warm so a calculation
	// degrades gracefully when the live provider is unavailable.
	scheduler := cron.New()
	_, err = scheduler.AddFunc("30 22 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := portfolioService.RefreshMarketData(ctx); err != nil {
			log.Printf("Scheduled market data refresh failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule market data refresh: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(systemService, portfolioService, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
