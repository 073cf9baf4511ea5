package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/api"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/catalog"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/config"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/market"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/payment"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/repository"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/service"
	"github.com/chapinin777/drkpaypal-wallet-sub000/pkg/database"
	"github.com/chapinin777/drkpaypal-wallet-sub000/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(database.Config{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSLMode,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	cat, err := catalog.Load(ctx, db)
	cancel()
	if err != nil {
		log.Fatalf("failed to load catalogs: %v", err)
	}

	walletRepo := repository.NewWalletRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	currencyRepo := repository.NewCurrencyRepository(db)
	serviceFeeRepo := repository.NewServiceFeeRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	verificationRepo := repository.NewFeeVerificationRepository(db)

	var priceCache *market.PriceCache
	if cfg.RedisAddr != "" {
		priceCache = market.NewPriceCache(cfg.RedisAddr, cfg.RedisPassword)
	}
	marketClient := market.NewClient(cfg.MarketDataURL, priceCache, log)
	processor := payment.NewProcessor(cfg.ProcessorBaseURL, cfg.ProcessorClientID, cfg.ProcessorSecret)

	feeGate := service.NewFeeGate(serviceFeeRepo, verificationRepo)
	ledger := service.NewLedgerService(
		walletRepo,
		transactionRepo,
		currencyRepo,
		serviceFeeRepo,
		preferenceRepo,
		transactionRepo,
		cat,
		marketClient,
		feeGate,
		service.Config{
			CreditRecipient:      cfg.SendCreditRecipient,
			FeeCollectionAddress: cfg.FeeCollectionAddress,
		},
		log,
	)

	handler := api.NewWalletHandler(ledger, processor, marketClient, currencyRepo, serviceFeeRepo, preferenceRepo, log)
	router := api.NewRouter(handler, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.APIPort),
		Handler: router,
	}

	go func() {
		log.Infof("server starting on port %d", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("forced shutdown: %v", err)
	}
}
