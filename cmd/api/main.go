package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"marketplace-settlement/config"
	"marketplace-settlement/internal/adapter/gateway"
	httpHandler "marketplace-settlement/internal/adapter/http/handler"
	pgStorage "marketplace-settlement/internal/adapter/storage/postgres"
	redisStorage "marketplace-settlement/internal/adapter/storage/redis"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/internal/service"
	"marketplace-settlement/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Marketplace Settlement")

	commissionRate, err := decimal.NewFromString(cfg.Settlement.CommissionRate)
	if err != nil {
		log.Fatal().Err(err).Str("rate", cfg.Settlement.CommissionRate).Msg("Invalid commission rate")
	}

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerEntryRepo(pool)
	payoutRepo := pgStorage.NewPayoutRepo(pool)
	pinRepo := pgStorage.NewPaymentPinRepo(pool)
	installmentRepo := pgStorage.NewInstallmentRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis adapters
	settlementCache := redisStorage.NewSettlementCache(rdb)
	notifier := redisStorage.NewNotifier(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	sigSvc := service.NewHMACSignatureService(cfg.Gateway.SecretKey)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize payment gateway client
	paystack := gateway.NewPaystackGateway(
		cfg.Gateway.BaseURL,
		cfg.Gateway.SecretKey,
		cfg.Settlement.Currency,
		cfg.Gateway.CallbackURL,
		cfg.Gateway.Timeout,
		log,
	)

	// Initialize business services
	ledgerSvc := service.NewLedgerService(transactor, walletRepo, ledgerRepo, log)
	pinSvc := service.NewPinService(pinRepo, hashSvc, cfg.Withdrawal.DefaultPin, log)
	withdrawalSvc := service.NewWithdrawalService(transactor, payoutRepo, ledgerSvc, pinSvc, notifier, log)
	settlementSvc := service.NewSettlementService(
		transactor,
		installmentRepo,
		orderRepo,
		ledgerSvc,
		paystack,
		settlementCache,
		notifier,
		service.SettlementConfig{
			CommissionRate:      commissionRate,
			Currency:            cfg.Settlement.Currency,
			InstallmentInterval: cfg.Settlement.InstallmentInterval,
			GatewayTimeout:      cfg.Gateway.Timeout,
		},
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		PinSvc:         pinSvc,
		WithdrawalSvc:  withdrawalSvc,
		SettlementSvc:  settlementSvc,
		SigSvc:         sigSvc,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
