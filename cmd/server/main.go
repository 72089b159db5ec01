package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/config"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/infra"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/router"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	deltaRepo := repository.NewInventoryDeltaRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	rollupRepo := repository.NewRollupRepository(db)
	filterRepo := repository.NewFilterRepository(db)
	userRepo := repository.NewUserRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	dispatcher := worker.NewDispatcher(rdb)

	ledgerSvc := service.NewLedgerService(productRepo, deltaRepo, time.Duration(cfg.ReservationTTLSeconds)*time.Second)
	catalogSvc := service.NewCatalogService(productRepo, ledgerSvc, rdb)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, catalogSvc, ledgerSvc, dispatcher)
	inventorySvc := service.NewInventoryService(ledgerSvc, productRepo, deltaRepo)
	filterSvc := service.NewFilterService(filterRepo)
	analyticsSvc := service.NewAnalyticsService(invoiceRepo, rollupRepo, filterSvc)
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret,
		time.Duration(cfg.JWTExpirationHours)*time.Hour,
		time.Duration(cfg.JWTRefreshHours)*time.Hour)

	// Hydrate the filter catalog and start the reservation sweeper.
	if err := filterSvc.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load filter catalog")
	}
	ledgerSvc.Start(ctx)

	// ── Workers ──────────────────────────────────────────────────────────────
	mailer := infra.NewMailer(cfg)
	smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, worker.Handlers{
		Rollup:  worker.NewRollupWorker(analyticsSvc),
		Receipt: worker.NewReceiptWorker(invoiceRepo, dispatcher, cfg.ReceiptStoragePath, cfg.StoreName),
		Email:   worker.NewEmailWorker(mailer, smtpCB),
	})
	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		Invoices:  invoiceRepo,
		Analytics: analyticsSvc,
		RDB:       rdb,
	})

	r := router.New(cfg, db, rdb, router.Services{
		Auth:      authSvc,
		Catalog:   catalogSvc,
		Invoice:   invoiceSvc,
		Inventory: inventorySvc,
		Analytics: analyticsSvc,
		Filters:   filterSvc,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("%s backend listening on :%d", cfg.StoreName, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
