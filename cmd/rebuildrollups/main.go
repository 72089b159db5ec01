// cmd/rebuildrollups/main.go — offline analytics recovery: truncates the
// rollup buckets, replays every committed invoice in commit order and
// verifies the result. Safe to run while the server is stopped.
// Usage: go run ./cmd/rebuildrollups
package main

import (
	"context"
	"os"
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/config"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/infra"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/repository"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	invoiceRepo := repository.NewInvoiceRepository(db)
	rollupRepo := repository.NewRollupRepository(db)
	filterSvc := service.NewFilterService(repository.NewFilterRepository(db))
	analyticsSvc := service.NewAnalyticsService(invoiceRepo, rollupRepo, filterSvc)

	ctx := context.Background()
	if err := filterSvc.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load filter catalog")
	}

	resp, err := analyticsSvc.Rebuild(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("rebuild failed")
	}
	log.Info().
		Int64("invoices_replayed", resp.InvoicesReplayed).
		Int64("buckets_written", resp.BucketsWritten).
		Bool("verified", resp.Verified).
		Msg("rebuild complete")
}
