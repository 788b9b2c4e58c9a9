// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/transitdash/testresults/internal/aggregate"
	"github.com/transitdash/testresults/internal/config"
	"github.com/transitdash/testresults/internal/ingest"
	"github.com/transitdash/testresults/internal/logging"
	"github.com/transitdash/testresults/internal/persistence/postgres"
	"github.com/transitdash/testresults/internal/repository"
	"github.com/transitdash/testresults/internal/storage"
	httptransport "github.com/transitdash/testresults/internal/transport/http"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	logger := logging.NewLogger(cfg.Env)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool, logger); err != nil {
			log.Fatalf("schema bootstrap failed: %v", err)
		}
	}

	artifacts, err := storage.NewArtifactStore(cfg.UploadDir, logger)
	if err != nil {
		log.Fatalf("artifact store init failed: %v", err)
	}

	runRepo := repository.NewTestRunRepository(pool, logger)
	catalogRepo := repository.NewCatalogRepository(pool, logger)

	processor := ingest.NewService(runRepo, catalogRepo, artifacts, logger)
	reader := aggregate.NewEngine(runRepo, logger)

	handler := httptransport.NewRouter(httptransport.Deps{
		Processor:        processor,
		Reader:           reader,
		Schema:           postgres.NewSchemaHealthChecker(pool),
		Logger:           logger,
		IngestRatePerMin: cfg.IngestRatePerMin,
		Version:          Version,
		Commit:           Commit,
		BuildDate:        BuildDate,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api listening",
			"addr", cfg.HTTPAddr,
			"version", Version,
			"commit", Commit,
			"build_date", BuildDate,
		)

		if err := srv.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
}
