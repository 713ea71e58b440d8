package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snapsell/photolister/internal/config"
	"github.com/snapsell/photolister/internal/ebay"
	"github.com/snapsell/photolister/internal/pipeline"
	"github.com/snapsell/photolister/internal/server"
	"github.com/snapsell/photolister/internal/storage"
	"github.com/snapsell/photolister/internal/vision"
	"golang.org/x/sync/errgroup"
)

const logFileName = "photolister.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// JOURNAL_STREAM is set by systemd when running as a service. Skip file
	// logging under systemd (journald handles it).
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open log file")
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize run store")
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("run store initialized")

	geminiAnalyzer, err := vision.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gemini vision analyzer")
	}
	analyzer := vision.NewCachedAnalyzer(geminiAnalyzer, store)
	log.Info().Msg("gemini vision analyzer initialized with caching")

	ebayClient := ebay.NewClient(ebay.ClientOpts{
		BaseURL:       cfg.EbayBaseURL,
		Token:         cfg.EbayToken,
		MarketplaceID: cfg.MarketplaceID,
	})

	orchestrator, err := pipeline.New(cfg, analyzer, ebayClient, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize pipeline")
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(orchestrator, store).Router(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down http server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
