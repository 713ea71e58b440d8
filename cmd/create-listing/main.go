package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snapsell/photolister/internal/config"
	"github.com/snapsell/photolister/internal/ebay"
	"github.com/snapsell/photolister/internal/pipeline"
	"github.com/snapsell/photolister/internal/storage"
	"github.com/snapsell/photolister/internal/vision"
	"golang.org/x/sync/errgroup"
)

// Drafts more than a few listings at once and the sandbox starts throttling.
const maxConcurrent = 3

var usage = strings.TrimSpace(dedent.Dedent(`
	usage: create-listing <image.jpg> [image.jpg ...]

	Creates a draft marketplace listing for each product photo: the image is
	analyzed with Gemini, uploaded to eBay, and turned into an inventory item
	plus a draft offer. Nothing is published.

	Required environment variables:
	  EBAY_TOKEN                  eBay bearer token
	  EBAY_FULFILLMENT_POLICY_ID  business policy identifiers
	  EBAY_PAYMENT_POLICY_ID
	  EBAY_RETURN_POLICY_ID
	  GEMINI_API_KEY              Gemini API key
`))

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	paths := os.Args[1:]

	config.LoadEnvFile()
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize run store")
	}
	defer store.Close()

	geminiAnalyzer, err := vision.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gemini vision analyzer")
	}
	analyzer := vision.NewCachedAnalyzer(geminiAnalyzer, store)

	ebayClient := ebay.NewClient(ebay.ClientOpts{
		BaseURL:       cfg.EbayBaseURL,
		Token:         cfg.EbayToken,
		MarketplaceID: cfg.MarketplaceID,
	})

	orchestrator, err := pipeline.New(cfg, analyzer, ebayClient, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize pipeline")
	}

	var mu sync.Mutex
	failed := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				log.Error().Err(err).Str("file", path).Msg("failed to read image")
				return nil
			}

			result, err := orchestrator.Run(ctx, pipeline.RawImage{Data: data, MimeType: "image/jpeg"}, nil)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()

				var stageErr *pipeline.StageError
				if errors.As(err, &stageErr) {
					log.Error().
						Err(stageErr.Err).
						Str("file", path).
						Stringer("stage", stageErr.Stage).
						Bool("mediaUploaded", stageErr.MediaUploaded()).
						Bool("itemCreated", stageErr.ItemCreated()).
						Msg("listing failed")
				} else {
					log.Error().Err(err).Str("file", path).Msg("listing failed")
				}
				return nil
			}

			fmt.Printf("%s: sku=%s offer=%s %q %.2f %s\n",
				path, result.SKU, result.OfferID, result.Title,
				result.SuggestedPrice, result.Currency)
			return nil
		})
	}

	_ = g.Wait()

	if failed > 0 {
		log.Error().Int("failed", failed).Int("total", len(paths)).Msg("some listings failed")
		os.Exit(1)
	}
}
