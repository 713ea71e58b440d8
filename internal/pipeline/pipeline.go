package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snapsell/photolister/internal/config"
	"github.com/snapsell/photolister/internal/ebay"
	"github.com/snapsell/photolister/internal/storage"
	"github.com/snapsell/photolister/internal/vision"
)

// RawImage is the pipeline's input: image bytes plus their MIME type. The
// bytes are owned by the invocation and never persisted here.
type RawImage struct {
	Data     []byte
	MimeType string
}

// Overrides are user-authored edits applied to the extracted draft before
// any marketplace call, supplied by the interactive surface.
type Overrides struct {
	Title       string
	Description string
	Condition   string
}

// Stage identifies how far a pipeline run progressed.
type Stage int

const (
	StageExtracting Stage = iota + 1
	StageUploading
	StageWritingItem
	StageWritingOffer
)

func (s Stage) String() string {
	switch s {
	case StageExtracting:
		return "Extracting"
	case StageUploading:
		return "Uploading"
	case StageWritingItem:
		return "WritingItem"
	case StageWritingOffer:
		return "WritingOffer"
	}
	return "Unknown"
}

// Result is the terminal artifact of a successful run.
type Result struct {
	SKU            string  `json:"sku"`
	OfferID        string  `json:"offerId"`
	Title          string  `json:"title"`
	SuggestedPrice float64 `json:"suggestedPrice"`
	Currency       string  `json:"currency"`
	FileID         string  `json:"fileId"`
}

// StageError reports which stage failed and the underlying error. Remote
// side effects from earlier stages are never rolled back; the orphan
// accessors tell operators what already exists remotely.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// MediaUploaded reports whether a media object was created remotely before
// the failure.
func (e *StageError) MediaUploaded() bool { return e.Stage > StageUploading }

// ItemCreated reports whether an inventory item was created remotely before
// the failure.
func (e *StageError) ItemCreated() bool { return e.Stage > StageWritingItem }

// Orchestrator runs the listing-creation pipeline: extraction, media upload,
// inventory item write, offer creation, strictly in that order with each
// stage attempted exactly once. It holds no mutable state across runs, so
// concurrent invocations are independent.
type Orchestrator struct {
	analyzer vision.Analyzer
	market   ebay.ListingService
	policies config.PolicySet
	store    storage.Store
}

// New builds an Orchestrator from a validated configuration. Validation runs
// here, once, so a missing credential or policy id fails before any pipeline
// run can attempt a remote call. store may be nil to skip run logging.
func New(cfg *config.Config, analyzer vision.Analyzer, market ebay.ListingService, store storage.Store) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		analyzer: analyzer,
		market:   market,
		policies: cfg.Policies,
		store:    store,
	}, nil
}

// Run turns one product photo into a draft listing. On failure the returned
// error is a *StageError naming the failed stage; earlier stages' remote
// side effects are left in place.
func (o *Orchestrator) Run(ctx context.Context, img RawImage, overrides *Overrides) (*Result, error) {
	if err := validateOverrides(overrides); err != nil {
		return nil, err
	}

	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	extraction, err := o.analyzer.AnalyzeImage(ctx, img.Data, mimeType)
	if err != nil {
		return nil, o.fail(StageExtracting, err)
	}
	draft := *extraction.Draft
	applyOverrides(&draft, overrides)
	log.Info().
		Str("title", draft.Title).
		Str("condition", string(draft.Condition)).
		Float64("costUSD", extraction.Usage.CostUSD).
		Msg("draft extracted")

	fileID, err := o.market.UploadMedia(ctx, img.Data, uuid.NewString()+".jpg")
	if err != nil {
		return nil, o.fail(StageUploading, err)
	}

	sku, err := o.market.CreateInventoryItem(ctx, &draft, fileID)
	if err != nil {
		return nil, o.fail(StageWritingItem, err)
	}

	// The offer references exactly the SKU the inventory write acknowledged.
	offerID, err := o.market.CreateOffer(ctx, sku, &draft, o.policies)
	if err != nil {
		return nil, o.fail(StageWritingOffer, err)
	}

	result := &Result{
		SKU:            sku,
		OfferID:        offerID,
		Title:          draft.Title,
		SuggestedPrice: draft.SuggestedPrice,
		Currency:       draft.Currency,
		FileID:         fileID,
	}
	o.record(&storage.RunRecord{
		Succeeded: true,
		Stage:     "Done",
		SKU:       sku,
		OfferID:   offerID,
		Title:     draft.Title,
		Price:     draft.SuggestedPrice,
		Currency:  draft.Currency,
	})
	log.Info().Str("sku", sku).Str("offerId", offerID).Msg("draft listing created")
	return result, nil
}

func (o *Orchestrator) fail(stage Stage, err error) error {
	stageErr := &StageError{Stage: stage, Err: err}
	o.record(&storage.RunRecord{
		Stage:         stage.String(),
		Error:         err.Error(),
		MediaUploaded: stageErr.MediaUploaded(),
		ItemCreated:   stageErr.ItemCreated(),
	})
	log.Error().
		Err(err).
		Stringer("stage", stage).
		Bool("mediaUploaded", stageErr.MediaUploaded()).
		Bool("itemCreated", stageErr.ItemCreated()).
		Msg("pipeline failed")
	return stageErr
}

func (o *Orchestrator) record(rec *storage.RunRecord) {
	if o.store == nil {
		return
	}
	if err := o.store.RecordRun(rec); err != nil {
		log.Warn().Err(err).Msg("failed to record pipeline run")
	}
}

func validateOverrides(overrides *Overrides) error {
	if overrides == nil {
		return nil
	}
	if len(overrides.Title) > vision.MaxTitleLength {
		return fmt.Errorf("title override exceeds %d characters", vision.MaxTitleLength)
	}
	if overrides.Condition != "" && !vision.Condition(overrides.Condition).Valid() {
		return fmt.Errorf("invalid condition override %q", overrides.Condition)
	}
	return nil
}

func applyOverrides(draft *vision.ListingDraft, overrides *Overrides) {
	if overrides == nil {
		return
	}
	if overrides.Title != "" {
		draft.Title = overrides.Title
	}
	if overrides.Description != "" {
		draft.Description = overrides.Description
	}
	if overrides.Condition != "" {
		draft.Condition = vision.Condition(overrides.Condition)
	}
}
