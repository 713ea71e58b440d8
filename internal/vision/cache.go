package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog/log"
	"github.com/snapsell/photolister/internal/storage"
)

// CachedAnalyzer wraps an Analyzer with SQLite caching. Resubmitting the
// same photo skips the paid model call.
type CachedAnalyzer struct {
	inner Analyzer
	store storage.Store
}

// NewCachedAnalyzer creates a cached analyzer.
func NewCachedAnalyzer(inner Analyzer, store storage.Store) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, store: store}
}

func hashImage(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// AnalyzeImage implements the Analyzer interface with caching.
func (c *CachedAnalyzer) AnalyzeImage(ctx context.Context, imageData []byte, mimeType string) (*ExtractionResult, error) {
	hash := hashImage(imageData)

	if c.store != nil {
		cached, err := c.store.GetVisionCache(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check vision cache")
		} else if cached != nil {
			log.Debug().Str("hash", hash[:16]).Msg("vision cache hit")
			return &ExtractionResult{
				Draft: &ListingDraft{
					Title:           cached.Title,
					Description:     cached.Description,
					Brand:           cached.Brand,
					Condition:       Condition(cached.Condition),
					CategoryKeyword: cached.CategoryKeyword,
					SuggestedPrice:  cached.SuggestedPrice,
					Currency:        cached.Currency,
				},
				Usage: Usage{}, // Zero usage for cached result
			}, nil
		}
	}

	result, err := c.inner.AnalyzeImage(ctx, imageData, mimeType)
	if err != nil {
		return nil, err
	}

	if c.store != nil && result.Draft != nil {
		entry := &storage.VisionCacheEntry{
			Title:           result.Draft.Title,
			Description:     result.Draft.Description,
			Brand:           result.Draft.Brand,
			Condition:       string(result.Draft.Condition),
			CategoryKeyword: result.Draft.CategoryKeyword,
			SuggestedPrice:  result.Draft.SuggestedPrice,
			Currency:        result.Draft.Currency,
		}
		if err := c.store.SetVisionCache(hash, entry); err != nil {
			log.Warn().Err(err).Msg("failed to cache vision result")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("cached vision result")
		}
	}

	return result, nil
}
