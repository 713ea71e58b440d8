package ebay

import (
	"context"

	"github.com/snapsell/photolister/internal/config"
	"github.com/snapsell/photolister/internal/vision"
)

// ListingService abstracts the marketplace listing-creation operations.
// This interface allows for easy mocking in tests.
type ListingService interface {
	// UploadMedia uploads image bytes and returns the opaque file reference.
	UploadMedia(ctx context.Context, data []byte, name string) (string, error)

	// CreateInventoryItem writes an inventory record under a freshly
	// generated SKU and returns that SKU.
	CreateInventoryItem(ctx context.Context, draft *vision.ListingDraft, fileID string) (string, error)

	// CreateOffer creates a priced draft offer for the SKU and returns the
	// offer id.
	CreateOffer(ctx context.Context, sku string, draft *vision.ListingDraft, policies config.PolicySet) (string, error)
}

// Ensure Client implements ListingService
var _ ListingService = (*Client)(nil)
