package ebay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/snapsell/photolister/internal/config"
	"github.com/snapsell/photolister/internal/vision"
)

const (
	apiCompatibilityVersion = "1.0.0"

	// minOfferPrice is the fallback when the extracted draft has no usable
	// suggested price.
	minOfferPrice    = 0.99
	fallbackCurrency = "USD"

	defaultTimeout = 30 * time.Second
)

var errTokenMissing = errors.New("eBay token is not configured")

type ClientOpts struct {
	BaseURL       string
	Token         string
	MarketplaceID string
	Timeout       time.Duration
}

// Client talks to the eBay Sell Inventory API.
type Client struct {
	httpClient    *resty.Client
	token         string
	marketplaceID string
}

func NewClient(opts ClientOpts) *Client {
	c := Client{
		token:         opts.Token,
		marketplaceID: opts.MarketplaceID,
	}
	if c.marketplaceID == "" {
		c.marketplaceID = config.DefaultMarketplaceID
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeaders(map[string]string{
			"Accept":                  "application/json",
			"X-EBAY-C-MARKETPLACE-ID": c.marketplaceID,
		})

	return &c
}

func (c *Client) req(ctx context.Context) *resty.Request {
	return c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.token)
}

type uploadResponse struct {
	FileID string `json:"fileId"`
}

// UploadMedia uploads image bytes to the media endpoint and returns the
// opaque file reference. The part is always sent as image/jpeg; callers
// normalize the image before this stage. The uploaded object is never
// deleted on later failures.
func (c *Client) UploadMedia(ctx context.Context, data []byte, name string) (string, error) {
	if c.token == "" {
		return "", &UploadError{Err: errTokenMissing}
	}

	result := &uploadResponse{}
	res, err := c.req(ctx).
		SetHeader("X-API-COMPATIBILITY-VERSION", apiCompatibilityVersion).
		SetMultipartField("file", name, "image/jpeg", bytes.NewReader(data)).
		SetResult(result).
		Post("/file")
	if err != nil {
		return "", &UploadError{Err: err}
	}
	if res.IsError() {
		return "", &UploadError{Status: res.StatusCode(), Body: string(res.Body())}
	}
	if result.FileID == "" {
		return "", &UploadError{Status: res.StatusCode(), Err: fmt.Errorf("response has no fileId")}
	}

	log.Debug().Str("fileId", result.FileID).Msg("media uploaded")
	return result.FileID, nil
}

type inventoryProduct struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Aspects     map[string][]string `json:"aspects"`
	ImageURLs   []string            `json:"imageUrls"`
}

type inventoryItemPayload struct {
	Product              inventoryProduct `json:"product"`
	Condition            string           `json:"condition"`
	ConditionDescription string           `json:"conditionDescription"`
	Group                string           `json:"group"`
}

// CreateInventoryItem generates a SKU, writes the inventory record under it
// and returns the SKU. The remote API is keyed by the caller-supplied SKU in
// the URL path; only a 204 response counts as success.
func (c *Client) CreateInventoryItem(ctx context.Context, draft *vision.ListingDraft, fileID string) (string, error) {
	if c.token == "" {
		return "", &InventoryError{Err: errTokenMissing}
	}

	sku := NewSKU()
	payload := inventoryItemPayload{
		Product: inventoryProduct{
			Title:       draft.Title,
			Description: draft.Description,
			Aspects: map[string][]string{
				"Brand":     {draft.Brand},
				"Condition": {string(draft.Condition)},
			},
			ImageURLs: []string{fileID},
		},
		// The inventory schema spells conditions without separators.
		Condition:            draft.Condition.InventoryValue(),
		ConditionDescription: "AI-generated listing for: " + draft.Title,
		Group:                "SINGLE",
	}

	res, err := c.req(ctx).
		SetHeader("Content-Language", "en-US").
		SetBody(payload).
		SetPathParam("sku", sku).
		Put("/inventory_item/{sku}")
	if err != nil {
		return "", &InventoryError{Err: err}
	}
	// The API acknowledges a write with 204 No Content and nothing else.
	// A 200 with a body means the write did not happen as requested.
	if res.StatusCode() != http.StatusNoContent {
		return "", &InventoryError{Status: res.StatusCode(), Body: string(res.Body())}
	}

	log.Debug().Str("sku", sku).Msg("inventory item created")
	return sku, nil
}

type offerPrice struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

type offerPayload struct {
	SKU             string `json:"sku"`
	MarketplaceID   string `json:"marketplaceId"`
	Format          string `json:"format"`
	Quantity        int    `json:"quantity"`
	ListingPolicies struct {
		FulfillmentPolicyID string `json:"fulfillmentPolicyId"`
		PaymentPolicyID     string `json:"paymentPolicyId"`
		ReturnPolicyID      string `json:"returnPolicyId"`
	} `json:"listingPolicies"`
	PricingSummary struct {
		Price offerPrice `json:"price"`
	} `json:"pricingSummary"`
	ListingStatus string `json:"listingStatus"`
}

type offerResponse struct {
	OfferID string `json:"offerId"`
}

// CreateOffer creates a fixed-price, quantity-one draft offer for the SKU
// and returns the offer id. The offer is always submitted in DRAFT status;
// publishing is not this system's job. Only a 201 response counts as
// success.
func (c *Client) CreateOffer(ctx context.Context, sku string, draft *vision.ListingDraft, policies config.PolicySet) (string, error) {
	if c.token == "" {
		return "", &OfferError{Err: errTokenMissing}
	}

	price := draft.SuggestedPrice
	if price <= 0 {
		price = minOfferPrice
	}
	currency := draft.Currency
	if currency == "" {
		currency = fallbackCurrency
	}

	payload := offerPayload{
		SKU:           sku,
		MarketplaceID: c.marketplaceID,
		Format:        "FIXED_PRICE",
		Quantity:      1,
		ListingStatus: "DRAFT",
	}
	payload.ListingPolicies.FulfillmentPolicyID = policies.FulfillmentID
	payload.ListingPolicies.PaymentPolicyID = policies.PaymentID
	payload.ListingPolicies.ReturnPolicyID = policies.ReturnID
	payload.PricingSummary.Price = offerPrice{Value: price, Currency: currency}

	result := &offerResponse{}
	res, err := c.req(ctx).
		SetBody(payload).
		SetResult(result).
		Post("/offer")
	if err != nil {
		return "", &OfferError{Err: err}
	}
	if res.StatusCode() != http.StatusCreated {
		return "", &OfferError{Status: res.StatusCode(), Body: string(res.Body())}
	}
	if result.OfferID == "" {
		return "", &OfferError{Status: res.StatusCode(), Err: fmt.Errorf("response has no offerId")}
	}

	log.Debug().Str("sku", sku).Str("offerId", result.OfferID).Msg("offer created")
	return result.OfferID, nil
}
