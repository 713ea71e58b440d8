package ebay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/snapsell/photolister/internal/config"
	"github.com/snapsell/photolister/internal/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var skuPattern = regexp.MustCompile(`^SKU-[0-9A-F]{8}$`)

func testDraft() *vision.ListingDraft {
	return &vision.ListingDraft{
		Title:           "Vintage Leather Jacket",
		Description:     "Classic brown leather jacket in excellent shape.",
		Brand:           "Unbranded",
		Condition:       vision.ConditionUsedExcellent,
		CategoryKeyword: "men's leather jacket",
		SuggestedPrice:  45.00,
		Currency:        "USD",
	}
}

func testPolicies() config.PolicySet {
	return config.PolicySet{
		FulfillmentID: "F1",
		PaymentID:     "P1",
		ReturnID:      "R1",
	}
}

func TestUploadMedia(t *testing.T) {
	var req *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		require.NoError(t, r.ParseMultipartForm(32<<20))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"fileId":"f123"}`)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, Token: "tok"})
	fileID, err := client.UploadMedia(context.Background(), []byte("jpegbytes"), "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "f123", fileID)

	assert.Equal(t, "/file", req.URL.Path)
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, "1.0.0", req.Header.Get("X-API-COMPATIBILITY-VERSION"))
	assert.Equal(t, "EBAY_US", req.Header.Get("X-EBAY-C-MARKETPLACE-ID"))

	files := req.MultipartForm.File["file"]
	require.Len(t, files, 1)
	assert.Equal(t, "photo.jpg", files[0].Filename)
	assert.Equal(t, "image/jpeg", files[0].Header.Get("Content-Type"))
}

func TestUploadMediaMissingFileID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, Token: "tok"})
	_, err := client.UploadMedia(context.Background(), []byte("jpegbytes"), "photo.jpg")

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, http.StatusOK, uploadErr.Status)
}

func TestUploadMediaServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"errors":[{"message":"Invalid access token"}]}`)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, Token: "tok"})
	_, err := client.UploadMedia(context.Background(), []byte("jpegbytes"), "photo.jpg")

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, http.StatusUnauthorized, uploadErr.Status)
	assert.Contains(t, uploadErr.Body, "Invalid access token")
}

func TestCreateInventoryItem(t *testing.T) {
	var req *http.Request
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, Token: "tok"})
	sku, err := client.CreateInventoryItem(context.Background(), testDraft(), "f123")
	require.NoError(t, err)
	assert.Regexp(t, skuPattern, sku)

	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/inventory_item/"+sku, req.URL.Path)
	assert.Equal(t, "en-US", req.Header.Get("Content-Language"))

	// The enumeration separators are removed for the top-level condition;
	// the aspect keeps the original spelling.
	assert.Equal(t, "USEDEXCELLENT", body["condition"])
	product := body["product"].(map[string]any)
	assert.Equal(t, "Vintage Leather Jacket", product["title"])
	aspects := product["aspects"].(map[string]any)
	assert.Equal(t, []any{"USED_EXCELLENT"}, aspects["Condition"])
	assert.Equal(t, []any{"Unbranded"}, aspects["Brand"])
	assert.Equal(t, []any{"f123"}, product["imageUrls"])
	assert.Equal(t, "SINGLE", body["group"])
}

func TestCreateInventoryItemNon204(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 with a body is not a recognized success signal for this call.
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"warnings":[]}`)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, Token: "tok"})
	_, err := client.CreateInventoryItem(context.Background(), testDraft(), "f123")

	var invErr *InventoryError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, http.StatusOK, invErr.Status)
}

func TestCreateOffer(t *testing.T) {
	var req *http.Request
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"offerId":"5001234567"}`)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, Token: "tok"})
	offerID, err := client.CreateOffer(context.Background(), "SKU-AB12CD34", testDraft(), testPolicies())
	require.NoError(t, err)
	assert.Equal(t, "5001234567", offerID)

	assert.Equal(t, "/offer", req.URL.Path)
	assert.Equal(t, "SKU-AB12CD34", body["sku"])
	assert.Equal(t, "EBAY_US", body["marketplaceId"])
	assert.Equal(t, "FIXED_PRICE", body["format"])
	assert.Equal(t, float64(1), body["quantity"])
	assert.Equal(t, "DRAFT", body["listingStatus"])

	policies := body["listingPolicies"].(map[string]any)
	assert.Equal(t, "F1", policies["fulfillmentPolicyId"])
	assert.Equal(t, "P1", policies["paymentPolicyId"])
	assert.Equal(t, "R1", policies["returnPolicyId"])

	price := body["pricingSummary"].(map[string]any)["price"].(map[string]any)
	assert.Equal(t, 45.00, price["value"])
	assert.Equal(t, "USD", price["currency"])
}

func TestCreateOfferPriceFallbacks(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"offerId":"5001234567"}`)
	}))
	defer ts.Close()

	draft := testDraft()
	draft.SuggestedPrice = 0
	draft.Currency = ""

	client := NewClient(ClientOpts{BaseURL: ts.URL, Token: "tok"})
	_, err := client.CreateOffer(context.Background(), "SKU-AB12CD34", draft, testPolicies())
	require.NoError(t, err)

	price := body["pricingSummary"].(map[string]any)["price"].(map[string]any)
	assert.Equal(t, 0.99, price["value"])
	assert.Equal(t, "USD", price["currency"])
}

func TestCreateOfferNon201(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"offerId":"5001234567"}`)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, Token: "tok"})
	_, err := client.CreateOffer(context.Background(), "SKU-AB12CD34", testDraft(), testPolicies())

	var offerErr *OfferError
	require.ErrorAs(t, err, &offerErr)
	assert.Equal(t, http.StatusOK, offerErr.Status)
}

func TestMissingTokenNoRequests(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	ctx := context.Background()

	_, err := client.UploadMedia(ctx, []byte("x"), "photo.jpg")
	var uploadErr *UploadError
	assert.ErrorAs(t, err, &uploadErr)

	_, err = client.CreateInventoryItem(ctx, testDraft(), "f123")
	var invErr *InventoryError
	assert.ErrorAs(t, err, &invErr)

	_, err = client.CreateOffer(ctx, "SKU-AB12CD34", testDraft(), testPolicies())
	var offerErr *OfferError
	assert.ErrorAs(t, err, &offerErr)

	assert.Equal(t, 0, calls)
}
