package vision

import (
	"context"
	"fmt"
	"strings"
)

// MaxTitleLength is the marketplace's hard limit for listing titles.
const MaxTitleLength = 80

// DefaultBrand is used when the model cannot identify a manufacturer.
const DefaultBrand = "Unbranded"

// Condition is the closed set of item conditions the marketplace schema
// accepts for the listings this service creates.
type Condition string

const (
	ConditionNewOther      Condition = "NEW_OTHER"
	ConditionUsedExcellent Condition = "USED_EXCELLENT"
	ConditionUsedGood      Condition = "USED_GOOD"
)

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNewOther, ConditionUsedExcellent, ConditionUsedGood:
		return true
	}
	return false
}

// InventoryValue returns the condition as the inventory item schema spells
// it: the enumeration without separators, e.g. USED_EXCELLENT becomes
// USEDEXCELLENT. This is the remote API's literal value, not a choice.
func (c Condition) InventoryValue() string {
	return strings.ReplaceAll(string(c), "_", "")
}

// ListingDraft is the structured record extracted from a product photo.
// Created once per pipeline run and immutable afterwards, apart from
// user-authored overrides applied before the marketplace stages.
type ListingDraft struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Brand           string    `json:"brand"`
	Condition       Condition `json:"condition"`
	CategoryKeyword string    `json:"category_keyword"`
	SuggestedPrice  float64   `json:"suggested_price"`
	Currency        string    `json:"currency"`
}

// Validate checks the draft against the extraction contract. A draft that
// fails here is rejected outright; partially populated drafts never leave
// the extraction stage.
func (d *ListingDraft) Validate() error {
	if d.Title == "" {
		return fmt.Errorf("draft has no title")
	}
	if len(d.Title) > MaxTitleLength {
		return fmt.Errorf("title exceeds %d characters: %q", MaxTitleLength, d.Title)
	}
	if d.Description == "" {
		return fmt.Errorf("draft has no description")
	}
	if !d.Condition.Valid() {
		return fmt.Errorf("unknown condition %q", d.Condition)
	}
	if d.CategoryKeyword == "" {
		return fmt.Errorf("draft has no category keyword")
	}
	if d.SuggestedPrice < 0 {
		return fmt.Errorf("negative suggested price %v", d.SuggestedPrice)
	}
	return nil
}

// Usage contains token usage and cost information for a model call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// ExtractionResult contains the extracted draft and usage information.
type ExtractionResult struct {
	Draft *ListingDraft
	Usage Usage
}

// ExtractionError wraps any failure of the extraction stage: transport
// errors, malformed model output, or a draft failing validation.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return "extraction failed: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Analyzer can analyze a product image and produce a listing draft.
type Analyzer interface {
	// AnalyzeImage takes image data and returns a draft listing for it.
	AnalyzeImage(ctx context.Context, imageData []byte, mimeType string) (*ExtractionResult, error)
}
