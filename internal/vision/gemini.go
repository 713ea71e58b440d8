package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const geminiModel = "gemini-3-flash-preview"

// Gemini 3.0 Flash pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.50 // $0.50 per 1M input tokens (text/image/video)
	geminiOutputPricePerMillion = 3.00 // $3.00 per 1M output tokens (including thinking)
)

const geminiPrompt = `You are an expert e-commerce product listing specialist. Analyze the provided image of a single product and generate a complete, structured draft listing.

Return ONLY a single, raw JSON object. Do not include any text before or after the JSON, and do not use Markdown fencing.

Output structure:
{
    "title": "A highly descriptive, keyword-rich title (max 80 chars)",
    "description": "A compelling, easy-to-read sales description formatted with short paragraphs or bullet points.",
    "brand": "The manufacturer name (or 'Unbranded')",
    "condition": "NEW_OTHER", "USED_EXCELLENT" or "USED_GOOD",
    "category_keyword": "2-3 keyword phrase for category search (e.g. 'Men's running shoes')",
    "suggested_price": 45.00,
    "currency": "ISO 4217 currency code, e.g. 'USD'"
}`

// GeminiAnalyzer uses Google's Gemini API for draft extraction.
type GeminiAnalyzer struct {
	client *genai.Client
}

// NewGeminiAnalyzer creates a new Gemini-based analyzer using the given API
// key.
func NewGeminiAnalyzer(ctx context.Context, apiKey string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client}, nil
}

// AnalyzeImage implements the Analyzer interface using Gemini.
func (g *GeminiAnalyzer) AnalyzeImage(ctx context.Context, imageData []byte, mimeType string) (*ExtractionResult, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(geminiPrompt),
		{InlineData: &genai.Blob{Data: imageData, MIMEType: mimeType}},
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return nil, &ExtractionError{Err: fmt.Errorf("failed to generate content: %w", err)}
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, &ExtractionError{Err: fmt.Errorf("no response from Gemini")}
	}

	text := result.Text()
	log.Info().Str("response", text).Msg("gemini vision response")

	draft, err := ParseDraft(text)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens)
	}

	return &ExtractionResult{Draft: draft, Usage: usage}, nil
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}

// ParseDraft parses the model response into a validated ListingDraft. Only
// the known markdown code-fence markers are stripped; anything else around
// the JSON object makes the response invalid. Responses that fail here are
// not retried.
func ParseDraft(text string) (*ListingDraft, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "{") {
		return nil, fmt.Errorf("response is not a JSON object: %s", text)
	}

	var draft ListingDraft
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&draft); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, text)
	}
	// Exactly one JSON object and nothing else.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing content after JSON object: %s", text)
	}

	if draft.Brand == "" {
		draft.Brand = DefaultBrand
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	return &draft, nil
}
