package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	AppName     = "photolister"
	EnvFileName = "config.env"

	// eBay Sell Inventory API, sandbox by default. Override with EBAY_BASE_URL
	// for production or tests.
	DefaultBaseURL = "https://api.sandbox.ebay.com/sell/inventory/v1"

	DefaultMarketplaceID = "EBAY_US"
	DefaultListenAddr    = ":8080"
	DefaultDBPath        = "runs.db"
)

// placeholderPolicyIDs are the values shipped in example configs. Running
// against the sandbox with these always fails at offer creation, so treat
// them the same as missing.
var placeholderPolicyIDs = map[string]bool{
	"1234567890": true,
	"9876543210": true,
	"5432109876": true,
}

// PolicySet holds the three marketplace business policy identifiers an offer
// must reference. Read-only for the process lifetime.
type PolicySet struct {
	FulfillmentID string
	PaymentID     string
	ReturnID      string
}

// Config is everything the service needs, loaded once at startup. The
// pipeline never reads ambient globals; it gets this value explicitly.
type Config struct {
	EbayBaseURL   string
	EbayToken     string
	MarketplaceID string
	Policies      PolicySet
	GeminiAPIKey  string
	DBPath        string
	ListenAddr    string
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	configPath := filepath.Join(configBase, AppName, EnvFileName)
	_ = godotenv.Load(configPath)
}

// FromEnv builds a Config from environment variables, applying defaults for
// the optional values.
func FromEnv() *Config {
	cfg := &Config{
		EbayBaseURL:   os.Getenv("EBAY_BASE_URL"),
		EbayToken:     os.Getenv("EBAY_TOKEN"),
		MarketplaceID: os.Getenv("EBAY_MARKETPLACE_ID"),
		Policies: PolicySet{
			FulfillmentID: os.Getenv("EBAY_FULFILLMENT_POLICY_ID"),
			PaymentID:     os.Getenv("EBAY_PAYMENT_POLICY_ID"),
			ReturnID:      os.Getenv("EBAY_RETURN_POLICY_ID"),
		},
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		DBPath:       os.Getenv("PHOTOLISTER_DB_PATH"),
		ListenAddr:   os.Getenv("PHOTOLISTER_LISTEN_ADDR"),
	}
	if cfg.EbayBaseURL == "" {
		cfg.EbayBaseURL = DefaultBaseURL
	}
	if cfg.MarketplaceID == "" {
		cfg.MarketplaceID = DefaultMarketplaceID
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	return cfg
}

// MissingConfigError reports every required configuration value that is
// absent or still set to a placeholder. No remote call may be attempted
// while one of these is outstanding.
type MissingConfigError struct {
	Missing []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing required config: %s", strings.Join(e.Missing, ", "))
}

// Validate checks that every credential and policy identifier the pipeline
// needs is present. Returns a *MissingConfigError naming all missing values,
// or nil.
func (c *Config) Validate() error {
	var missing []string
	if c.EbayToken == "" {
		missing = append(missing, "EBAY_TOKEN")
	}
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.Policies.FulfillmentID == "" || placeholderPolicyIDs[c.Policies.FulfillmentID] {
		missing = append(missing, "EBAY_FULFILLMENT_POLICY_ID")
	}
	if c.Policies.PaymentID == "" || placeholderPolicyIDs[c.Policies.PaymentID] {
		missing = append(missing, "EBAY_PAYMENT_POLICY_ID")
	}
	if c.Policies.ReturnID == "" || placeholderPolicyIDs[c.Policies.ReturnID] {
		missing = append(missing, "EBAY_RETURN_POLICY_ID")
	}
	if len(missing) > 0 {
		return &MissingConfigError{Missing: missing}
	}
	return nil
}
