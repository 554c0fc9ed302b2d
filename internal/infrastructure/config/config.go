// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} expansion
//  2. Environment variables (fallback), optionally seeded from a .env file
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	if err := cfg.Validate(); err != nil {
//		return err
//	}
//	dbPath := cfg.Storage.DatabasePath
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNoSourceConfigured is returned by Validate when no order source is enabled
var ErrNoSourceConfigured = errors.New("no order source configured")

// Config represents the entire application configuration
type Config struct {
	Ledger        LedgerConfig        `yaml:"ledger"`
	Sources       SourcesConfig       `yaml:"sources"`
	Matching      MatchingConfig      `yaml:"matching"`
	Memo          MemoConfig          `yaml:"memo"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LedgerConfig holds the budgeting ledger API settings
type LedgerConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	BudgetID   string `yaml:"budget_id"`
	RateLimit  string `yaml:"rate_limit"` // minimum gap between requests, e.g. "200ms"
	MaxRetries int    `yaml:"max_retries"`
	Timeout    string `yaml:"timeout"`
}

// SourcesConfig holds order source settings
type SourcesConfig struct {
	Amazon AmazonConfig `yaml:"amazon"`
	CSV    CSVConfig    `yaml:"csv"`
}

// AmazonConfig holds Amazon order source settings
type AmazonConfig struct {
	Enabled      bool           `yaml:"enabled"`
	LookbackDays int            `yaml:"lookback_days"`
	MaxOrders    int            `yaml:"max_orders"`
	AccountName  string         `yaml:"account_name"` // scraper profile for multi-account support (optional)
	Headless     bool           `yaml:"headless"`
	OrdersFile   string         `yaml:"orders_file"` // read scraper JSON from disk instead of running the CLI
	Retailer     RetailerConfig `yaml:"retailer"`
}

// CSVConfig holds settings for an exported order CSV
type CSVConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Retailer RetailerConfig `yaml:"retailer"`
}

// RetailerConfig describes how a retailer shows up in the ledger.
// Empty lists fall back to the built-in profile for that retailer.
type RetailerConfig struct {
	Name                 string   `yaml:"name"`
	PayeeAliases         []string `yaml:"payee_aliases"`
	PayeeBlacklist       []string `yaml:"payee_blacklist"`
	SubscriptionPrefixes []string `yaml:"subscription_prefixes"`
	DecorativeSuffixes   []string `yaml:"decorative_suffixes"`
}

// MatchingConfig holds matcher tuning. Zero values use the matcher defaults.
type MatchingConfig struct {
	AmountTolerance string  `yaml:"amount_tolerance"`
	DateCeilingDays int     `yaml:"date_ceiling_days"`
	DateDecayDays   int     `yaml:"date_decay_days"`
	MinConfidence   float64 `yaml:"min_confidence"`
	GroupMaxSize    int     `yaml:"group_max_size"`
	GroupWindowDays int     `yaml:"group_window_days"`
}

// MemoConfig holds memo layout and idempotence heuristic settings
type MemoConfig struct {
	IncludeOrderLink bool     `yaml:"include_order_link"`
	MaxMemoLength    int      `yaml:"max_memo_length"`
	ExtraMarkers     []string `yaml:"extra_markers"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	// ProcessedBackend selects where processed ids live: "json" or "sqlite"
	ProcessedBackend string `yaml:"processed_backend"`
	ProcessedPath    string `yaml:"processed_path"`
}

// APIConfig holds the status API settings
type APIConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${LEDGER_TOKEN})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Ledger: LedgerConfig{
			BaseURL:    getEnv("LEDGER_BASE_URL", "https://api.ynab.com/v1"),
			APIKey:     os.Getenv("LEDGER_TOKEN"),
			BudgetID:   getEnv("LEDGER_BUDGET_ID", "last-used"),
			RateLimit:  getEnv("LEDGER_RATE_LIMIT", ""),
			MaxRetries: getEnvInt("LEDGER_MAX_RETRIES", 3),
		},
		Sources: SourcesConfig{
			Amazon: AmazonConfig{
				Enabled:      getEnvBool("AMAZON_ENABLED", true),
				LookbackDays: getEnvInt("AMAZON_LOOKBACK_DAYS", 14),
				MaxOrders:    getEnvInt("AMAZON_MAX_ORDERS", 0),
				AccountName:  getEnv("AMAZON_ACCOUNT_NAME", ""),
				OrdersFile:   getEnv("AMAZON_ORDERS_FILE", ""),
			},
			CSV: CSVConfig{
				Path:     os.Getenv("ORDERS_CSV_PATH"),
				Retailer: RetailerConfig{Name: os.Getenv("ORDERS_CSV_RETAILER")},
			},
		},
		Memo: MemoConfig{
			IncludeOrderLink: getEnvBool("MEMO_INCLUDE_ORDER_LINK", false),
		},
		Storage: StorageConfig{
			DatabasePath:     getEnv("RECONCILER_DB_PATH", "reconciler.db"),
			ProcessedBackend: getEnv("PROCESSED_BACKEND", "json"),
			ProcessedPath:    getEnv("PROCESSED_PATH", "processed_transactions.json"),
		},
		API: APIConfig{
			Addr: getEnv("API_ADDR", ":8085"),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.Sources.CSV.Enabled = cfg.Sources.CSV.Path != ""
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to
// environment variables. A .env file in the working directory is loaded
// first; variables already set in the environment win.
func LoadOrEnvWithPath(path string) *Config {
	_ = godotenv.Load()

	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate checks that the configuration can drive a reconciliation run
func (c *Config) Validate() error {
	if !c.Sources.Amazon.Enabled && !c.Sources.CSV.Enabled {
		return ErrNoSourceConfigured
	}
	if c.Sources.CSV.Enabled && c.Sources.CSV.Path == "" {
		return fmt.Errorf("csv source enabled without a path")
	}
	if c.Sources.CSV.Enabled && c.Sources.CSV.Retailer.Name == "" {
		return fmt.Errorf("csv source enabled without a retailer name")
	}
	switch c.Storage.ProcessedBackend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("unknown processed backend %q", c.Storage.ProcessedBackend)
	}
	if c.Matching.MinConfidence < 0 || c.Matching.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be within [0,1], got %v", c.Matching.MinConfidence)
	}
	if n := c.Matching.GroupMaxSize; n != 0 && (n < 2 || n > 5) {
		return fmt.Errorf("group_max_size must be within [2,5], got %d", n)
	}
	return nil
}

// applyDefaults fills values that have a sensible default when omitted
func (c *Config) applyDefaults() {
	if c.Storage.ProcessedBackend == "" {
		c.Storage.ProcessedBackend = "json"
	}
	if c.Storage.ProcessedPath == "" {
		c.Storage.ProcessedPath = "processed_transactions.json"
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "reconciler.db"
	}
	if c.Sources.Amazon.LookbackDays == 0 {
		c.Sources.Amazon.LookbackDays = 14
	}
	if c.Sources.Amazon.Retailer.Name == "" {
		c.Sources.Amazon.Retailer.Name = "Amazon"
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8085"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.Ledger.APIKey, "LEDGER_TOKEN", "YNAB_TOKEN")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	if configValue != "" {
		return configValue
	}

	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable with a fallback default
func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return result
		}
	}
	return fallback
}
