package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/fundingbot/types"
)

// Config holds all configuration for the bot
type Config struct {
	// Telegram
	TelegramToken       string
	TelegramChatID      int64
	TelegramMinInterval time.Duration

	// Mode
	DryRun bool
	Debug  bool

	// Scheduling
	PollInterval time.Duration
	CycleTimeout time.Duration

	// Instrument symbol per venue
	LighterSymbol     string
	ExtendedSymbol    string
	HyperliquidSymbol string

	// Endpoints
	LighterURL        string
	ExtendedAPIURL    string
	HyperliquidAPIURL string
	HTTPTimeout       time.Duration

	// Hyperliquid only publishes a mid; bid/ask are mid ∓ offset
	HyperliquidMidOffset decimal.Decimal

	// Funding
	FundingPeriodsPerYear decimal.Decimal
	PeriodsPerYear        map[types.Venue]decimal.Decimal // per-venue overrides

	// Capture + OCR
	LayoutFile     string
	Layout         Layout
	ChromePath     string
	CaptureSettle  time.Duration
	CaptureTimeout time.Duration
	OCRLanguage    string
	MaxBidAskGap   decimal.Decimal
	OCRDumpDir     string

	// Comparisons, in report order
	Pairs []types.Pair

	// Logging
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
}

const defaultPairs = "lighter:extended,lighter:hyperliquid,extended:hyperliquid"

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Telegram
		TelegramToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramMinInterval: getEnvDuration("TELEGRAM_MIN_INTERVAL", time.Second),

		// Mode
		DryRun: getEnvBool("DRY_RUN", false),
		Debug:  getEnvBool("DEBUG", false),

		// Scheduling
		PollInterval: getEnvDuration("POLL_INTERVAL", 10*time.Second),
		CycleTimeout: getEnvDuration("CYCLE_TIMEOUT", 60*time.Second),

		// Symbols
		LighterSymbol:     getEnv("SYMBOL_LIGHTER", "HYPE"),
		ExtendedSymbol:    getEnv("SYMBOL_EXTENDED", "HYPE-USD"),
		HyperliquidSymbol: getEnv("SYMBOL_HYPERLIQUID", "HYPE"),

		// Endpoints
		ExtendedAPIURL:    getEnv("EXTENDED_API_URL", "https://api.extended.exchange/api/v1/info/markets"),
		HyperliquidAPIURL: getEnv("HYPERLIQUID_API_URL", "https://api.hyperliquid.xyz/info"),
		HTTPTimeout:       getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		HyperliquidMidOffset: getEnvDecimal("HYPERLIQUID_MID_OFFSET", decimal.NewFromFloat(0.01)),

		// All three venues settle hourly
		FundingPeriodsPerYear: getEnvDecimal("FUNDING_PERIODS_PER_YEAR", decimal.NewFromInt(8760)),
		PeriodsPerYear:        make(map[types.Venue]decimal.Decimal),

		// Capture + OCR
		LayoutFile:     os.Getenv("CAPTURE_LAYOUT_FILE"),
		Layout:         DefaultLayout(),
		ChromePath:     os.Getenv("CHROME_PATH"),
		CaptureSettle:  getEnvDuration("CAPTURE_SETTLE", 8*time.Second),
		CaptureTimeout: getEnvDuration("CAPTURE_TIMEOUT", 45*time.Second),
		OCRLanguage:    getEnv("OCR_LANGUAGE", "eng"),
		MaxBidAskGap:   getEnvDecimal("MAX_BID_ASK_GAP", decimal.NewFromFloat(0.1)),
		OCRDumpDir:     os.Getenv("OCR_DUMP_DIR"),

		// Logging
		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
	}

	cfg.LighterURL = getEnv("LIGHTER_URL", "https://app.lighter.xyz/trade/"+cfg.LighterSymbol)

	for _, v := range types.Venues {
		key := "FUNDING_PERIODS_PER_YEAR_" + strings.ToUpper(string(v))
		if value := os.Getenv(key); value != "" {
			d, err := decimal.NewFromString(value)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, errors.Join(types.ErrConfig, err))
			}
			cfg.PeriodsPerYear[v] = d
		}
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", errors.Join(types.ErrConfig, err))
		}
		cfg.TelegramChatID = id
	}

	pairs, err := ParsePairs(getEnv("COMPARE_PAIRS", defaultPairs))
	if err != nil {
		return nil, err
	}
	cfg.Pairs = pairs

	if cfg.LayoutFile != "" {
		layout, err := LoadLayout(cfg.LayoutFile)
		if err != nil {
			return nil, err
		}
		cfg.Layout = layout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields a running bot cannot do without
func (c *Config) Validate() error {
	var errs []error

	if !c.DryRun {
		if c.TelegramToken == "" {
			errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
		}
		if c.TelegramChatID == 0 {
			errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required"))
		}
	}
	if c.LighterSymbol == "" || c.ExtendedSymbol == "" || c.HyperliquidSymbol == "" {
		errs = append(errs, errors.New("every venue needs a symbol"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval))
	}
	if c.CycleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CYCLE_TIMEOUT must be positive, got %s", c.CycleTimeout))
	}
	if !c.FundingPeriodsPerYear.IsPositive() {
		errs = append(errs, errors.New("FUNDING_PERIODS_PER_YEAR must be positive"))
	}
	for v, d := range c.PeriodsPerYear {
		if !d.IsPositive() {
			errs = append(errs, fmt.Errorf("periods per year for %s must be positive", v))
		}
	}
	if len(c.Pairs) == 0 {
		errs = append(errs, errors.New("COMPARE_PAIRS is empty"))
	}
	if err := c.Layout.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrConfig, errors.Join(errs...))
	}
	return nil
}

// PeriodsFor returns the number of funding periods per year for a venue
func (c *Config) PeriodsFor(v types.Venue) decimal.Decimal {
	if d, ok := c.PeriodsPerYear[v]; ok {
		return d
	}
	return c.FundingPeriodsPerYear
}

// ParsePairs reads a comma separated list of "a:b" venue pairs
func ParsePairs(s string) ([]types.Pair, error) {
	var pairs []types.Pair
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		left, right, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("%w: pair %q is not venue:venue", types.ErrConfig, item)
		}
		a, err := types.ParseVenue(left)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrConfig, err)
		}
		b, err := types.ParseVenue(right)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrConfig, err)
		}
		if a == b {
			return nil, fmt.Errorf("%w: pair %q compares a venue with itself", types.ErrConfig, item)
		}
		pairs = append(pairs, types.Pair{A: a, B: b})
	}
	return pairs, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
