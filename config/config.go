package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Environment
	IsProd bool `json:"is_prod"`

	// Discord
	Discord DiscordConfig `json:"discord"`

	// Telegram
	Telegram TelegramConfig `json:"telegram"`

	// Trade admission filter
	Filter FilterConfig `json:"filter"`

	// Per-wallet statistics derivation
	Stats StatsConfig `json:"stats"`

	// Live poll + historical backfill
	Accumulator AccumulatorConfig `json:"accumulator"`

	// Smart trader leaderboard
	SmartTraders SmartTradersConfig `json:"smart_traders"`

	// Local trade persistence
	Storage StorageConfig `json:"storage"`

	// Polymarket API
	Polymarket PolymarketConfig `json:"polymarket"`

	// HTTP API server
	Server ServerConfig `json:"server"`
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken      string `json:"-"` // Excluded - env var only
	ProdChannelID string `json:"prod_channel_id"`
	BetaChannelID string `json:"beta_channel_id"`
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken   string `json:"-"` // Excluded - env var only
	ProdChatID string `json:"prod_chat_id"`
	BetaChatID string `json:"beta_chat_id"`
}

// FilterConfig holds the admission thresholds for the trade filter pipeline.
type FilterConfig struct {
	MaxAccountAgeDays int     `json:"max_account_age_days"` // Reject wallets older than this at trade time
	MinTradeSizeUSD   float64 `json:"min_trade_size_usd"`   // Notional floor (price * size)
	MinMarketsTraded  int     `json:"min_markets_traded"`   // Concentration band lower bound
	MaxMarketsTraded  int     `json:"max_markets_traded"`   // Concentration band upper bound
}

// StatsConfig holds configuration for wallet statistics derivation.
type StatsConfig struct {
	HistoryLimit    int           `json:"history_limit"`     // Max trades fetched per wallet history
	HistoryCacheTTL time.Duration `json:"history_cache_ttl"` // How long a fetched history stays fresh
}

// AccumulatorConfig holds live poll and historical backfill configuration.
type AccumulatorConfig struct {
	FetchLimit             int           `json:"fetch_limit"`              // Trades per upstream request
	PollInterval           time.Duration `json:"poll_interval"`            // Live poll cadence
	InitialHistoricalFetch int           `json:"initial_historical_fetch"` // Trades swept on first backfill
	ContinuationFetch      int           `json:"continuation_fetch"`       // Trades per continuation round
	MaxHistoricalFetch     int           `json:"max_historical_fetch"`     // Hard backfill ceiling
	ContinuousHistoryFetch bool          `json:"continuous_history_fetch"` // Keep backfilling after the initial sweep
	BackfillInterval       time.Duration `json:"backfill_interval"`        // Continuation cadence
	MaxDisplayTrades       int           `json:"max_display_trades"`       // Accumulated set cap
}

// SmartTradersConfig holds leaderboard configuration.
type SmartTradersConfig struct {
	ScanLimit  int `json:"scan_limit"`  // Recent trades scanned for active wallets
	MaxWallets int `json:"max_wallets"` // Wallets ranked per request
	TopN       int `json:"top_n"`       // Leaderboard size
}

// StorageConfig holds local persistence configuration.
type StorageConfig struct {
	FileName string `json:"file_name"`
}

// PolymarketConfig holds Polymarket API configuration.
type PolymarketConfig struct {
	GammaAPIURL string `json:"gamma_api_url"`
	DataAPIURL  string `json:"data_api_url"`
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		IsProd: false,
		Discord: DiscordConfig{
			ProdChannelID: "",
			BetaChannelID: "",
		},
		Telegram: TelegramConfig{
			ProdChatID: "",
			BetaChatID: "",
		},
		Filter: FilterConfig{
			MaxAccountAgeDays: 7,
			MinTradeSizeUSD:   1000.0,
			MinMarketsTraded:  1,
			MaxMarketsTraded:  10,
		},
		Stats: StatsConfig{
			HistoryLimit:    1000,
			HistoryCacheTTL: 1 * time.Minute,
		},
		Accumulator: AccumulatorConfig{
			FetchLimit:             500,
			PollInterval:           15 * time.Second,
			InitialHistoricalFetch: 20000,
			ContinuationFetch:      5000,
			MaxHistoricalFetch:     50000,
			ContinuousHistoryFetch: true,
			BackfillInterval:       30 * time.Second,
			MaxDisplayTrades:       100,
		},
		SmartTraders: SmartTradersConfig{
			ScanLimit:  1000,
			MaxWallets: 100,
			TopN:       50,
		},
		Storage: StorageConfig{
			FileName: "insider_trades.json",
		},
		Polymarket: PolymarketConfig{
			GammaAPIURL: "https://gamma-api.polymarket.com",
			DataAPIURL:  "https://data-api.polymarket.com",
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		IsProd: envBool("STAGE", "PROD"),

		Discord: DiscordConfig{
			BotToken:      envString("DISCORD_BOT_TOKEN", ""),
			ProdChannelID: envString("DISCORD_PROD_CHANNEL_ID", ""),
			BetaChannelID: envString("DISCORD_BETA_CHANNEL_ID", ""),
		},

		Telegram: TelegramConfig{
			BotToken:   envString("TELEGRAM_BOT_KEY", ""),
			ProdChatID: envString("TELEGRAM_PROD_CHAT_ID", ""),
			BetaChatID: envString("TELEGRAM_BETA_CHAT_ID", ""),
		},

		Filter: FilterConfig{
			MaxAccountAgeDays: envInt("MAX_ACCOUNT_AGE_DAYS", 7),
			MinTradeSizeUSD:   envFloat("MIN_TRADE_SIZE_USD", 1000.0),
			MinMarketsTraded:  envInt("MIN_MARKETS_TRADED", 1),
			MaxMarketsTraded:  envInt("MAX_MARKETS_TRADED", 10),
		},

		Stats: StatsConfig{
			HistoryLimit:    envInt("USER_HISTORY_LIMIT", 1000),
			HistoryCacheTTL: envDuration("USER_HISTORY_CACHE_TTL", 1*time.Minute),
		},

		Accumulator: AccumulatorConfig{
			FetchLimit:             envInt("FETCH_LIMIT", 500),
			PollInterval:           envDuration("POLLING_INTERVAL", 15*time.Second),
			InitialHistoricalFetch: envInt("INITIAL_HISTORICAL_FETCH", 20000),
			ContinuationFetch:      envInt("CONTINUATION_FETCH", 5000),
			MaxHistoricalFetch:     envInt("MAX_HISTORICAL_FETCH", 50000),
			ContinuousHistoryFetch: envBoolDefault("CONTINUOUS_HISTORY_FETCH", true),
			BackfillInterval:       envDuration("BACKFILL_INTERVAL", 30*time.Second),
			MaxDisplayTrades:       envInt("MAX_DISPLAY_TRADES", 100),
		},

		SmartTraders: SmartTradersConfig{
			ScanLimit:  envInt("SMART_TRADERS_SCAN_LIMIT", 1000),
			MaxWallets: envInt("SMART_TRADERS_MAX_WALLETS", 100),
			TopN:       envInt("SMART_TRADERS_TOP_N", 50),
		},

		Storage: StorageConfig{
			FileName: envString("TRADES_FILE_NAME", "insider_trades.json"),
		},

		Polymarket: PolymarketConfig{
			GammaAPIURL: envString("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
			DataAPIURL:  envString("POLYMARKET_DATA_API_URL", "https://data-api.polymarket.com"),
		},

		Server: ServerConfig{
			Enabled: envBoolDefault("API_SERVER_ENABLED", true),
			Port:    envInt("API_SERVER_PORT", 8080),
		},
	}
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBool(key, trueValue string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), trueValue)
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
