package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any env vars that might affect the test
	envVars := []string{
		"STAGE", "DISCORD_BOT_TOKEN", "DISCORD_PROD_CHANNEL_ID", "DISCORD_BETA_CHANNEL_ID",
		"TELEGRAM_BOT_KEY", "TELEGRAM_PROD_CHAT_ID", "TELEGRAM_BETA_CHAT_ID",
		"MAX_ACCOUNT_AGE_DAYS", "MIN_TRADE_SIZE_USD", "MIN_MARKETS_TRADED", "MAX_MARKETS_TRADED",
		"USER_HISTORY_LIMIT", "USER_HISTORY_CACHE_TTL",
		"FETCH_LIMIT", "POLLING_INTERVAL", "INITIAL_HISTORICAL_FETCH", "CONTINUATION_FETCH",
		"MAX_HISTORICAL_FETCH", "CONTINUOUS_HISTORY_FETCH", "BACKFILL_INTERVAL", "MAX_DISPLAY_TRADES",
		"SMART_TRADERS_SCAN_LIMIT", "SMART_TRADERS_MAX_WALLETS", "SMART_TRADERS_TOP_N",
		"TRADES_FILE_NAME", "POLYMARKET_GAMMA_API_URL", "POLYMARKET_DATA_API_URL",
		"API_SERVER_ENABLED", "API_SERVER_PORT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	if cfg.IsProd {
		t.Error("expected IsProd to be false by default")
	}

	if cfg.Discord.BotToken != "" {
		t.Error("expected empty bot token by default")
	}

	if cfg.Filter.MaxAccountAgeDays != 7 {
		t.Errorf("unexpected max account age: %d", cfg.Filter.MaxAccountAgeDays)
	}
	if cfg.Filter.MinTradeSizeUSD != 1000.0 {
		t.Errorf("unexpected min trade size: %f", cfg.Filter.MinTradeSizeUSD)
	}
	if cfg.Filter.MinMarketsTraded != 1 || cfg.Filter.MaxMarketsTraded != 10 {
		t.Errorf("unexpected markets band: [%d,%d]", cfg.Filter.MinMarketsTraded, cfg.Filter.MaxMarketsTraded)
	}

	if cfg.Stats.HistoryLimit != 1000 {
		t.Errorf("unexpected history limit: %d", cfg.Stats.HistoryLimit)
	}
	if cfg.Stats.HistoryCacheTTL != 1*time.Minute {
		t.Errorf("unexpected history cache TTL: %v", cfg.Stats.HistoryCacheTTL)
	}

	if cfg.Accumulator.FetchLimit != 500 {
		t.Errorf("unexpected fetch limit: %d", cfg.Accumulator.FetchLimit)
	}
	if cfg.Accumulator.PollInterval != 15*time.Second {
		t.Errorf("unexpected poll interval: %v", cfg.Accumulator.PollInterval)
	}
	if cfg.Accumulator.InitialHistoricalFetch != 20000 {
		t.Errorf("unexpected initial historical fetch: %d", cfg.Accumulator.InitialHistoricalFetch)
	}
	if cfg.Accumulator.MaxHistoricalFetch != 50000 {
		t.Errorf("unexpected max historical fetch: %d", cfg.Accumulator.MaxHistoricalFetch)
	}
	if !cfg.Accumulator.ContinuousHistoryFetch {
		t.Error("expected continuous history fetch enabled by default")
	}
	if cfg.Accumulator.BackfillInterval != 30*time.Second {
		t.Errorf("unexpected backfill interval: %v", cfg.Accumulator.BackfillInterval)
	}
	if cfg.Accumulator.MaxDisplayTrades != 100 {
		t.Errorf("unexpected display cap: %d", cfg.Accumulator.MaxDisplayTrades)
	}

	if cfg.SmartTraders.ScanLimit != 1000 || cfg.SmartTraders.MaxWallets != 100 || cfg.SmartTraders.TopN != 50 {
		t.Errorf("unexpected smart traders config: %+v", cfg.SmartTraders)
	}

	if cfg.Storage.FileName != "insider_trades.json" {
		t.Errorf("unexpected storage file name: %s", cfg.Storage.FileName)
	}

	if cfg.Polymarket.GammaAPIURL != "https://gamma-api.polymarket.com" {
		t.Errorf("unexpected gamma API URL: %s", cfg.Polymarket.GammaAPIURL)
	}
	if cfg.Polymarket.DataAPIURL != "https://data-api.polymarket.com" {
		t.Errorf("unexpected data API URL: %s", cfg.Polymarket.DataAPIURL)
	}

	if !cfg.Server.Enabled {
		t.Error("expected API server enabled by default")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("unexpected server port: %d", cfg.Server.Port)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	os.Setenv("STAGE", "PROD")
	os.Setenv("DISCORD_BOT_TOKEN", "test-token")
	os.Setenv("MAX_ACCOUNT_AGE_DAYS", "2")
	os.Setenv("MIN_TRADE_SIZE_USD", "500.5")
	os.Setenv("MAX_MARKETS_TRADED", "20")
	os.Setenv("POLLING_INTERVAL", "30s")
	os.Setenv("CONTINUOUS_HISTORY_FETCH", "false")
	os.Setenv("TRADES_FILE_NAME", "custom_trades.json")
	os.Setenv("API_SERVER_PORT", "9090")
	os.Setenv("POLYMARKET_DATA_API_URL", "https://custom-data.com")

	defer func() {
		os.Unsetenv("STAGE")
		os.Unsetenv("DISCORD_BOT_TOKEN")
		os.Unsetenv("MAX_ACCOUNT_AGE_DAYS")
		os.Unsetenv("MIN_TRADE_SIZE_USD")
		os.Unsetenv("MAX_MARKETS_TRADED")
		os.Unsetenv("POLLING_INTERVAL")
		os.Unsetenv("CONTINUOUS_HISTORY_FETCH")
		os.Unsetenv("TRADES_FILE_NAME")
		os.Unsetenv("API_SERVER_PORT")
		os.Unsetenv("POLYMARKET_DATA_API_URL")
	}()

	cfg := Load()

	if !cfg.IsProd {
		t.Error("expected IsProd to be true")
	}
	if cfg.Discord.BotToken != "test-token" {
		t.Errorf("unexpected bot token: %s", cfg.Discord.BotToken)
	}
	if cfg.Filter.MaxAccountAgeDays != 2 {
		t.Errorf("unexpected max account age: %d", cfg.Filter.MaxAccountAgeDays)
	}
	if cfg.Filter.MinTradeSizeUSD != 500.5 {
		t.Errorf("unexpected min trade size: %f", cfg.Filter.MinTradeSizeUSD)
	}
	if cfg.Filter.MaxMarketsTraded != 20 {
		t.Errorf("unexpected max markets: %d", cfg.Filter.MaxMarketsTraded)
	}
	if cfg.Accumulator.PollInterval != 30*time.Second {
		t.Errorf("unexpected poll interval: %v", cfg.Accumulator.PollInterval)
	}
	if cfg.Accumulator.ContinuousHistoryFetch {
		t.Error("expected continuous history fetch disabled")
	}
	if cfg.Storage.FileName != "custom_trades.json" {
		t.Errorf("unexpected storage file name: %s", cfg.Storage.FileName)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("unexpected port: %d", cfg.Server.Port)
	}
	if cfg.Polymarket.DataAPIURL != "https://custom-data.com" {
		t.Errorf("unexpected data API URL: %s", cfg.Polymarket.DataAPIURL)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	os.Setenv("MAX_ACCOUNT_AGE_DAYS", "not-a-number")
	os.Setenv("POLLING_INTERVAL", "soon")
	defer func() {
		os.Unsetenv("MAX_ACCOUNT_AGE_DAYS")
		os.Unsetenv("POLLING_INTERVAL")
	}()

	cfg := Load()

	if cfg.Filter.MaxAccountAgeDays != 7 {
		t.Errorf("expected default on unparsable int, got %d", cfg.Filter.MaxAccountAgeDays)
	}
	if cfg.Accumulator.PollInterval != 15*time.Second {
		t.Errorf("expected default on unparsable duration, got %v", cfg.Accumulator.PollInterval)
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults()

	if d.Filter.MaxAccountAgeDays != 7 {
		t.Errorf("unexpected max account age: %d", d.Filter.MaxAccountAgeDays)
	}
	if d.Accumulator.FetchLimit != 500 {
		t.Errorf("unexpected fetch limit: %d", d.Accumulator.FetchLimit)
	}
	if d.Accumulator.ContinuationFetch != 5000 {
		t.Errorf("unexpected continuation fetch: %d", d.Accumulator.ContinuationFetch)
	}
	if d.SmartTraders.TopN != 50 {
		t.Errorf("unexpected leaderboard size: %d", d.SmartTraders.TopN)
	}
}
