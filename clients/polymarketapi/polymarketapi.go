package polymarketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cescps/poly-insider/config"
	"go.uber.org/zap"
)

// PolymarketApiClient is the single point of contact with the Polymarket
// data and gamma APIs. All fetch methods tolerate upstream failure by
// returning an empty result and logging; callers never see transport errors.
type PolymarketApiClient struct {
	logger       *zap.Logger
	httpClient   *http.Client
	gammaBaseURL string
	dataBaseURL  string
}

func NewPolymarketApiClient(logger *zap.Logger, cfg *config.Config) *PolymarketApiClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PolymarketApiClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		gammaBaseURL: cfg.Polymarket.GammaAPIURL,
		dataBaseURL:  cfg.Polymarket.DataAPIURL,
	}
}

// Decimal is a float the data API encodes either as a JSON number or as a
// string-wrapped decimal ("3000"). Unparsable values decode to zero.
type Decimal float64

func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*d = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*d = 0
		return nil
	}
	*d = Decimal(f)
	return nil
}

func (d Decimal) Float64() float64 {
	return float64(d)
}

// ---- Data API types ----

// Trade represents one execution from the data API trade feed.
// Timestamp is converted from seconds to milliseconds on ingestion.
type Trade struct {
	ID              string  `json:"id"`
	TransactionHash string  `json:"transactionHash"`
	ProxyWallet     string  `json:"proxyWallet"`
	Side            string  `json:"side"` // BUY or SELL
	ConditionID     string  `json:"conditionId"`
	Asset           string  `json:"asset"`
	Size            Decimal `json:"size"`
	Price           Decimal `json:"price"`
	Timestamp       int64   `json:"timestamp"`

	// Market metadata
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	EventSlug    string `json:"eventSlug"`
	Outcome      string `json:"outcome"`
	OutcomeIndex int    `json:"outcomeIndex"`

	// User profile
	Name         string `json:"name"`
	Pseudonym    string `json:"pseudonym"`
	ProfileImage string `json:"profileImage"`

	// Older payload shapes carry these instead of the proxy wallet fields.
	Market       string `json:"market"`
	MakerAddress string `json:"maker_address"`
	TakerAddress string `json:"taker_address"`
}

// Wallet resolves the trader's address from whichever field the payload
// populated. Returns "" if none present.
func (t *Trade) Wallet() string {
	if t.ProxyWallet != "" {
		return t.ProxyWallet
	}
	if t.MakerAddress != "" {
		return t.MakerAddress
	}
	return t.TakerAddress
}

// MarketID resolves the market condition id, falling back to the legacy field.
func (t *Trade) MarketID() string {
	if t.ConditionID != "" {
		return t.ConditionID
	}
	return t.Market
}

// Notional returns the USD value of the trade (price * size).
func (t *Trade) Notional() float64 {
	return t.Price.Float64() * t.Size.Float64()
}

// ---- Gamma API types ----

// GammaMarket holds the market metadata fields the pipeline needs for
// naming and slug resolution.
type GammaMarket struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	MarketSlug  string `json:"market_slug"`
	Description string `json:"description"`
}

// GetRecentTrades fetches up to limit trades from the public feed,
// newest-first as returned by upstream, starting at offset. Timestamps are
// converted from seconds to milliseconds. Returns an empty slice on any
// transport or decode failure.
func (c *PolymarketApiClient) GetRecentTrades(ctx context.Context, limit, offset int) []Trade {
	if limit <= 0 {
		limit = 100
	}

	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		c.logger.Warn("invalid dataBaseURL", zap.Error(err))
		return nil
	}
	u.Path = "/trades"

	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	var trades []Trade
	if err := c.doGet(ctx, u.String(), &trades); err != nil {
		c.logger.Warn("failed to fetch recent trades",
			zap.Int("limit", limit),
			zap.Int("offset", offset),
			zap.Error(err),
		)
		return nil
	}

	normalizeTimestamps(trades)
	return trades
}

// GetUserTradeHistory fetches up to limit of the wallet's most recent
// trades. Same failure contract as GetRecentTrades.
func (c *PolymarketApiClient) GetUserTradeHistory(ctx context.Context, wallet string, limit int) []Trade {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil
	}
	if limit <= 0 {
		limit = 1000
	}

	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		c.logger.Warn("invalid dataBaseURL", zap.Error(err))
		return nil
	}
	u.Path = "/trades"

	q := u.Query()
	q.Set("user", wallet)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	var trades []Trade
	if err := c.doGet(ctx, u.String(), &trades); err != nil {
		c.logger.Warn("failed to fetch user trade history",
			zap.String("wallet", wallet),
			zap.Error(err),
		)
		return nil
	}

	normalizeTimestamps(trades)
	return trades
}

// GetMarket fetches metadata for a single market by condition id.
// Failures are silent: trade payloads usually carry a title already, so
// a missing market only weakens the naming fallback chain.
func (c *PolymarketApiClient) GetMarket(ctx context.Context, conditionID string) *GammaMarket {
	conditionID = strings.TrimSpace(conditionID)
	if conditionID == "" {
		return nil
	}

	u, err := url.Parse(c.gammaBaseURL)
	if err != nil {
		return nil
	}
	u.Path = fmt.Sprintf("/markets/%s", url.PathEscape(conditionID))

	var market GammaMarket
	if err := c.doGet(ctx, u.String(), &market); err != nil {
		c.logger.Debug("market lookup failed",
			zap.String("conditionID", conditionID),
			zap.Error(err),
		)
		return nil
	}

	return &market
}

// GetMarkets concurrently resolves a batch of market lookups into a map
// keyed by condition id. Entries that failed or were not found are absent.
func (c *PolymarketApiClient) GetMarkets(ctx context.Context, conditionIDs []string) map[string]*GammaMarket {
	result := make(map[string]*GammaMarket, len(conditionIDs))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range conditionIDs {
		if strings.TrimSpace(id) == "" {
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if m := c.GetMarket(ctx, id); m != nil {
				mu.Lock()
				result[id] = m
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	return result
}

// normalizeTimestamps converts second-resolution upstream timestamps to
// milliseconds in place.
func normalizeTimestamps(trades []Trade) {
	for i := range trades {
		trades[i].Timestamp *= 1000
	}
}

// doGet is a helper that performs a GET request and decodes JSON response.
func (c *PolymarketApiClient) doGet(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return nil
}
