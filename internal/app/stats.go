package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cescps/poly-insider/clients/polymarketapi"
	"go.uber.org/zap"
)

// UserStats holds aggregate statistics computed from a wallet's trade history.
type UserStats struct {
	TotalTrades        int     `json:"totalTrades"`
	TotalVolume        float64 `json:"totalVolume"`
	TotalPnL           float64 `json:"totalPnL"`
	MarketsTraded      int     `json:"marketsTraded"`
	OpenPositions      int     `json:"openPositions"`
	OpenPositionsValue float64 `json:"openPositionsValue"`
	AccountCreated     int64   `json:"accountCreated"` // unix ms of oldest trade
	WalletName         string  `json:"walletName,omitempty"`
}

// MarketStats holds a wallet's activity within a single market.
type MarketStats struct {
	ConditionID    string  `json:"conditionId"`
	MarketName     string  `json:"marketName"`
	MarketSlug     string  `json:"marketSlug"`
	TradesInMarket int     `json:"tradesInMarket"`
	VolumeInMarket float64 `json:"volumeInMarket"`
	PnLInMarket    float64 `json:"pnlInMarket"`
	EntryPrice     float64 `json:"entryPrice,omitempty"`
	AvgPrice       float64 `json:"avgPrice,omitempty"`
}

type historyEntry struct {
	trades    []polymarketapi.Trade
	fetchedAt time.Time
}

// StatsAggregator computes per-wallet and per-market statistics from trade
// history, caching history lookups to avoid hammering the data API when the
// same wallet shows up in consecutive batches.
type StatsAggregator struct {
	logger       *zap.Logger
	apiClient    *polymarketapi.PolymarketApiClient
	historyLimit int
	cacheTTL     time.Duration

	mu    sync.RWMutex
	cache map[string]*historyEntry
}

// NewStatsAggregator creates a new aggregator with the given history fetch
// limit and cache TTL.
func NewStatsAggregator(
	logger *zap.Logger,
	apiClient *polymarketapi.PolymarketApiClient,
	historyLimit int,
	cacheTTL time.Duration,
) *StatsAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 {
		historyLimit = 1000
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	return &StatsAggregator{
		logger:       logger,
		apiClient:    apiClient,
		historyLimit: historyLimit,
		cacheTTL:     cacheTTL,
		cache:        make(map[string]*historyEntry),
	}
}

// UserHistory returns the wallet's trade history, served from cache when the
// cached copy is fresher than the TTL.
func (sa *StatsAggregator) UserHistory(ctx context.Context, wallet string) []polymarketapi.Trade {
	key := strings.ToLower(strings.TrimSpace(wallet))
	if key == "" {
		return nil
	}

	sa.mu.RLock()
	cached, ok := sa.cache[key]
	sa.mu.RUnlock()

	if ok && time.Since(cached.fetchedAt) < sa.cacheTTL {
		return cached.trades
	}

	trades := sa.apiClient.GetUserTradeHistory(ctx, wallet, sa.historyLimit)

	sa.mu.Lock()
	sa.cache[key] = &historyEntry{trades: trades, fetchedAt: time.Now()}
	sa.mu.Unlock()

	return trades
}

// CacheSize returns the number of wallets with cached history.
func (sa *StatsAggregator) CacheSize() int {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	return len(sa.cache)
}

// UserStatsFor computes aggregate statistics for a wallet. A wallet with no
// retrievable history gets zeroed stats with accountCreated set to now, so a
// freshly funded wallet and an API miss look the same to downstream filters.
func (sa *StatsAggregator) UserStatsFor(ctx context.Context, wallet string) UserStats {
	history := sa.UserHistory(ctx, wallet)
	return ComputeUserStats(history)
}

// MarketStatsFor computes a wallet's statistics within a single market.
func (sa *StatsAggregator) MarketStatsFor(ctx context.Context, wallet, conditionID string) MarketStats {
	history := sa.UserHistory(ctx, wallet)
	return ComputeMarketStats(history, conditionID)
}

// ComputeUserStats aggregates a trade history into wallet-level statistics.
func ComputeUserStats(history []polymarketapi.Trade) UserStats {
	if len(history) == 0 {
		return UserStats{
			AccountCreated: time.Now().UnixMilli(),
		}
	}

	markets := make(map[string]struct{})
	var totalVolume, totalPnL float64
	accountCreated := history[0].Timestamp
	walletName := ""

	for _, t := range history {
		if id := t.MarketID(); id != "" {
			markets[id] = struct{}{}
		}

		tradeSize := t.Notional()
		totalVolume += tradeSize
		if strings.EqualFold(t.Side, "BUY") {
			totalPnL -= tradeSize
		} else {
			totalPnL += tradeSize
		}

		if t.Timestamp < accountCreated {
			accountCreated = t.Timestamp
		}
		if walletName == "" {
			if t.Name != "" {
				walletName = t.Name
			} else if t.Pseudonym != "" {
				walletName = t.Pseudonym
			}
		}
	}

	return UserStats{
		TotalTrades:        len(history),
		TotalVolume:        totalVolume,
		TotalPnL:           totalPnL,
		MarketsTraded:      len(markets),
		OpenPositions:      len(markets),
		OpenPositionsValue: totalVolume * 0.1, // rough estimate from volume
		AccountCreated:     accountCreated,
		WalletName:         walletName,
	}
}

// ComputeMarketStats aggregates the subset of a history belonging to one
// market. History is assumed to be newest-first as the data API returns it,
// so the entry price comes from the last matching trade.
func ComputeMarketStats(history []polymarketapi.Trade, conditionID string) MarketStats {
	var inMarket []polymarketapi.Trade
	for _, t := range history {
		if t.MarketID() == conditionID {
			inMarket = append(inMarket, t)
		}
	}

	if len(inMarket) == 0 {
		return MarketStats{ConditionID: conditionID}
	}

	var volume, pnl, totalSize float64
	for _, t := range inMarket {
		tradeSize := t.Notional()
		volume += tradeSize
		totalSize += t.Size.Float64()
		if strings.EqualFold(t.Side, "BUY") {
			pnl -= tradeSize
		} else {
			pnl += tradeSize
		}
	}

	earliest := inMarket[0]
	for _, t := range inMarket {
		if t.Timestamp < earliest.Timestamp {
			earliest = t
		}
	}

	avgPrice := 0.0
	if totalSize > 0 {
		avgPrice = volume / totalSize
	}

	name := inMarket[0].Title
	if name == "" {
		name = "Market " + truncateID(conditionID, 8)
	}
	slug := inMarket[0].Slug
	if slug == "" {
		slug = inMarket[0].EventSlug
	}
	if slug == "" {
		slug = conditionID
	}

	return MarketStats{
		ConditionID:    conditionID,
		MarketName:     name,
		MarketSlug:     slug,
		TradesInMarket: len(inMarket),
		VolumeInMarket: volume,
		PnLInMarket:    pnl,
		EntryPrice:     earliest.Price.Float64(),
		AvgPrice:       avgPrice,
	}
}

func truncateID(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}
