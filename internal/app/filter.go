package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cescps/poly-insider/clients/polymarketapi"
	"github.com/cescps/poly-insider/config"
	"go.uber.org/zap"
)

const msPerDay = 24 * 60 * 60 * 1000

// FilteredTrade is a trade that survived the insider filter, enriched with
// the wallet and market statistics that justified keeping it.
type FilteredTrade struct {
	ID                         string  `json:"id"`
	Wallet                     string  `json:"wallet"`
	WalletName                 string  `json:"walletName,omitempty"`
	Size                       float64 `json:"size"` // USD notional
	Side                       string  `json:"side"`
	Outcome                    string  `json:"outcome"`
	MarketName                 string  `json:"marketName"`
	MarketSlug                 string  `json:"marketSlug"`
	Timestamp                  int64   `json:"timestamp"` // unix ms
	Price                      float64 `json:"price"`
	EntryPrice                 float64 `json:"entryPrice,omitempty"`
	AvgPrice                   float64 `json:"avgPrice,omitempty"`
	MarketTrades               int     `json:"marketTrades"`
	MarketVolume               float64 `json:"marketVolume"`
	VolumeConcentration        float64 `json:"volumeConcentration"`
	MarketPnL                  float64 `json:"marketPnL"`
	TotalTrades                int     `json:"totalTrades"`
	TradeConcentration         float64 `json:"tradeConcentration"`
	OpenPositions              int     `json:"openPositions"`
	OpenPositionsValue         float64 `json:"openPositionsValue"`
	TotalPnL                   float64 `json:"totalPnL"`
	TotalVolume                float64 `json:"totalVolume"`
	WalletAge                  float64 `json:"walletAge"`                  // days
	WalletCreationToTradeDelta float64 `json:"walletCreationToTradeDelta"` // days
}

// FilterPipeline screens raw trades down to those placed by fresh, focused
// wallets making outsized bets.
type FilterPipeline struct {
	logger    *zap.Logger
	apiClient *polymarketapi.PolymarketApiClient
	stats     *StatsAggregator
	cfg       config.FilterConfig
}

// NewFilterPipeline creates a new filter pipeline.
func NewFilterPipeline(
	logger *zap.Logger,
	apiClient *polymarketapi.PolymarketApiClient,
	stats *StatsAggregator,
	cfg config.FilterConfig,
) *FilterPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FilterPipeline{
		logger:    logger,
		apiClient: apiClient,
		stats:     stats,
		cfg:       cfg,
	}
}

// candidate holds a trade that passed the per-trade checks, pending market
// metadata enrichment.
type candidate struct {
	trade    polymarketapi.Trade
	filtered FilteredTrade
	marketID string
	mktStats MarketStats
}

// Filter runs every trade through the screening checks concurrently and
// returns the survivors sorted newest first.
func (fp *FilterPipeline) Filter(ctx context.Context, trades []polymarketapi.Trade) []FilteredTrade {
	if len(trades) == 0 {
		return []FilteredTrade{}
	}

	nowMs := timeNowMs()

	results := make([]*candidate, len(trades))
	var wg sync.WaitGroup
	for i, trade := range trades {
		wg.Add(1)
		go func(i int, trade polymarketapi.Trade) {
			defer wg.Done()
			results[i] = fp.screen(ctx, trade, nowMs)
		}(i, trade)
	}
	wg.Wait()

	kept := make([]*candidate, 0, len(trades))
	for _, c := range results {
		if c != nil {
			kept = append(kept, c)
		}
	}

	fp.enrichMarkets(ctx, kept)

	filtered := make([]FilteredTrade, 0, len(kept))
	for _, c := range kept {
		filtered = append(filtered, c.filtered)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp > filtered[j].Timestamp
	})

	fp.logger.Debug("filtered trade batch",
		zap.Int("in", len(trades)),
		zap.Int("out", len(filtered)),
	)

	return filtered
}

// screen runs the per-trade checks cheapest first. Returns nil when the
// trade fails any check.
func (fp *FilterPipeline) screen(ctx context.Context, trade polymarketapi.Trade, nowMs int64) *candidate {
	tradeSize := trade.Notional()
	if tradeSize < fp.cfg.MinTradeSizeUSD {
		return nil
	}

	wallet := trade.Wallet()
	if wallet == "" {
		return nil
	}

	userStats := fp.stats.UserStatsFor(ctx, wallet)

	accountAgeAtTrade := trade.Timestamp - userStats.AccountCreated
	maxAgeMs := int64(fp.cfg.MaxAccountAgeDays) * msPerDay
	if accountAgeAtTrade > maxAgeMs {
		return nil
	}

	if userStats.MarketsTraded < fp.cfg.MinMarketsTraded || userStats.MarketsTraded > fp.cfg.MaxMarketsTraded {
		return nil
	}

	marketID := trade.MarketID()
	mktStats := fp.stats.MarketStatsFor(ctx, wallet, marketID)

	volumeConcentration := 0.0
	if userStats.TotalVolume > 0 {
		volumeConcentration = mktStats.VolumeInMarket / userStats.TotalVolume * 100
	}
	tradeConcentration := 0.0
	if userStats.TotalTrades > 0 {
		tradeConcentration = float64(mktStats.TradesInMarket) / float64(userStats.TotalTrades) * 100
	}

	walletAge := 0.0
	if userStats.AccountCreated > 0 {
		walletAge = float64(nowMs-userStats.AccountCreated) / msPerDay
	}
	creationToTrade := 0.0
	if accountAgeAtTrade >= 0 {
		creationToTrade = float64(accountAgeAtTrade) / msPerDay
	}

	id := trade.TransactionHash
	if id == "" {
		id = trade.ID
	}
	if id == "" {
		id = fmt.Sprintf("%s-%d", wallet, trade.Timestamp)
	}

	outcome := trade.Outcome
	if outcome == "" {
		outcome = "Unknown"
	}

	return &candidate{
		trade:    trade,
		marketID: marketID,
		mktStats: mktStats,
		filtered: FilteredTrade{
			ID:                         id,
			Wallet:                     strings.ToLower(strings.TrimSpace(wallet)),
			WalletName:                 userStats.WalletName,
			Size:                       tradeSize,
			Side:                       trade.Side,
			Outcome:                    outcome,
			Timestamp:                  trade.Timestamp,
			Price:                      trade.Price.Float64(),
			EntryPrice:                 mktStats.EntryPrice,
			AvgPrice:                   mktStats.AvgPrice,
			MarketTrades:               mktStats.TradesInMarket,
			MarketVolume:               mktStats.VolumeInMarket,
			VolumeConcentration:        volumeConcentration,
			MarketPnL:                  mktStats.PnLInMarket,
			TotalTrades:                userStats.TotalTrades,
			TradeConcentration:         tradeConcentration,
			OpenPositions:              userStats.OpenPositions,
			OpenPositionsValue:         userStats.OpenPositionsValue,
			TotalPnL:                   userStats.TotalPnL,
			TotalVolume:                userStats.TotalVolume,
			WalletAge:                  walletAge,
			WalletCreationToTradeDelta: creationToTrade,
		},
	}
}

// enrichMarkets batch-fetches gamma metadata for the survivors' markets and
// fills in display names and slugs with a chain of fallbacks.
func (fp *FilterPipeline) enrichMarkets(ctx context.Context, kept []*candidate) {
	ids := make(map[string]struct{})
	for _, c := range kept {
		if c.marketID != "" {
			ids[c.marketID] = struct{}{}
		}
	}
	idList := make([]string, 0, len(ids))
	for id := range ids {
		idList = append(idList, id)
	}

	var markets map[string]*polymarketapi.GammaMarket
	if len(idList) > 0 && fp.apiClient != nil {
		markets = fp.apiClient.GetMarkets(ctx, idList)
	}

	for _, c := range kept {
		market := markets[c.marketID]

		name := firstNonEmpty(
			c.trade.Title,
			gammaQuestion(market),
			gammaTitle(market),
			c.mktStats.MarketName,
		)
		if name == "" {
			name = "Market " + truncateID(c.marketID, 8) + "..."
		}

		slug := firstNonEmpty(
			c.trade.EventSlug,
			c.trade.Slug,
			gammaMarketSlug(market),
			gammaSlug(market),
			c.mktStats.MarketSlug,
		)
		if slug == "" {
			slug = c.marketID
		}

		c.filtered.MarketName = name
		c.filtered.MarketSlug = slug
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func gammaQuestion(m *polymarketapi.GammaMarket) string {
	if m == nil {
		return ""
	}
	return m.Question
}

func gammaTitle(m *polymarketapi.GammaMarket) string {
	if m == nil {
		return ""
	}
	return m.Title
}

func gammaMarketSlug(m *polymarketapi.GammaMarket) string {
	if m == nil {
		return ""
	}
	return m.MarketSlug
}

func gammaSlug(m *polymarketapi.GammaMarket) string {
	if m == nil {
		return ""
	}
	return m.Slug
}
