package app

import (
	"context"
	"sort"
	"sync"

	"github.com/cescps/poly-insider/clients/polymarketapi"
	"github.com/cescps/poly-insider/config"
	"go.uber.org/zap"
)

// SmartTrader is a wallet ranked by realized profitability.
type SmartTrader struct {
	Wallet             string  `json:"wallet"`
	WalletName         string  `json:"walletName,omitempty"`
	TotalPnL           float64 `json:"totalPnL"`
	TotalVolume        float64 `json:"totalVolume"`
	TotalTrades        int     `json:"totalTrades"`
	MarketsTraded      int     `json:"marketsTraded"`
	WinRate            float64 `json:"winRate"`
	AvgTradeSize       float64 `json:"avgTradeSize"`
	OpenPositionsValue float64 `json:"openPositionsValue"`
	AccountAge         float64 `json:"accountAge"` // days
}

// SmartTraderRanker builds a leaderboard of the most profitable wallets seen
// in the recent feed.
type SmartTraderRanker struct {
	logger    *zap.Logger
	apiClient *polymarketapi.PolymarketApiClient
	stats     *StatsAggregator
	cfg       config.SmartTradersConfig
}

// NewSmartTraderRanker creates a new ranker.
func NewSmartTraderRanker(
	logger *zap.Logger,
	apiClient *polymarketapi.PolymarketApiClient,
	stats *StatsAggregator,
	cfg config.SmartTradersConfig,
) *SmartTraderRanker {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SmartTraderRanker{
		logger:    logger,
		apiClient: apiClient,
		stats:     stats,
		cfg:       cfg,
	}
}

// Rank scans the recent feed for active wallets, computes stats for each,
// and returns the top profitable ones sorted by PnL.
func (sr *SmartTraderRanker) Rank(ctx context.Context) []SmartTrader {
	raw := sr.apiClient.GetRecentTrades(ctx, sr.cfg.ScanLimit, 0)

	seen := make(map[string]struct{})
	var wallets []string
	for _, t := range raw {
		w := t.Wallet()
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		wallets = append(wallets, w)
		if sr.cfg.MaxWallets > 0 && len(wallets) >= sr.cfg.MaxWallets {
			break
		}
	}

	nowMs := timeNowMs()

	results := make([]*SmartTrader, len(wallets))
	var wg sync.WaitGroup
	for i, wallet := range wallets {
		wg.Add(1)
		go func(i int, wallet string) {
			defer wg.Done()
			results[i] = sr.rankWallet(ctx, wallet, nowMs)
		}(i, wallet)
	}
	wg.Wait()

	traders := make([]SmartTrader, 0, len(results))
	for _, r := range results {
		if r != nil {
			traders = append(traders, *r)
		}
	}

	sort.Slice(traders, func(i, j int) bool {
		return traders[i].TotalPnL > traders[j].TotalPnL
	})

	if sr.cfg.TopN > 0 && len(traders) > sr.cfg.TopN {
		traders = traders[:sr.cfg.TopN]
	}

	sr.logger.Debug("ranked smart traders",
		zap.Int("scanned", len(wallets)),
		zap.Int("ranked", len(traders)),
	)
	if len(traders) > 0 {
		sr.logger.Debug("top smart trader",
			zap.String("wallet", shortAddress(traders[0].Wallet)),
			zap.String("pnl", formatUSD(traders[0].TotalPnL)),
		)
	}

	return traders
}

// rankWallet computes a wallet's leaderboard entry, or nil when the wallet
// is not profitable.
func (sr *SmartTraderRanker) rankWallet(ctx context.Context, wallet string, nowMs int64) *SmartTrader {
	stats := sr.stats.UserStatsFor(ctx, wallet)

	if stats.TotalPnL <= 0 {
		return nil
	}

	avgTradeSize := 0.0
	if stats.TotalTrades > 0 {
		avgTradeSize = stats.TotalVolume / float64(stats.TotalTrades)
	}

	accountAge := 0.0
	if stats.AccountCreated > 0 {
		accountAge = float64(nowMs-stats.AccountCreated) / msPerDay
	}

	// Closed-position data is not in the history feed, so the win rate is a
	// coarse proxy from realized PnL direction.
	winRate := 30.0
	if stats.TotalPnL > 0 {
		winRate = 70.0
	}

	return &SmartTrader{
		Wallet:             wallet,
		WalletName:         stats.WalletName,
		TotalPnL:           stats.TotalPnL,
		TotalVolume:        stats.TotalVolume,
		TotalTrades:        stats.TotalTrades,
		MarketsTraded:      stats.MarketsTraded,
		WinRate:            winRate,
		AvgTradeSize:       avgTradeSize,
		OpenPositionsValue: stats.OpenPositionsValue,
		AccountAge:         accountAge,
	}
}
