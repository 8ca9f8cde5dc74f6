package app

import (
	"context"
	"testing"
	"time"

	"github.com/cescps/poly-insider/config"
	"go.uber.org/zap"
)

func newRankerHarness(t *testing.T, cfg config.SmartTradersConfig) (*SmartTraderRanker, *filterHarness) {
	t.Helper()
	h := newFilterHarness(t, defaultFilterConfig())
	return NewSmartTraderRanker(zap.NewNop(), h.client, h.stats, cfg), h
}

func defaultSmartTradersConfig() config.SmartTradersConfig {
	return config.SmartTradersConfig{ScanLimit: 1000, MaxWallets: 100, TopN: 50}
}

func rawFeedTrade(wallet string, tsSec int64) map[string]any {
	return map[string]any{
		"proxyWallet": wallet,
		"conditionId": "c1",
		"side":        "BUY",
		"size":        "10",
		"price":       "0.5",
		"timestamp":   tsSec,
	}
}

func TestRank_SortsProfitableWalletsByPnL(t *testing.T) {
	ranker, h := newRankerHarness(t, config.SmartTradersConfig{ScanLimit: 1000, MaxWallets: 100, TopN: 50})

	nowSec := time.Now().Unix()
	h.recent["0"] = []map[string]any{
		rawFeedTrade("0xwinner", nowSec),
		rawFeedTrade("0xbigger", nowSec),
		rawFeedTrade("0xloser", nowSec),
		rawFeedTrade("0xwinner", nowSec), // duplicate wallet
	}

	// seller histories are net positive, buyer history is net negative
	h.histories["0xwinner"] = []map[string]any{
		historyTrade("c1", "SELL", 100, 0.5, nowSec-3600), // +50
	}
	h.histories["0xbigger"] = []map[string]any{
		historyTrade("c1", "SELL", 400, 0.5, nowSec-3600), // +200
	}
	h.histories["0xloser"] = []map[string]any{
		historyTrade("c1", "BUY", 100, 0.5, nowSec-3600), // -50
	}

	traders := ranker.Rank(context.Background())

	if len(traders) != 2 {
		t.Fatalf("expected 2 profitable traders, got %d", len(traders))
	}
	if traders[0].Wallet != "0xbigger" {
		t.Errorf("expected 0xbigger first, got %s", traders[0].Wallet)
	}
	if traders[0].TotalPnL != 200 {
		t.Errorf("unexpected PnL: %f", traders[0].TotalPnL)
	}
	if traders[0].WinRate != 70 {
		t.Errorf("expected proxy win rate 70, got %f", traders[0].WinRate)
	}
	if traders[0].AvgTradeSize != 200 {
		t.Errorf("unexpected avgTradeSize: %f", traders[0].AvgTradeSize)
	}
	if traders[0].AccountAge <= 0 {
		t.Errorf("expected positive account age, got %f", traders[0].AccountAge)
	}
}

func TestRank_RespectsTopN(t *testing.T) {
	ranker, h := newRankerHarness(t, config.SmartTradersConfig{ScanLimit: 1000, MaxWallets: 100, TopN: 1})

	nowSec := time.Now().Unix()
	h.recent["0"] = []map[string]any{
		rawFeedTrade("0xa", nowSec),
		rawFeedTrade("0xb", nowSec),
	}
	h.histories["0xa"] = []map[string]any{historyTrade("c1", "SELL", 100, 0.5, nowSec-3600)}
	h.histories["0xb"] = []map[string]any{historyTrade("c1", "SELL", 200, 0.5, nowSec-3600)}

	traders := ranker.Rank(context.Background())

	if len(traders) != 1 {
		t.Fatalf("expected 1 trader, got %d", len(traders))
	}
	if traders[0].Wallet != "0xb" {
		t.Errorf("expected most profitable wallet kept, got %s", traders[0].Wallet)
	}
}

func TestRank_RespectsMaxWallets(t *testing.T) {
	ranker, h := newRankerHarness(t, config.SmartTradersConfig{ScanLimit: 1000, MaxWallets: 1, TopN: 50})

	nowSec := time.Now().Unix()
	h.recent["0"] = []map[string]any{
		rawFeedTrade("0xa", nowSec),
		rawFeedTrade("0xb", nowSec),
	}
	h.histories["0xa"] = []map[string]any{historyTrade("c1", "SELL", 100, 0.5, nowSec-3600)}
	h.histories["0xb"] = []map[string]any{historyTrade("c1", "SELL", 200, 0.5, nowSec-3600)}

	traders := ranker.Rank(context.Background())

	// only the first wallet from the feed was considered
	if len(traders) != 1 || traders[0].Wallet != "0xa" {
		t.Errorf("expected only first wallet scanned, got %+v", traders)
	}
}

func TestRank_EmptyFeed(t *testing.T) {
	ranker, _ := newRankerHarness(t, config.SmartTradersConfig{ScanLimit: 1000, MaxWallets: 100, TopN: 50})

	traders := ranker.Rank(context.Background())
	if len(traders) != 0 {
		t.Errorf("expected no traders from empty feed, got %d", len(traders))
	}
}

func TestRankWallet_SkipsWalletsInTheRed(t *testing.T) {
	ranker, h := newRankerHarness(t, config.SmartTradersConfig{ScanLimit: 1000, MaxWallets: 100, TopN: 50})

	nowSec := time.Now().Unix()
	h.histories["0xloser"] = []map[string]any{historyTrade("c1", "BUY", 100, 0.5, nowSec-3600)}

	if got := ranker.rankWallet(context.Background(), "0xloser", timeNowMs()); got != nil {
		t.Errorf("expected nil for unprofitable wallet, got %+v", got)
	}
}
