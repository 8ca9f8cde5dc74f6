package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cescps/poly-insider/clients/notifier"
	"github.com/cescps/poly-insider/clients/polymarketapi"
	"github.com/cescps/poly-insider/config"
	"github.com/cescps/poly-insider/internal/storage"
	"go.uber.org/zap"
)

// Accumulator maintains the rolling list of flagged trades. It merges newly
// filtered trades into the list, keeps the newest MaxDisplayTrades entries,
// persists snapshots, and fires alerts for fresh arrivals.
type Accumulator struct {
	logger   *zap.Logger
	pipeline *FilterPipeline
	api      *polymarketapi.PolymarketApiClient
	store    *storage.TradeStore
	notifier notifier.Notifier
	cfg      config.AccumulatorConfig

	mu            sync.RWMutex
	trades        []FilteredTrade
	historyOffset int
	lastPollAt    time.Time
}

// NewAccumulator creates a new accumulator. The store and notifier may be
// nil, in which case persistence and alerts are skipped.
func NewAccumulator(
	logger *zap.Logger,
	pipeline *FilterPipeline,
	api *polymarketapi.PolymarketApiClient,
	store *storage.TradeStore,
	n notifier.Notifier,
	cfg config.AccumulatorConfig,
) *Accumulator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Accumulator{
		logger:   logger,
		pipeline: pipeline,
		api:      api,
		store:    store,
		notifier: n,
		cfg:      cfg,
	}
}

// Seed loads the persisted trade list from the store. A malformed snapshot
// is discarded so a bad file never blocks startup.
func (a *Accumulator) Seed() {
	if a.store == nil {
		return
	}

	var saved []FilteredTrade
	if err := a.store.Load(&saved); err != nil {
		a.logger.Warn("discarding unreadable trade snapshot", zap.Error(err))
		return
	}

	a.mu.Lock()
	a.trades = saved
	a.mu.Unlock()

	a.logger.Info("seeded trades from snapshot", zap.Int("count", len(saved)))
}

// Trades returns a copy of the current accumulated list, newest first.
func (a *Accumulator) Trades() []FilteredTrade {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]FilteredTrade, len(a.trades))
	copy(out, a.trades)
	return out
}

// Count returns the number of accumulated trades.
func (a *Accumulator) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.trades)
}

// HistoryOffset returns how far the historical backfill has advanced.
func (a *Accumulator) HistoryOffset() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.historyOffset
}

// LastPollAt returns when the last live poll completed.
func (a *Accumulator) LastPollAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastPollAt
}

// Merge folds incoming trades into the accumulated list, dropping IDs we
// have already seen. Returns how many trades were new and the newest of
// them. When nothing is new the existing list is left untouched.
func (a *Accumulator) Merge(incoming []FilteredTrade) (int, *FilteredTrade) {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]struct{}, len(a.trades))
	for _, t := range a.trades {
		seen[t.ID] = struct{}{}
	}

	var fresh []FilteredTrade
	for _, t := range incoming {
		if _, ok := seen[t.ID]; !ok {
			seen[t.ID] = struct{}{}
			fresh = append(fresh, t)
		}
	}

	if len(fresh) == 0 && len(a.trades) > 0 {
		return 0, nil
	}

	merged := append(a.trades, fresh...)
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})
	if a.cfg.MaxDisplayTrades > 0 && len(merged) > a.cfg.MaxDisplayTrades {
		merged = merged[:a.cfg.MaxDisplayTrades]
	}
	a.trades = merged

	if a.store != nil {
		if err := a.store.Save(merged); err != nil {
			a.logger.Warn("failed to persist trade snapshot", zap.Error(err))
		}
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	newest := fresh[0]
	for _, t := range fresh {
		if t.Timestamp > newest.Timestamp {
			newest = t
		}
	}
	return len(fresh), &newest
}

// PollOnce fetches the latest trades, filters them, and merges survivors,
// alerting on the newest arrival.
func (a *Accumulator) PollOnce(ctx context.Context) {
	raw := a.api.GetRecentTrades(ctx, a.cfg.FetchLimit, 0)
	filtered := a.pipeline.Filter(ctx, raw)

	added, newest := a.Merge(filtered)

	a.mu.Lock()
	a.lastPollAt = time.Now()
	a.mu.Unlock()

	if added > 0 && newest != nil {
		a.logger.Info("new insider trades detected",
			zap.Int("added", added),
			zap.String("wallet", shortID(newest.Wallet)),
			zap.String("size", formatUSD(newest.Size)),
			zap.String("market", newest.MarketName),
		)
		a.alert(*newest, added)
	}
}

func (a *Accumulator) alert(t FilteredTrade, added int) {
	if a.notifier == nil {
		return
	}

	score := InsiderScore(t)
	a.notifier.SendTradeAlert(notifier.TradeAlert{
		Wallet:     t.Wallet,
		WalletName: t.WalletName,
		SizeUSD:    t.Size,
		Side:       t.Side,
		Outcome:    t.Outcome,
		Price:      t.Price,
		MarketName: t.MarketName,
		MarketSlug: t.MarketSlug,
		Score:      score,
		Band:       ScoreBand(score),
		NewTrades:  added,
		Timestamp:  time.UnixMilli(t.Timestamp),
	})
}

// RunPolling polls the live feed on the configured interval until the
// context is cancelled. An immediate first poll primes the list.
func (a *Accumulator) RunPolling(ctx context.Context) {
	interval := a.cfg.PollInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	a.logger.Info("trade polling started",
		zap.Duration("interval", interval),
		zap.Int("fetchLimit", a.cfg.FetchLimit),
	)

	a.PollOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("trade polling stopped")
			return
		case <-ticker.C:
			a.PollOnce(ctx)
		}
	}
}

// FetchHistorical fetches and filters one historical batch. The second
// return reports whether the upstream likely has more rows past this batch,
// judged from the raw page being full.
func (a *Accumulator) FetchHistorical(ctx context.Context, offset, limit int) ([]FilteredTrade, bool) {
	raw := a.api.GetRecentTrades(ctx, limit, offset)
	if len(raw) == 0 {
		return []FilteredTrade{}, false
	}

	filtered := a.pipeline.Filter(ctx, raw)
	return filtered, len(raw) == limit
}

// RunBackfill sweeps older trades into the list in batches. It first works
// through InitialHistoricalFetch rows, then keeps extending in smaller
// chunks on BackfillInterval until MaxHistoricalFetch is reached or the
// upstream runs dry.
func (a *Accumulator) RunBackfill(ctx context.Context) {
	batchSize := a.cfg.FetchLimit
	if batchSize <= 0 {
		batchSize = 500
	}

	a.logger.Info("historical backfill started",
		zap.Int("initial", a.cfg.InitialHistoricalFetch),
		zap.Int("max", a.cfg.MaxHistoricalFetch),
	)

	if !a.sweep(ctx, a.cfg.InitialHistoricalFetch, batchSize) {
		return
	}

	if !a.cfg.ContinuousHistoryFetch {
		a.logger.Info("historical backfill finished", zap.Int("offset", a.HistoryOffset()))
		return
	}

	interval := a.cfg.BackfillInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("historical backfill stopped", zap.Int("offset", a.HistoryOffset()))
			return
		case <-ticker.C:
			remaining := a.cfg.MaxHistoricalFetch - a.HistoryOffset()
			if remaining <= 0 {
				a.logger.Info("historical backfill reached max depth", zap.Int("offset", a.HistoryOffset()))
				return
			}
			target := a.cfg.ContinuationFetch
			if target > remaining {
				target = remaining
			}
			if !a.sweep(ctx, target, batchSize) {
				return
			}
		}
	}
}

// sweep fetches up to target rows past the current offset in batchSize
// pages. Returns false when the context ended or the upstream ran dry.
func (a *Accumulator) sweep(ctx context.Context, target, batchSize int) bool {
	fetched := 0
	for fetched < target {
		if ctx.Err() != nil {
			return false
		}

		offset := a.HistoryOffset()
		if offset >= a.cfg.MaxHistoricalFetch {
			return false
		}

		filtered, hasMore := a.FetchHistorical(ctx, offset, batchSize)
		added, newest := a.Merge(filtered)
		if added > 0 && newest != nil {
			a.logger.Info("backfill found insider trades",
				zap.Int("added", added),
				zap.String("wallet", shortID(newest.Wallet)),
				zap.String("size", formatUSD(newest.Size)),
				zap.String("market", newest.MarketName),
			)
			a.alert(*newest, added)
		}

		a.mu.Lock()
		a.historyOffset += batchSize
		a.mu.Unlock()
		fetched += batchSize

		a.logger.Debug("backfill batch done",
			zap.Int("offset", offset),
			zap.Int("kept", len(filtered)),
			zap.Int("added", added),
			zap.Bool("hasMore", hasMore),
		)

		if !hasMore {
			a.logger.Info("historical feed exhausted", zap.Int("offset", a.HistoryOffset()))
			return false
		}
	}
	return true
}
