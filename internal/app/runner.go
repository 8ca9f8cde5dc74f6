package app

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/cescps/poly-insider/clients"
	"github.com/cescps/poly-insider/config"
	"github.com/cescps/poly-insider/internal/storage"

	"go.uber.org/zap"
)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

// Runner wires the trade pipeline together and owns its lifecycle.
type Runner struct {
	logger  *zap.Logger
	cfg     *config.Config
	clients *clients.Clients

	stats       *StatsAggregator
	pipeline    *FilterPipeline
	accumulator *Accumulator
	ranker      *SmartTraderRanker
	server      *APIServer
}

func NewRunner(logger *zap.Logger, cfg *config.Config, c *clients.Clients) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	stats := NewStatsAggregator(logger, c.Polymarket, cfg.Stats.HistoryLimit, cfg.Stats.HistoryCacheTTL)
	pipeline := NewFilterPipeline(logger, c.Polymarket, stats, cfg.Filter)
	store := storage.NewTradeStore(logger, cfg.Storage.FileName)
	accumulator := NewAccumulator(logger, pipeline, c.Polymarket, store, c.Notifier, cfg.Accumulator)
	ranker := NewSmartTraderRanker(logger, c.Polymarket, stats, cfg.SmartTraders)

	r := &Runner{
		logger:      logger,
		cfg:         cfg,
		clients:     c,
		stats:       stats,
		pipeline:    pipeline,
		accumulator: accumulator,
		ranker:      ranker,
	}

	if cfg.Server.Enabled {
		r.server = NewAPIServer(logger, accumulator, ranker, stats, cfg.Server.Port)
	}

	return r
}

// Run starts the polling and backfill loops and blocks until the context is
// cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("starting poly-insider",
		zap.String("commit", BuildCommit),
		zap.Bool("server_enabled", r.cfg.Server.Enabled))

	r.accumulator.Seed()

	go r.accumulator.RunPolling(ctx)
	go r.accumulator.RunBackfill(ctx)

	if r.server != nil {
		r.server.Start()
	}

	<-ctx.Done()
	r.logger.Info("shutting down")

	if r.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.server.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("api server shutdown failed", zap.Error(err))
		}
	}

	if err := r.clients.Notifier.Close(); err != nil {
		r.logger.Error("failed to close notifier", zap.Error(err))
	}

	return nil
}
