package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket upgrader for the live trade feed
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// scoredTrade is a filtered trade with its insider score attached at the API
// boundary.
type scoredTrade struct {
	FilteredTrade
	InsiderScore int    `json:"insiderScore"`
	ScoreBand    string `json:"scoreBand"`
}

type tradesResponse struct {
	Trades    []scoredTrade `json:"trades"`
	Count     int           `json:"count"`
	Timestamp int64         `json:"timestamp"`
}

type historicalResponse struct {
	Trades  []scoredTrade `json:"trades"`
	HasMore bool          `json:"hasMore"`
}

type smartTradersResponse struct {
	Traders   []SmartTrader `json:"traders"`
	Count     int           `json:"count"`
	Timestamp int64         `json:"timestamp"`
}

// ServiceStats holds service statistics for the stats endpoint.
type ServiceStats struct {
	Build struct {
		Commit    string `json:"commit"`
		Time      string `json:"time,omitempty"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`

	Trades struct {
		Accumulated   int    `json:"accumulated"`
		HistoryOffset int    `json:"history_offset"`
		LastPollAt    string `json:"last_poll_at,omitempty"`
		LastPollAgo   string `json:"last_poll_ago,omitempty"`
	} `json:"trades"`

	Caches struct {
		WalletHistorySize int `json:"wallet_history_size"`
	} `json:"caches"`

	Runtime struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"`
		HeapSys    uint64 `json:"heap_sys"`
		NumGC      uint32 `json:"num_gc"`
		GoVersion  string `json:"go_version"`
		NumCPU     int    `json:"num_cpu"`
		GOOS       string `json:"goos"`
		GOARCH     string `json:"goarch"`
	} `json:"runtime"`
}

// APIServer exposes the accumulated trade feed, historical pages, the smart
// trader leaderboard, and service stats over HTTP.
type APIServer struct {
	logger      *zap.Logger
	accumulator *Accumulator
	ranker      *SmartTraderRanker
	stats       *StatsAggregator
	startTime   time.Time
	server      *http.Server
}

// NewAPIServer creates a server listening on the given port.
func NewAPIServer(
	logger *zap.Logger,
	accumulator *Accumulator,
	ranker *SmartTraderRanker,
	stats *StatsAggregator,
	port int,
) *APIServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &APIServer{
		logger:      logger,
		accumulator: accumulator,
		ranker:      ranker,
		stats:       stats,
		startTime:   time.Now(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, s.GetStats())
	})

	mux.HandleFunc("/api/trades", s.handleTrades)
	mux.HandleFunc("/api/historical-trades", s.handleHistoricalTrades)
	mux.HandleFunc("/api/smart-traders", s.handleSmartTraders)
	mux.HandleFunc("/ws", s.handleWS)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(dashboardHTML))
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	return s
}

// Start begins serving in a background goroutine.
func (s *APIServer) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server error", zap.Error(err))
		}
	}()
	s.logger.Info("api server started", zap.String("addr", s.server.Addr))
}

// Shutdown gracefully stops the server.
func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *APIServer) handleTrades(w http.ResponseWriter, _ *http.Request) {
	scored := scoreTrades(s.accumulator.Trades())
	writeJSON(w, tradesResponse{
		Trades:    scored,
		Count:     len(scored),
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *APIServer) handleHistoricalTrades(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 500)
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	trades, hasMore := s.accumulator.FetchHistorical(r.Context(), offset, limit)
	writeJSON(w, historicalResponse{
		Trades:  scoreTrades(trades),
		HasMore: hasMore,
	})
}

func (s *APIServer) handleSmartTraders(w http.ResponseWriter, r *http.Request) {
	traders := s.ranker.Rank(r.Context())
	writeJSON(w, smartTradersResponse{
		Traders:   traders,
		Count:     len(traders),
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleWS pushes the scored trade list to the client every second until the
// client disconnects.
func (s *APIServer) handleWS(w http.ResponseWriter, req *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		scored := scoreTrades(s.accumulator.Trades())
		payload := tradesResponse{
			Trades:    scored,
			Count:     len(scored),
			Timestamp: time.Now().UnixMilli(),
		}
		if err := conn.WriteJSON(payload); err != nil {
			return // Client disconnected
		}
	}
}

// GetStats returns service statistics.
func (s *APIServer) GetStats() ServiceStats {
	var stats ServiceStats

	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime
	stats.Build.GoVersion = runtime.Version()

	stats.StartTime = s.startTime.UTC().Format(time.RFC3339)
	uptime := time.Since(s.startTime)
	stats.Uptime = uptime.Round(time.Second).String()
	stats.UptimeSec = int64(uptime.Seconds())

	if s.accumulator != nil {
		stats.Trades.Accumulated = s.accumulator.Count()
		stats.Trades.HistoryOffset = s.accumulator.HistoryOffset()
		if last := s.accumulator.LastPollAt(); !last.IsZero() {
			stats.Trades.LastPollAt = last.UTC().Format(time.RFC3339)
			stats.Trades.LastPollAgo = time.Since(last).Round(time.Second).String()
		}
	}
	if s.stats != nil {
		stats.Caches.WalletHistorySize = s.stats.CacheSize()
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = memStats.HeapAlloc
	stats.Runtime.HeapSys = memStats.HeapSys
	stats.Runtime.NumGC = memStats.NumGC
	stats.Runtime.GoVersion = runtime.Version()
	stats.Runtime.NumCPU = runtime.NumCPU()
	stats.Runtime.GOOS = runtime.GOOS
	stats.Runtime.GOARCH = runtime.GOARCH

	return stats
}

func scoreTrades(trades []FilteredTrade) []scoredTrade {
	scored := make([]scoredTrade, 0, len(trades))
	for _, t := range trades {
		score := InsiderScore(t)
		scored = append(scored, scoredTrade{
			FilteredTrade: t,
			InsiderScore:  score,
			ScoreBand:     ScoreBand(score),
		})
	}
	return scored
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Poly Insider</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --bg-tertiary: #21262d;
            --border-color: #30363d;
            --text-primary: #c9d1d9;
            --text-secondary: #8b949e;
            --accent-blue: #58a6ff;
            --accent-green: #3fb950;
            --accent-red: #f85149;
            --accent-yellow: #d29922;
            --accent-orange: #f0883e;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, monospace;
            background: var(--bg-primary);
            color: var(--text-primary);
            padding: 20px;
            line-height: 1.5;
        }
        h1 { color: var(--accent-blue); margin-bottom: 20px; font-size: 24px; }
        .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 20px; }
        .status { display: flex; align-items: center; gap: 8px; }
        .status-dot { width: 10px; height: 10px; border-radius: 50%; }
        .status-dot.connected { background: var(--accent-green); }
        .status-dot.disconnected { background: var(--accent-red); animation: blink 1s infinite; }
        @keyframes blink { 50% { opacity: 0.5; } }
        .feed-item { background: var(--bg-secondary); border: 1px solid var(--border-color); padding: 12px; border-radius: 6px; margin-bottom: 8px; border-left: 3px solid var(--accent-blue); }
        .feed-item.band-high { border-left-color: var(--accent-red); }
        .feed-item.band-elevated { border-left-color: var(--accent-orange); }
        .feed-item.band-moderate { border-left-color: var(--accent-yellow); }
        .feed-wallet { color: var(--accent-blue); font-weight: 600; font-family: monospace; text-decoration: none; }
        .feed-time { color: var(--text-secondary); font-size: 12px; }
        .feed-market { color: var(--text-primary); font-size: 14px; margin-top: 4px; }
        .score-badge { padding: 2px 8px; border-radius: 4px; font-size: 12px; font-weight: bold; }
        .score-badge.band-high { background: var(--accent-red); color: #fff; }
        .score-badge.band-elevated { background: var(--accent-orange); color: #fff; }
        .score-badge.band-moderate { background: var(--accent-yellow); color: #000; }
        .score-badge.band-low { background: var(--accent-green); color: #fff; }
        .empty { color: var(--text-secondary); text-align: center; padding: 40px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>🎯 Poly Insider</h1>
        <div class="status">
            <div id="wsDot" class="status-dot disconnected"></div>
            <span id="wsStatus">Connecting...</span>
        </div>
    </div>
    <div id="feed"><div class="empty">No trades yet</div></div>
    <script>
        function connect() {
            const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(protocol + '//' + window.location.host + '/ws');
            const dot = document.getElementById('wsDot');
            const status = document.getElementById('wsStatus');

            ws.onopen = () => {
                dot.className = 'status-dot connected';
                status.textContent = 'Live';
            };
            ws.onclose = () => {
                dot.className = 'status-dot disconnected';
                status.textContent = 'Reconnecting...';
                setTimeout(connect, 2000);
            };
            ws.onerror = () => ws.close();
            ws.onmessage = (e) => {
                const payload = JSON.parse(e.data);
                const feed = document.getElementById('feed');
                if (!payload.trades || payload.trades.length === 0) {
                    feed.innerHTML = '<div class="empty">No trades yet</div>';
                    return;
                }
                feed.innerHTML = payload.trades.map(t => {
                    const shortAddr = t.wallet.substring(0, 6) + '...' + t.wallet.substring(t.wallet.length - 4);
                    const time = new Date(t.timestamp).toLocaleString();
                    const size = '$' + t.size.toLocaleString(undefined, {maximumFractionDigits: 0});
                    return '<div class="feed-item band-' + t.scoreBand + '">' +
                        '<div style="display: flex; justify-content: space-between; align-items: center;">' +
                        '<a href="https://polymarket.com/profile/' + t.wallet + '" target="_blank" class="feed-wallet">' + shortAddr + ' ↗</a>' +
                        '<span class="score-badge band-' + t.scoreBand + '">' + t.insiderScore + '</span>' +
                        '</div>' +
                        '<div class="feed-market">' + t.side + ' ' + size + ' ' + t.outcome + ' on ' + t.marketName + '</div>' +
                        '<div class="feed-time">' + time + '</div>' +
                        '</div>';
                }).join('');
            };
        }
        connect();
    </script>
</body>
</html>
`
