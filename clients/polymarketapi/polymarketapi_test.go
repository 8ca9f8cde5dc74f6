package polymarketapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cescps/poly-insider/config"
	"go.uber.org/zap"
)

func newTestClient(handler http.HandlerFunc) (*PolymarketApiClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	cfg := &config.Config{
		Polymarket: config.PolymarketConfig{
			DataAPIURL:  server.URL,
			GammaAPIURL: server.URL,
		},
	}
	return NewPolymarketApiClient(zap.NewNop(), cfg), server
}

func TestNewPolymarketApiClient(t *testing.T) {
	cfg := &config.Config{
		Polymarket: config.PolymarketConfig{
			GammaAPIURL: "https://gamma.example.com",
			DataAPIURL:  "https://data.example.com",
		},
	}

	client := NewPolymarketApiClient(nil, cfg)

	if client.logger == nil {
		t.Error("expected logger to be set")
	}
	if client.gammaBaseURL != "https://gamma.example.com" {
		t.Errorf("unexpected gamma URL: %s", client.gammaBaseURL)
	}
	if client.dataBaseURL != "https://data.example.com" {
		t.Errorf("unexpected data URL: %s", client.dataBaseURL)
	}
}

func TestDecimal_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want float64
	}{
		{"number", `3000.5`, 3000.5},
		{"string", `"3000.5"`, 3000.5},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
		{"garbage string", `"abc"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decimal
			if err := json.Unmarshal([]byte(tt.json), &d); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if d.Float64() != tt.want {
				t.Errorf("got %f, want %f", d.Float64(), tt.want)
			}
		})
	}
}

func TestTrade_Wallet(t *testing.T) {
	trade := Trade{ProxyWallet: "0xproxy", MakerAddress: "0xmaker", TakerAddress: "0xtaker"}
	if trade.Wallet() != "0xproxy" {
		t.Errorf("expected proxy wallet, got %s", trade.Wallet())
	}

	trade.ProxyWallet = ""
	if trade.Wallet() != "0xmaker" {
		t.Errorf("expected maker address, got %s", trade.Wallet())
	}

	trade.MakerAddress = ""
	if trade.Wallet() != "0xtaker" {
		t.Errorf("expected taker address, got %s", trade.Wallet())
	}

	trade.TakerAddress = ""
	if trade.Wallet() != "" {
		t.Errorf("expected empty wallet, got %s", trade.Wallet())
	}
}

func TestGetRecentTrades_ConvertsTimestamps(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trades" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "500" {
			t.Errorf("unexpected limit: %s", r.URL.Query().Get("limit"))
		}
		if r.URL.Query().Get("offset") != "1000" {
			t.Errorf("unexpected offset: %s", r.URL.Query().Get("offset"))
		}
		w.Write([]byte(`[{"id":"t1","proxyWallet":"0xabc","side":"BUY","conditionId":"c1","size":"3000","price":"0.5","timestamp":1700000000}]`))
	})
	defer server.Close()

	trades := client.GetRecentTrades(context.Background(), 500, 1000)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].Timestamp != 1700000000000 {
		t.Errorf("expected ms timestamp, got %d", trades[0].Timestamp)
	}
	if trades[0].Size.Float64() != 3000 {
		t.Errorf("unexpected size: %f", trades[0].Size.Float64())
	}
	if trades[0].Notional() != 1500 {
		t.Errorf("unexpected notional: %f", trades[0].Notional())
	}
}

func TestGetRecentTrades_EmptyOnServerError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	trades := client.GetRecentTrades(context.Background(), 100, 0)
	if len(trades) != 0 {
		t.Errorf("expected empty slice on error, got %d trades", len(trades))
	}
}

func TestGetRecentTrades_EmptyOnMalformedBody(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	})
	defer server.Close()

	trades := client.GetRecentTrades(context.Background(), 100, 0)
	if len(trades) != 0 {
		t.Errorf("expected empty slice on malformed body, got %d trades", len(trades))
	}
}

func TestGetUserTradeHistory(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user") != "0xabc" {
			t.Errorf("unexpected user: %s", r.URL.Query().Get("user"))
		}
		if r.URL.Query().Get("limit") != "1000" {
			t.Errorf("unexpected limit: %s", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(`[{"id":"t1","timestamp":1700000000},{"id":"t2","timestamp":1700000100}]`))
	})
	defer server.Close()

	trades := client.GetUserTradeHistory(context.Background(), "0xabc", 1000)
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[1].Timestamp != 1700000100000 {
		t.Errorf("expected ms timestamp, got %d", trades[1].Timestamp)
	}
}

func TestGetUserTradeHistory_EmptyWallet(t *testing.T) {
	called := false
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	defer server.Close()

	trades := client.GetUserTradeHistory(context.Background(), "  ", 1000)
	if trades != nil {
		t.Error("expected nil for empty wallet")
	}
	if called {
		t.Error("expected no API call for empty wallet")
	}
}

func TestGetMarket_NilOnNotFound(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	if m := client.GetMarket(context.Background(), "cond1"); m != nil {
		t.Errorf("expected nil market on 404, got %+v", m)
	}
}

func TestGetMarkets_SkipsFailures(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets/cond1":
			json.NewEncoder(w).Encode(GammaMarket{ID: "1", Question: "Will it rain?", Slug: "will-it-rain"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer server.Close()

	markets := client.GetMarkets(context.Background(), []string{"cond1", "cond2", ""})
	if len(markets) != 1 {
		t.Fatalf("expected 1 market, got %d", len(markets))
	}
	if markets["cond1"].Question != "Will it rain?" {
		t.Errorf("unexpected question: %s", markets["cond1"].Question)
	}
	if _, ok := markets["cond2"]; ok {
		t.Error("expected failed lookup to be absent from map")
	}
}
