package app

import "testing"

func TestInsiderScore_Maximal(t *testing.T) {
	trade := FilteredTrade{
		WalletAge:                  0.5,
		Size:                       20000,
		VolumeConcentration:        95,
		WalletCreationToTradeDelta: 0.01, // under an hour
		MarketPnL:                  5000,
	}

	if got := InsiderScore(trade); got != 100 {
		t.Errorf("expected capped score of 100, got %d", got)
	}
}

func TestInsiderScore_Minimal(t *testing.T) {
	trade := FilteredTrade{
		WalletAge:                  30,
		Size:                       500,
		VolumeConcentration:        5,
		WalletCreationToTradeDelta: 10,
		MarketPnL:                  -100,
	}

	if got := InsiderScore(trade); got != 0 {
		t.Errorf("expected zero score, got %d", got)
	}
}

func TestInsiderScore_Buckets(t *testing.T) {
	tests := []struct {
		name  string
		trade FilteredTrade
		want  int
	}{
		{
			"two day wallet",
			FilteredTrade{WalletAge: 1.5, WalletCreationToTradeDelta: 10, Size: 500},
			20,
		},
		{
			"mid size trade",
			FilteredTrade{WalletAge: 30, WalletCreationToTradeDelta: 10, Size: 6000},
			15,
		},
		{
			"moderate concentration",
			FilteredTrade{WalletAge: 30, WalletCreationToTradeDelta: 10, Size: 500, VolumeConcentration: 50},
			10,
		},
		{
			"trade within six hours of creation",
			FilteredTrade{WalletAge: 30, WalletCreationToTradeDelta: 0.2, Size: 500},
			15,
		},
		{
			"small positive market pnl",
			FilteredTrade{WalletAge: 30, WalletCreationToTradeDelta: 10, Size: 500, MarketPnL: 100},
			5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InsiderScore(tt.trade); got != tt.want {
				t.Errorf("InsiderScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreBand(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "high"},
		{80, "high"},
		{79, "elevated"},
		{60, "elevated"},
		{59, "moderate"},
		{40, "moderate"},
		{39, "low"},
		{0, "low"},
	}

	for _, tt := range tests {
		if got := ScoreBand(tt.score); got != tt.want {
			t.Errorf("ScoreBand(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
