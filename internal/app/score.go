package app

// InsiderScore rates a filtered trade 0-100 on how much it looks like
// informed trading. Fresh wallets making large, concentrated bets soon after
// creation score highest.
func InsiderScore(t FilteredTrade) int {
	score := 0

	// Wallet age: newer is more suspicious.
	switch {
	case t.WalletAge < 1:
		score += 25
	case t.WalletAge < 2:
		score += 20
	case t.WalletAge < 5:
		score += 10
	case t.WalletAge < 7:
		score += 5
	}

	// Trade size.
	switch {
	case t.Size > 10000:
		score += 20
	case t.Size > 5000:
		score += 15
	case t.Size > 2000:
		score += 10
	case t.Size > 1000:
		score += 5
	}

	// How much of the wallet's volume sits in this one market.
	switch {
	case t.VolumeConcentration > 80:
		score += 20
	case t.VolumeConcentration > 60:
		score += 15
	case t.VolumeConcentration > 40:
		score += 10
	case t.VolumeConcentration > 20:
		score += 5
	}

	// Speed from wallet creation to this trade.
	hoursToTrade := t.WalletCreationToTradeDelta * 24
	switch {
	case hoursToTrade < 1:
		score += 20
	case hoursToTrade < 6:
		score += 15
	case hoursToTrade < 24:
		score += 10
	case hoursToTrade < 48:
		score += 5
	}

	// Profitability in the market.
	switch {
	case t.MarketPnL > 1000:
		score += 15
	case t.MarketPnL > 500:
		score += 10
	case t.MarketPnL > 0:
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return score
}

// ScoreBand maps a score to a severity label.
func ScoreBand(score int) string {
	switch {
	case score >= 80:
		return "high"
	case score >= 60:
		return "elevated"
	case score >= 40:
		return "moderate"
	default:
		return "low"
	}
}
