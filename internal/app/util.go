package app

import (
	"fmt"
	"time"
)

// shortID truncates long IDs for readable logging.
func shortID(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:6] + "…" + s[len(s)-6:]
}

// shortAddress formats a wallet address for display, e.g. 0x1a2b...c3d4.
func shortAddress(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

// formatUSD renders an amount as a whole-dollar string with thousands
// separators, e.g. $12,345.
func formatUSD(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	whole := int64(amount + 0.5)
	s := fmt.Sprintf("%d", whole)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}

	if neg {
		return "-$" + s
	}
	return "$" + s
}

func timeNowMs() int64 {
	return time.Now().UnixMilli()
}
