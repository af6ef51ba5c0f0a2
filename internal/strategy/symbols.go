package strategy

import "strings"

// underlyingSymbol maps a market question to the exchange symbol of the
// asset the market is about, for candle-fed providers. Returns "" when the
// question names no known asset.
func underlyingSymbol(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "bitcoin") || strings.Contains(q, "btc"):
		return "BTCUSDT"
	case strings.Contains(q, "ethereum") || strings.Contains(q, "eth"):
		return "ETHUSDT"
	case strings.Contains(q, "solana") || strings.Contains(q, "sol"):
		return "SOLUSDT"
	case strings.Contains(q, "xrp") || strings.Contains(q, "ripple"):
		return "XRPUSDT"
	}
	return ""
}
