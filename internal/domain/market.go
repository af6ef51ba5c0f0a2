package domain

import "time"

// Market is a snapshot of one binary-outcome market as observed this cycle.
// YesPrice is the market-implied probability (0-1) that the outcome resolves
// true.
type Market struct {
	ID       string
	Question string
	YesPrice float64
	Volume   float64 // 24h traded volume, 0 when the feed omits it
}

// PricePoint is one observed YES price for a market.
type PricePoint struct {
	Price     float64
	Timestamp time.Time
}

// Candle represents a single OHLCV data point for an underlying asset
// (e.g. BTC/USD), used by indicator-driven signal providers.
type Candle struct {
	OpenTime  time.Time
	CloseTime time.Time
	Symbol    string
	Interval  string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}
