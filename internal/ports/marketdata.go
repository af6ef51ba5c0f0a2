package ports

import (
	"context"

	"polytrader/internal/domain"
)

// MarketDataProvider supplies current observations of binary-outcome markets.
// Implementations are the only place a cycle may block on the network and are
// expected to retry with bounded exponential backoff internally; exhausted
// retries surface as ErrDataUnavailable.
type MarketDataProvider interface {
	// Markets returns the current tradeable market set with prices.
	Markets(ctx context.Context) ([]domain.Market, error)

	// CurrentPrice returns the current YES price for one market.
	// Returns ErrDataUnavailable when the price cannot be fetched.
	CurrentPrice(ctx context.Context, marketID string) (float64, error)
}

// CandleProvider supplies OHLCV history for an underlying asset symbol.
// Indicator-driven signal providers consume it; the core never does.
type CandleProvider interface {
	// Candles retrieves up to limit candles for the symbol at the given
	// interval, oldest first.
	Candles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error)
}
