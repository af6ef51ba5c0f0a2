package ports

import (
	"context"

	"polytrader/internal/domain"
)

// SignalProvider produces candidate opportunities for one strategy.
// Evaluate is called once per market per cycle with the market's retained
// price history; it returns (nil, nil) when the market offers no signal.
// Errors are scoped to the market under evaluation and never abort a cycle.
type SignalProvider interface {
	// Name returns the strategy name the provider feeds.
	Name() string

	// Evaluate inspects one market and returns a signal or nil.
	Evaluate(ctx context.Context, market domain.Market, price float64, history []domain.PricePoint) (*domain.Signal, error)
}
