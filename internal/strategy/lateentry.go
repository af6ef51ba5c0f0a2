package strategy

import (
	"context"
	"fmt"

	"polytrader/internal/domain"
)

// LateEntryConfig tunes the value-entry strategy.
type LateEntryConfig struct {
	BuyThreshold  float64 // Only markets priced below this are candidates, e.g. 0.35
	Confirmations int     // Consecutive non-falling observations required, e.g. 2
}

// LateEntry buys cheap YES prices once the price trail confirms a reversal:
// the market must be under the buy threshold and the last observations must
// be non-decreasing, so the knife has visibly stopped falling.
type LateEntry struct {
	cfg LateEntryConfig
}

// NewLateEntry creates the value-entry provider.
func NewLateEntry(cfg LateEntryConfig) *LateEntry {
	if cfg.BuyThreshold <= 0 {
		cfg.BuyThreshold = 0.35
	}
	if cfg.Confirmations <= 0 {
		cfg.Confirmations = 2
	}
	return &LateEntry{cfg: cfg}
}

func (l *LateEntry) Name() string { return "Late Entry" }

func (l *LateEntry) Evaluate(ctx context.Context, market domain.Market, price float64, history []domain.PricePoint) (*domain.Signal, error) {
	if price >= l.cfg.BuyThreshold {
		return nil, nil
	}
	// Need Confirmations upticks, so Confirmations+1 observations.
	if len(history) < l.cfg.Confirmations+1 {
		return nil, nil
	}

	recent := history[len(history)-(l.cfg.Confirmations+1):]
	for i := 0; i < len(recent)-1; i++ {
		if recent[i].Price > recent[i+1].Price {
			return nil, nil
		}
	}

	return &domain.Signal{
		MarketID:  market.ID,
		Question:  market.Question,
		Strategy:  l.Name(),
		Timeframe: domain.ParseTimeframe(market.Question),
		Price:     price,
		// Cheaper entries are better for a value strategy.
		Confidence: 1 - price,
		Rationale:  fmt.Sprintf("reversal confirmed over %d observations below %.2f", l.cfg.Confirmations, l.cfg.BuyThreshold),
	}, nil
}
