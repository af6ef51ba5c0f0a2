package strategy

import (
	"context"
	"fmt"

	"polytrader/internal/domain"
	"polytrader/internal/ports"
	"polytrader/internal/strategy/indicators"
)

// TrendConfig tunes the trend-following provider.
type TrendConfig struct {
	ADXThreshold float64 // Trend strength required to signal, e.g. 25
	Interval     string  // Candle interval, e.g. "6h"
	Limit        int     // Candles fetched per symbol, e.g. 50
}

// Trend signals markets whose underlying asset is in a strong, rising trend:
// ADX above the threshold with the latest close above the previous one.
// Candles are cached per symbol for the lifetime of the provider (one cycle).
type Trend struct {
	cfg     TrendConfig
	candles ports.CandleProvider
	logger  ports.Logger
	cache   map[string][]*domain.Candle
}

// NewTrend creates the trend provider.
func NewTrend(cfg TrendConfig, candles ports.CandleProvider, logger ports.Logger) (*Trend, error) {
	if candles == nil || logger == nil {
		return nil, fmt.Errorf("candle provider and logger are required for trend strategy")
	}
	if cfg.ADXThreshold <= 0 {
		cfg.ADXThreshold = 25
	}
	if cfg.Interval == "" {
		cfg.Interval = "6h"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	return &Trend{cfg: cfg, candles: candles, logger: logger, cache: make(map[string][]*domain.Candle)}, nil
}

func (t *Trend) Name() string { return "TBO Trend" }

func (t *Trend) Evaluate(ctx context.Context, market domain.Market, price float64, history []domain.PricePoint) (*domain.Signal, error) {
	symbol := underlyingSymbol(market.Question)
	if symbol == "" {
		return nil, nil
	}

	candles, err := t.fetch(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("trend evaluation for %s: %w", symbol, err)
	}

	adx, err := indicators.ADX(candles)
	if err != nil {
		t.logger.Debug(ctx, "insufficient candles for ADX", map[string]interface{}{"symbol": symbol})
		return nil, nil
	}
	if adx <= t.cfg.ADXThreshold {
		return nil, nil
	}
	if len(candles) < 2 || candles[len(candles)-1].Close <= candles[len(candles)-2].Close {
		return nil, nil
	}

	confidence := adx / 100
	if confidence > 0.95 {
		confidence = 0.95
	}
	return &domain.Signal{
		MarketID:   market.ID,
		Question:   market.Question,
		Strategy:   t.Name(),
		Timeframe:  domain.ParseTimeframe(market.Question),
		Price:      price,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("%s trending, ADX %.1f", symbol, adx),
	}, nil
}

func (t *Trend) fetch(ctx context.Context, symbol string) ([]*domain.Candle, error) {
	if cached, ok := t.cache[symbol]; ok {
		return cached, nil
	}
	candles, err := t.candles.Candles(ctx, symbol, t.cfg.Interval, t.cfg.Limit)
	if err != nil {
		return nil, err
	}
	t.cache[symbol] = candles
	return candles, nil
}
