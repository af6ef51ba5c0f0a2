package strategy

import (
	"context"
	"fmt"

	"polytrader/internal/domain"
	"polytrader/internal/ports"
	"polytrader/internal/strategy/indicators"
)

// DivergenceConfig tunes the divergence provider.
type DivergenceConfig struct {
	RSIPeriod    int     // e.g. 14
	RSICeiling   float64 // RSI must stay below this for a bullish read, e.g. 40
	Interval     string  // Candle interval, e.g. "6h"
	Limit        int     // Candles fetched per symbol, e.g. 50
	RSILookback  int     // Candles between the two RSI readings, e.g. 7
	MACDLookback int     // Candles between the two MACD readings, e.g. 7
}

// Divergence signals markets whose underlying asset shows a bullish RSI or
// MACD divergence: price making lower lows while the oscillator rises.
type Divergence struct {
	cfg     DivergenceConfig
	candles ports.CandleProvider
	logger  ports.Logger
	cache   map[string][]*domain.Candle
}

// NewDivergence creates the divergence provider.
func NewDivergence(cfg DivergenceConfig, candles ports.CandleProvider, logger ports.Logger) (*Divergence, error) {
	if candles == nil || logger == nil {
		return nil, fmt.Errorf("candle provider and logger are required for divergence strategy")
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = 14
	}
	if cfg.RSICeiling <= 0 {
		cfg.RSICeiling = 40
	}
	if cfg.Interval == "" {
		cfg.Interval = "6h"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if cfg.RSILookback <= 0 {
		cfg.RSILookback = 7
	}
	if cfg.MACDLookback <= 0 {
		cfg.MACDLookback = 7
	}
	return &Divergence{cfg: cfg, candles: candles, logger: logger, cache: make(map[string][]*domain.Candle)}, nil
}

func (d *Divergence) Name() string { return "TBT Divergence" }

func (d *Divergence) Evaluate(ctx context.Context, market domain.Market, price float64, history []domain.PricePoint) (*domain.Signal, error) {
	symbol := underlyingSymbol(market.Question)
	if symbol == "" {
		return nil, nil
	}

	candles, err := d.fetch(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("divergence evaluation for %s: %w", symbol, err)
	}

	rsiDiv := d.rsiDivergence(candles)
	macdDiv := d.macdDivergence(candles)
	if !rsiDiv && !macdDiv {
		return nil, nil
	}

	confidence := 0.65
	rationale := fmt.Sprintf("%s bullish MACD divergence", symbol)
	if rsiDiv {
		confidence = 0.75
		rationale = fmt.Sprintf("%s bullish RSI divergence", symbol)
	}
	return &domain.Signal{
		MarketID:   market.ID,
		Question:   market.Question,
		Strategy:   d.Name(),
		Timeframe:  domain.ParseTimeframe(market.Question),
		Price:      price,
		Confidence: confidence,
		Rationale:  rationale,
	}, nil
}

// rsiDivergence reports a bullish divergence: price lower than a period ago
// while RSI rose, with RSI still depressed.
func (d *Divergence) rsiDivergence(candles []*domain.Candle) bool {
	if len(candles) < 2*d.cfg.RSIPeriod {
		return false
	}

	recentClose := candles[len(candles)-1].Close
	olderClose := candles[len(candles)-d.cfg.RSIPeriod].Close

	recentRSI, err := indicators.RSI(candles, d.cfg.RSIPeriod)
	if err != nil {
		return false
	}
	olderRSI, err := indicators.RSI(candles[:len(candles)-d.cfg.RSILookback], d.cfg.RSIPeriod)
	if err != nil {
		return false
	}

	return recentClose < olderClose && recentRSI > olderRSI && recentRSI < d.cfg.RSICeiling
}

// macdDivergence reports a bullish divergence: price lower than 15 candles
// ago while the MACD line rose into bullish territory.
func (d *Divergence) macdDivergence(candles []*domain.Candle) bool {
	if len(candles) < 30 {
		return false
	}

	recentClose := candles[len(candles)-1].Close
	olderClose := candles[len(candles)-15].Close

	recentMACD, err := indicators.MACD(candles)
	if err != nil {
		return false
	}
	olderMACD, err := indicators.MACD(candles[:len(candles)-d.cfg.MACDLookback])
	if err != nil {
		return false
	}

	return recentClose < olderClose && recentMACD.MACD > olderMACD.MACD && recentMACD.Bullish()
}

func (d *Divergence) fetch(ctx context.Context, symbol string) ([]*domain.Candle, error) {
	if cached, ok := d.cache[symbol]; ok {
		return cached, nil
	}
	candles, err := d.candles.Candles(ctx, symbol, d.cfg.Interval, d.cfg.Limit)
	if err != nil {
		return nil, err
	}
	d.cache[symbol] = candles
	return candles, nil
}
