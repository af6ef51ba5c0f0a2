package strategy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polytrader/internal/domain"
	"polytrader/internal/ports"
)

// divergentCloses builds a series that declines steeply and then ticks up
// slightly at the end: price well below where it was two weeks of candles
// ago, momentum turning. The tail rise lifts RSI off the floor while the
// truncated series (ending mid-decline) reads zero, which is the bullish
// divergence shape.
func divergentCloses() []float64 {
	closes := make([]float64, 40)
	for i := 0; i < 33; i++ {
		closes[i] = 200 - 3*float64(i)
	}
	last := closes[32]
	for i := 33; i < 40; i++ {
		last += 0.5
		closes[i] = last
	}
	return closes
}

func newTestDivergence(t *testing.T, provider ports.CandleProvider) *Divergence {
	t.Helper()
	d, err := NewDivergence(DivergenceConfig{}, provider, nopLogger{})
	require.NoError(t, err)
	return d
}

func TestDivergenceSignalsOnBullishRSIDivergence(t *testing.T) {
	provider := &mockCandleProvider{candles: map[string][]*domain.Candle{
		"ETHUSDT": candleSeries("ETHUSDT", divergentCloses()...),
	}}
	d := newTestDivergence(t, provider)
	market := domain.Market{ID: "mkt-1", Question: "Ethereum Up or Down - June 1, 4h?", YesPrice: 0.30}

	sig, err := d.Evaluate(context.Background(), market, 0.30, nil)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "TBT Divergence", sig.Strategy)
	assert.Equal(t, domain.Timeframe4h, sig.Timeframe)
	assert.InDelta(t, 0.75, sig.Confidence, 1e-9, "RSI divergence carries the higher confidence")
	assert.Contains(t, sig.Rationale, "RSI divergence")
}

func TestDivergenceStaysSilentOnRisingMarket(t *testing.T) {
	provider := &mockCandleProvider{candles: map[string][]*domain.Candle{
		"ETHUSDT": candleSeries("ETHUSDT", risingCloses(40)...),
	}}
	d := newTestDivergence(t, provider)
	market := domain.Market{ID: "mkt-1", Question: "Ethereum 4h", YesPrice: 0.55}

	sig, err := d.Evaluate(context.Background(), market, 0.55, nil)
	require.NoError(t, err)
	assert.Nil(t, sig, "price above its past level is no divergence")
}

func TestDivergenceRequiresEnoughCandles(t *testing.T) {
	provider := &mockCandleProvider{candles: map[string][]*domain.Candle{
		"ETHUSDT": candleSeries("ETHUSDT", flatCloses(10)...),
	}}
	d := newTestDivergence(t, provider)
	market := domain.Market{ID: "mkt-1", Question: "Ethereum 4h", YesPrice: 0.55}

	sig, err := d.Evaluate(context.Background(), market, 0.55, nil)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestDivergenceIgnoresUnknownAssets(t *testing.T) {
	provider := &mockCandleProvider{}
	d := newTestDivergence(t, provider)
	market := domain.Market{ID: "mkt-1", Question: "Will the Fed cut rates?", YesPrice: 0.55}

	sig, err := d.Evaluate(context.Background(), market, 0.55, nil)
	require.NoError(t, err)
	assert.Nil(t, sig)
	assert.Zero(t, provider.calls)
}

func TestDivergencePropagatesFetchFailure(t *testing.T) {
	provider := &mockCandleProvider{err: fmt.Errorf("exchange down: %w", ports.ErrDataUnavailable)}
	d := newTestDivergence(t, provider)
	market := domain.Market{ID: "mkt-1", Question: "Ethereum 4h", YesPrice: 0.55}

	_, err := d.Evaluate(context.Background(), market, 0.55, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrDataUnavailable)
}
