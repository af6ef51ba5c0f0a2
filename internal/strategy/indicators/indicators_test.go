package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polytrader/internal/domain"
)

func candlesFrom(closes ...float64) []*domain.Candle {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]*domain.Candle, len(closes))
	for i, c := range closes {
		candles[i] = &domain.Candle{
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
		}
	}
	return candles
}

func series(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func TestCloses(t *testing.T) {
	candles := candlesFrom(1, 2, 3)
	assert.Equal(t, []float64{1, 2, 3}, Closes(candles))
}

func TestEMA(t *testing.T) {
	assert.Zero(t, EMA(nil, 10))

	// Fewer prices than the period falls back to the latest price.
	assert.Equal(t, 5.0, EMA([]float64{3, 4, 5}, 10))

	// A constant series has itself as its average.
	flat := series(20, func(int) float64 { return 42 })
	assert.InDelta(t, 42.0, EMA(flat, 10), 1e-9)
}

func TestRSIRequiresEnoughData(t *testing.T) {
	_, err := RSI(candlesFrom(1, 2, 3), 14)
	assert.Error(t, err)
}

func TestRSIExtremes(t *testing.T) {
	up := candlesFrom(series(20, func(i int) float64 { return 100 + float64(i) })...)
	rsi, err := RSI(up, 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rsi, "all gains reads 100")

	down := candlesFrom(series(20, func(i int) float64 { return 100 - float64(i) })...)
	rsi, err = RSI(down, 14)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rsi, "all losses reads 0")

	flat := candlesFrom(series(20, func(int) float64 { return 100 })...)
	rsi, err = RSI(flat, 14)
	require.NoError(t, err)
	assert.Equal(t, 50.0, rsi, "no movement reads neutral")
}

func TestMACDRequiresEnoughData(t *testing.T) {
	_, err := MACD(candlesFrom(series(20, func(i int) float64 { return float64(i) })...))
	assert.Error(t, err)
}

func TestMACDDirection(t *testing.T) {
	// In a rising series the fast average sits above the slow one.
	up := candlesFrom(series(40, func(i int) float64 { return 100 + float64(i) })...)
	res, err := MACD(up)
	require.NoError(t, err)
	assert.Greater(t, res.MACD, 0.0)

	down := candlesFrom(series(40, func(i int) float64 { return 200 - float64(i) })...)
	res, err = MACD(down)
	require.NoError(t, err)
	assert.Less(t, res.MACD, 0.0)

	flat := candlesFrom(series(40, func(int) float64 { return 100 })...)
	res, err = MACD(flat)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.MACD, 1e-9)
	assert.False(t, res.Bullish())
}

func TestADXRequiresEnoughData(t *testing.T) {
	_, err := ADX(candlesFrom(1, 2, 3))
	assert.Error(t, err)
}

func TestADXTrendStrength(t *testing.T) {
	// One-directional movement is maximal trend strength.
	up := candlesFrom(series(30, func(i int) float64 { return 100 + float64(i) })...)
	adx, err := ADX(up)
	require.NoError(t, err)
	assert.Equal(t, 100.0, adx)

	// No directional movement at all.
	flat := candlesFrom(series(30, func(int) float64 { return 100 })...)
	adx, err = ADX(flat)
	require.NoError(t, err)
	assert.Zero(t, adx)
}
