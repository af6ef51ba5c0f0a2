// Package indicators provides the technical calculations behind the
// trend and divergence signal providers. All functions operate on candles
// ordered oldest first.
package indicators

import (
	"fmt"

	"polytrader/internal/domain"
)

// Closes extracts the close series from candles.
func Closes(candles []*domain.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// EMA returns the exponential moving average of the last period prices.
// With fewer than period prices it falls back to the latest price.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}
	var sma float64
	for _, p := range prices[len(prices)-period:] {
		sma += p
	}
	sma /= float64(period)
	multiplier := 2.0 / float64(period+1)
	return prices[len(prices)-1]*multiplier + sma*(1-multiplier)
}

// RSI computes the Relative Strength Index over the close series using
// Wilder's smoothing.
func RSI(candles []*domain.Candle, period int) (float64, error) {
	if len(candles) <= period {
		return 0, fmt.Errorf("not enough data (%d) to calculate RSI for period %d", len(candles), period)
	}

	changes := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		changes = append(changes, candles[i].Close-candles[i-1].Close)
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		if changes[i] > 0 {
			avgGain += changes[i]
		} else {
			avgLoss -= changes[i]
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period; i < len(changes); i++ {
		if changes[i] > 0 {
			avgGain = (avgGain*float64(period-1) + changes[i]) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) - changes[i]) / float64(period)
		}
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil // Neutral if no change
		}
		return 100, nil
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	if rsi > 100 {
		rsi = 100
	} else if rsi < 0 {
		rsi = 0
	}
	return rsi, nil
}

// MACDResult holds the MACD line, its signal line, and the histogram.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// Bullish reports whether the histogram is positive.
func (m MACDResult) Bullish() bool {
	return m.Histogram > 0
}

// MACD computes the 12/26/9 moving average convergence divergence over the
// close series.
func MACD(candles []*domain.Candle) (MACDResult, error) {
	if len(candles) < 26 {
		return MACDResult{}, fmt.Errorf("not enough data (%d) to calculate MACD, need 26", len(candles))
	}

	closes := Closes(candles)
	macd := EMA(closes, 12) - EMA(closes, 26)

	// Signal line: EMA of the MACD series over the last 9 points.
	macdSeries := make([]float64, len(closes))
	for i := range closes {
		macdSeries[i] = EMA(closes[:i+1], 12) - EMA(closes[:i+1], 26)
	}
	signal := EMA(macdSeries[len(macdSeries)-9:], 9)

	return MACDResult{MACD: macd, Signal: signal, Histogram: macd - signal}, nil
}

// ADX computes a simplified Average Directional Index (0-100) over the last
// 14 periods, measuring trend strength regardless of direction.
func ADX(candles []*domain.Candle) (float64, error) {
	const period = 14
	if len(candles) < period {
		return 0, fmt.Errorf("not enough data (%d) to calculate ADX, need %d", len(candles), period)
	}

	trueRanges := make([]float64, 0, len(candles)-1)
	plusDM := make([]float64, 0, len(candles)-1)
	minusDM := make([]float64, 0, len(candles)-1)

	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]

		tr := cur.High - cur.Low
		if hc := abs(cur.High - prev.Close); hc > tr {
			tr = hc
		}
		if lc := abs(cur.Low - prev.Close); lc > tr {
			tr = lc
		}
		trueRanges = append(trueRanges, tr)

		up := cur.High - prev.High
		down := prev.Low - cur.Low
		switch {
		case up > down && up > 0:
			plusDM = append(plusDM, up)
			minusDM = append(minusDM, 0)
		case down > up && down > 0:
			plusDM = append(plusDM, 0)
			minusDM = append(minusDM, down)
		default:
			plusDM = append(plusDM, 0)
			minusDM = append(minusDM, 0)
		}
	}

	atr := mean(trueRanges[len(trueRanges)-period:])
	if atr == 0 {
		return 0, nil
	}
	plusDI := mean(plusDM[len(plusDM)-period:]) / atr * 100
	minusDI := mean(minusDM[len(minusDM)-period:]) / atr * 100

	diSum := plusDI + minusDI
	if diSum == 0 {
		return 0, nil
	}
	adx := abs(plusDI-minusDI) / diSum * 100
	if adx > 100 {
		adx = 100
	}
	return adx, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
