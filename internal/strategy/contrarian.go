// Package strategy holds the pluggable signal providers, one per trading
// strategy. Providers are pure readers: they inspect a market snapshot and
// its retained price history and either produce a signal or stay silent.
package strategy

import (
	"context"
	"fmt"
	"strings"

	"polytrader/internal/domain"
)

// ContrarianConfig tunes crowd-panic detection.
type ContrarianConfig struct {
	VolumeSpikeRatio float64 // Volume above baseline that counts as panic selling, e.g. 1.5
	PriceDropPct     float64 // Drop over the retained history that counts as sharp, e.g. 0.15
	ExtremeLowPrice  float64 // YES price below which the crowd is in extreme panic, e.g. 0.25
	MinHistory       int     // Observations required before judging, e.g. 5
	MinSignals       int     // Distinct panic signals required, e.g. 2
}

// Contrarian detects real crowd panic rather than bare price thresholds: it
// scores volume spikes, price momentum, extreme lows, and order imbalance,
// and signals when enough of them line up.
type Contrarian struct {
	cfg ContrarianConfig
	// volumeBaselines maps market id to its trailing 24h volume; when a
	// market is missing, its current volume is its own baseline and a
	// spike can never register.
	volumeBaselines map[string]float64
}

// NewContrarian creates the panic-detection provider. baselines may be nil.
func NewContrarian(cfg ContrarianConfig, baselines map[string]float64) *Contrarian {
	if cfg.VolumeSpikeRatio <= 0 {
		cfg.VolumeSpikeRatio = 1.5
	}
	if cfg.PriceDropPct <= 0 {
		cfg.PriceDropPct = 0.15
	}
	if cfg.ExtremeLowPrice <= 0 {
		cfg.ExtremeLowPrice = 0.25
	}
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = 5
	}
	if cfg.MinSignals <= 0 {
		cfg.MinSignals = 2
	}
	return &Contrarian{cfg: cfg, volumeBaselines: baselines}
}

func (c *Contrarian) Name() string { return "AI Contrarian" }

// Evaluate scores the four panic signals and emits a buy signal when at
// least MinSignals fire. Confidence is the fraction of signals firing.
func (c *Contrarian) Evaluate(ctx context.Context, market domain.Market, price float64, history []domain.PricePoint) (*domain.Signal, error) {
	if len(history) < c.cfg.MinHistory {
		return nil, nil
	}

	baseline := c.volumeBaselines[market.ID]
	if baseline == 0 {
		baseline = market.Volume
	}
	spikeRatio := 1.0
	if baseline > 0 {
		spikeRatio = market.Volume / baseline
	}
	hasVolumeSpike := spikeRatio > c.cfg.VolumeSpikeRatio

	first := history[0].Price
	var change float64
	if first > 0 {
		change = (history[len(history)-1].Price - first) / first
	}
	hasSharpDrop := change < -c.cfg.PriceDropPct

	isExtremeLow := price < c.cfg.ExtremeLowPrice
	hasOrderImbalance := hasSharpDrop && hasVolumeSpike

	fired := 0
	var reasons []string
	if hasVolumeSpike {
		fired++
		reasons = append(reasons, "volume spike (panic selling)")
	}
	if hasSharpDrop {
		fired++
		reasons = append(reasons, "sharp price drop")
	}
	if isExtremeLow {
		fired++
		reasons = append(reasons, "extreme low price")
	}
	if hasOrderImbalance {
		fired++
		reasons = append(reasons, "order imbalance")
	}

	if fired < c.cfg.MinSignals {
		return nil, nil
	}

	confidence := float64(fired) / 4.0
	if confidence > 1 {
		confidence = 1
	}
	return &domain.Signal{
		MarketID:   market.ID,
		Question:   market.Question,
		Strategy:   c.Name(),
		Timeframe:  domain.ParseTimeframe(market.Question),
		Price:      price,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("panic: %s", strings.Join(reasons, " + ")),
	}, nil
}
