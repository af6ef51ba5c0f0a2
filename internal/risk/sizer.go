package risk

import (
	"fmt"

	"polytrader/internal/domain"
	"polytrader/internal/ports"
)

// SizerConfig holds the bounds and streak factors for position sizing.
type SizerConfig struct {
	MinPosition     float64
	MaxPosition     float64
	ScaleUpFactor   float64 // Applied after a win streak, > 1
	ScaleDownFactor float64 // Applied after a loss streak, < 1
}

// Sizer computes the stake for a strategy's next trade from its capital
// account and streak state. Sizing is deterministic and side-effect free.
type Sizer struct {
	cfg SizerConfig
}

// NewSizer validates the config and creates a sizer.
func NewSizer(cfg SizerConfig) (*Sizer, error) {
	if cfg.MinPosition <= 0 || cfg.MaxPosition < cfg.MinPosition {
		return nil, fmt.Errorf("position bounds must satisfy 0 < min <= max (got %.2f, %.2f): %w",
			cfg.MinPosition, cfg.MaxPosition, ports.ErrConfigurationError)
	}
	if cfg.ScaleUpFactor <= 1 {
		return nil, fmt.Errorf("scale-up factor must be > 1 (got %.2f): %w", cfg.ScaleUpFactor, ports.ErrConfigurationError)
	}
	if cfg.ScaleDownFactor <= 0 || cfg.ScaleDownFactor >= 1 {
		return nil, fmt.Errorf("scale-down factor must be in (0, 1) (got %.2f): %w", cfg.ScaleDownFactor, ports.ErrConfigurationError)
	}
	return &Sizer{cfg: cfg}, nil
}

// Size returns the stake for the strategy's next position: balance times the
// strategy's risk fraction, scaled up on a win streak or down on a loss
// streak, clamped to the configured bounds.
func (s *Sizer) Size(strat domain.StrategyConfig, acct *domain.CapitalAccount) float64 {
	stake := acct.Balance * strat.RiskPerTrade

	if strat.ScaleUpAfter > 0 && acct.ConsecutiveWins >= strat.ScaleUpAfter {
		stake *= s.cfg.ScaleUpFactor
	} else if strat.ScaleDownAfter > 0 && acct.ConsecutiveLosses >= strat.ScaleDownAfter {
		stake *= s.cfg.ScaleDownFactor
	}

	if stake < s.cfg.MinPosition {
		return s.cfg.MinPosition
	}
	if stake > s.cfg.MaxPosition {
		return s.cfg.MaxPosition
	}
	return stake
}
