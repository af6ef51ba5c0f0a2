package domain

// StrategyConfig is a named trading policy. Configs are defined at startup
// and immutable during a run; each strategy has its own capital account and
// circuit breaker keyed by Name.
type StrategyConfig struct {
	Name           string
	InitialCapital float64
	RiskPerTrade   float64 // Fraction of current balance staked per trade
	ScaleUpAfter   int     // Consecutive wins before the stake is scaled up
	ScaleDownAfter int     // Consecutive losses before the stake is scaled down
	MaxPositions   int     // Max positions opened per cycle
	ExitThreshold  float64 // YES price above which open positions are closed
	Ordering       SignalOrdering
}
