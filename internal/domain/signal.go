package domain

// Signal is a strategy's candidate opportunity for a market this cycle.
// Signals are transient: produced by a signal provider, consumed by the
// orchestrator, never persisted.
type Signal struct {
	MarketID   string
	Question   string
	Strategy   string
	Timeframe  Timeframe
	Price      float64 // Current YES price the signal was produced at
	Confidence float64 // 0-1
	Rationale  string  // Free-form explanation, reporting only
}
