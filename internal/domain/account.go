package domain

// CapitalAccount holds one strategy's simulated funds and streak counters.
// Balance always equals the configured initial capital plus RealizedPnL;
// the account is mutated only when one of the strategy's positions closes.
type CapitalAccount struct {
	Strategy          string
	InitialCapital    float64
	Balance           float64
	RealizedPnL       float64
	ConsecutiveWins   int
	ConsecutiveLosses int
}
