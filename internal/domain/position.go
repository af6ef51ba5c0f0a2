package domain

import "time"

// Position represents one simulated buy-then-sell cycle in a binary market,
// owned by exactly one strategy. A position is created OPEN and mutated
// exactly once, on close; CLOSED is terminal.
type Position struct {
	ID         string         // Short unique identifier
	MarketID   string         // Binary market the position is in
	Question   string         // Market question, kept for reporting
	Strategy   string         // Owning strategy name
	Timeframe  Timeframe      // Market resolution horizon tag
	EntryPrice float64        // YES price at entry (0-1)
	EntryTime  time.Time      // Timestamp when the position was opened
	Stake      float64        // Notional amount committed
	ExitPrice  float64        // YES price at exit (0 while open)
	ExitTime   time.Time      // Zero value while open
	GrossPNL   float64        // Profit before fees (0 while open)
	Fee        float64        // Taker-fee approximation deducted on close
	PNL        float64        // Fee-adjusted realized profit (0 while open)
	Status     PositionStatus // OPEN or CLOSED
}

// IsOpen reports whether the position has not been closed yet.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// Key returns the uniqueness triple for the single-open invariant: at most
// one OPEN position may exist per (strategy, market, timeframe).
func (p *Position) Key() PositionKey {
	return PositionKey{Strategy: p.Strategy, MarketID: p.MarketID, Timeframe: p.Timeframe}
}

// PositionKey identifies the slot a position occupies while open.
type PositionKey struct {
	Strategy  string
	MarketID  string
	Timeframe Timeframe
}
