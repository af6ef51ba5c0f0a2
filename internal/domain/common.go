package domain

import "strings"

// PositionStatus represents the status of a paper-trading position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

// SignalOrdering selects how a strategy ranks its candidate signals before
// the per-cycle execution cap is applied.
type SignalOrdering string

const (
	// OrderByConfidence executes the highest-confidence signals first.
	// Used by reversal/panic strategies.
	OrderByConfidence SignalOrdering = "confidence"
	// OrderByPrice executes the cheapest entries first. Used by
	// value-entry strategies.
	OrderByPrice SignalOrdering = "price"
)

// Timeframe is the resolution horizon tag of a binary market (e.g. a
// "Bitcoin up in 4 hours?" market carries timeframe "4h"). It keys position
// uniqueness together with strategy and market id.
type Timeframe string

const (
	Timeframe1h    Timeframe = "1h"
	Timeframe4h    Timeframe = "4h"
	TimeframeDaily Timeframe = "daily"
)

// ParseTimeframe extracts the timeframe tag from a market question.
// Returns "" when the question carries no recognizable horizon.
func ParseTimeframe(question string) Timeframe {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "4h") || strings.Contains(q, "4 hour") || strings.Contains(q, "4-hour"):
		return Timeframe4h
	case strings.Contains(q, "1h") || strings.Contains(q, "1 hour"):
		return Timeframe1h
	case strings.Contains(q, "24 hour") || strings.Contains(q, "daily"):
		return TimeframeDaily
	}
	return ""
}
