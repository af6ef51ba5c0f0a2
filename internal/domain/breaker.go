package domain

import "time"

// BreakerState is one strategy's failure gate. BrokenUntil is non-zero if
// and only if Broken is true.
type BreakerState struct {
	Strategy          string
	ConsecutiveLosses int
	Broken            bool
	BrokenUntil       time.Time
}
