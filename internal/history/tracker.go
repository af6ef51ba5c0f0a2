// Package history maintains the bounded, time-ordered YES-price trail kept
// per market. The trail feeds reversal and panic detection in the signal
// providers.
package history

import (
	"time"

	"polytrader/internal/domain"
)

// DefaultCap is the number of price points retained per market.
const DefaultCap = 10

// Tracker holds per-market price histories in memory. It is loaded from the
// history store at cycle start and written back at cycle end; within a cycle
// it has a single owner and no locking.
type Tracker struct {
	cap     int
	entries map[string][]domain.PricePoint
	dirty   map[string]bool
}

// NewTracker creates a tracker over previously persisted histories. A nil
// map starts empty. cap <= 0 falls back to DefaultCap.
func NewTracker(cap int, entries map[string][]domain.PricePoint) *Tracker {
	if cap <= 0 {
		cap = DefaultCap
	}
	if entries == nil {
		entries = make(map[string][]domain.PricePoint)
	}
	return &Tracker{
		cap:     cap,
		entries: entries,
		dirty:   make(map[string]bool),
	}
}

// Record appends an observation for the market, evicting the oldest entry
// once the retained length exceeds the cap. Unknown markets simply start
// empty.
func (t *Tracker) Record(marketID string, price float64, ts time.Time) {
	points := append(t.entries[marketID], domain.PricePoint{Price: price, Timestamp: ts})
	if len(points) > t.cap {
		points = points[len(points)-t.cap:]
	}
	t.entries[marketID] = points
	t.dirty[marketID] = true
}

// Read returns the full retained history for a market, oldest first.
// Returns an empty slice for markets never observed.
func (t *Tracker) Read(marketID string) []domain.PricePoint {
	return t.entries[marketID]
}

// Dirty returns the ids of markets mutated since the tracker was loaded,
// so the orchestrator persists only what changed.
func (t *Tracker) Dirty() []string {
	ids := make([]string, 0, len(t.dirty))
	for id := range t.dirty {
		ids = append(ids, id)
	}
	return ids
}
