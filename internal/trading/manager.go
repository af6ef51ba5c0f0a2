// Package trading implements the position lifecycle: opening staked
// positions and closing them with fee-adjusted realized PnL, settling the
// capital ledger and circuit breaker on every close.
package trading

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"polytrader/internal/domain"
	"polytrader/internal/ledger"
	"polytrader/internal/ports"
	"polytrader/internal/risk"
)

// DefaultFeeRate is the fixed taker-fee approximation deducted on close.
const DefaultFeeRate = 0.02

// Manager owns the in-memory trade ledger for the duration of a cycle. It is
// loaded from the trade store at cycle start; the orchestrator persists
// Created and Updated positions at cycle end.
type Manager struct {
	positions []*domain.Position
	open      map[domain.PositionKey]*domain.Position
	byID      map[string]*domain.Position
	created   []*domain.Position
	updated   []*domain.Position

	ledger  *ledger.Ledger
	sizer   *risk.Sizer
	breaker *risk.Breaker
	feeRate float64
	logger  ports.Logger
	now     func() time.Time
	newID   func() string
}

// NewManager creates a lifecycle manager over previously persisted positions.
func NewManager(positions []*domain.Position, ldgr *ledger.Ledger, sizer *risk.Sizer, breaker *risk.Breaker, feeRate float64, logger ports.Logger) (*Manager, error) {
	if ldgr == nil || sizer == nil || breaker == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for trading manager")
	}
	if feeRate < 0 || feeRate >= 1 {
		return nil, fmt.Errorf("fee rate must be in [0, 1) (got %.4f): %w", feeRate, ports.ErrConfigurationError)
	}

	m := &Manager{
		positions: positions,
		open:      make(map[domain.PositionKey]*domain.Position),
		byID:      make(map[string]*domain.Position),
		ledger:    ldgr,
		sizer:     sizer,
		breaker:   breaker,
		feeRate:   feeRate,
		logger:    logger,
		now:       time.Now,
		newID:     shortID,
	}
	for _, pos := range positions {
		m.byID[pos.ID] = pos
		if pos.IsOpen() {
			m.open[pos.Key()] = pos
		}
	}
	return m, nil
}

// shortID returns an 8-character id, compact enough for log lines and
// CLI output while staying collision-safe at paper-trading volumes.
func shortID() string {
	return uuid.NewString()[:8]
}

// HasOpen reports whether an OPEN position already occupies the
// (strategy, market, timeframe) slot.
func (m *Manager) HasOpen(strategy, marketID string, timeframe domain.Timeframe) bool {
	_, ok := m.open[domain.PositionKey{Strategy: strategy, MarketID: marketID, Timeframe: timeframe}]
	return ok
}

// OpenPositions returns every position currently OPEN, across all strategies.
func (m *Manager) OpenPositions() []*domain.Position {
	out := make([]*domain.Position, 0, len(m.open))
	for _, pos := range m.positions {
		if pos.IsOpen() {
			out = append(out, pos)
		}
	}
	return out
}

// Positions returns the full trade ledger, oldest first.
func (m *Manager) Positions() []*domain.Position {
	return m.positions
}

// Open creates a new OPEN position for the signal, staked by the position
// sizer. The caller is responsible for the single-open check via HasOpen.
// Signals without a positive entry price are refused: Close settles
// proportionally to the entry price, which a zero entry would break.
func (m *Manager) Open(ctx context.Context, strat domain.StrategyConfig, sig *domain.Signal) *domain.Position {
	if sig.Price <= 0 {
		m.logger.Warn(ctx, "signal has no usable entry price, refusing to open", map[string]interface{}{
			"strategy": strat.Name,
			"marketID": sig.MarketID,
			"price":    sig.Price,
		})
		return nil
	}
	stake := m.sizer.Size(strat, m.ledger.Get(strat.Name))
	pos := &domain.Position{
		ID:         m.newID(),
		MarketID:   sig.MarketID,
		Question:   sig.Question,
		Strategy:   strat.Name,
		Timeframe:  sig.Timeframe,
		EntryPrice: sig.Price,
		EntryTime:  m.now().UTC(),
		Stake:      stake,
		Status:     domain.StatusOpen,
	}

	m.positions = append(m.positions, pos)
	m.byID[pos.ID] = pos
	m.open[pos.Key()] = pos
	m.created = append(m.created, pos)

	m.logger.Info(ctx, "position opened", map[string]interface{}{
		"positionID": pos.ID,
		"strategy":   pos.Strategy,
		"marketID":   pos.MarketID,
		"entryPrice": pos.EntryPrice,
		"stake":      pos.Stake,
	})
	return pos
}

// Close settles the OPEN position with the given id at exitPrice:
//
//	gross = (exit - entry) * (stake / entry)
//	fee   = stake * feeRate
//	pnl   = gross - fee
//
// The position becomes CLOSED, then the capital ledger and the circuit
// breaker are updated, in that order. Returns ErrPositionNotFound when no
// OPEN position has that id.
func (m *Manager) Close(ctx context.Context, positionID string, exitPrice float64) (*domain.Position, error) {
	pos, ok := m.byID[positionID]
	if !ok || !pos.IsOpen() {
		return nil, fmt.Errorf("close position %q: %w", positionID, ports.ErrPositionNotFound)
	}

	gross := (exitPrice - pos.EntryPrice) * (pos.Stake / pos.EntryPrice)
	fee := pos.Stake * m.feeRate
	pnl := gross - fee

	pos.ExitPrice = exitPrice
	pos.ExitTime = m.now().UTC()
	pos.GrossPNL = gross
	pos.Fee = fee
	pos.PNL = pnl
	pos.Status = domain.StatusClosed

	delete(m.open, pos.Key())
	m.updated = append(m.updated, pos)

	m.ledger.ApplyClose(pos.Strategy, pnl)
	m.breaker.RecordClose(ctx, pos.Strategy, pnl, pos.ExitTime, m.streakLoss(pos.Strategy))

	m.logger.Info(ctx, "position closed", map[string]interface{}{
		"positionID": pos.ID,
		"strategy":   pos.Strategy,
		"exitPrice":  exitPrice,
		"pnl":        pnl,
		"fee":        fee,
	})
	return pos, nil
}

// streakLoss sums the PnL of the strategy's current losing streak, walking
// its closes backwards in close-time order. Positions are held in entry
// order, so interleaved closes must be re-sorted by exit time first.
// Reported in breaker alerts.
func (m *Manager) streakLoss(strategy string) float64 {
	var closed []*domain.Position
	for _, pos := range m.positions {
		if pos.Strategy == strategy && !pos.IsOpen() {
			closed = append(closed, pos)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ExitTime.Before(closed[j].ExitTime)
	})

	var total float64
	for i := len(closed) - 1; i >= 0; i-- {
		if closed[i].PNL >= 0 {
			break
		}
		total += closed[i].PNL
	}
	return total
}

// Created returns positions opened this cycle, for persistence.
func (m *Manager) Created() []*domain.Position { return m.created }

// Updated returns positions closed this cycle, for persistence.
func (m *Manager) Updated() []*domain.Position { return m.updated }

// SetClock overrides the manager's time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// SetIDGenerator overrides position id generation. Tests only.
func (m *Manager) SetIDGenerator(gen func() string) { m.newID = gen }
