package app

import (
	"context"
	"fmt"
	"time"

	"polytrader/internal/domain"
)

// StrategyStatus is the per-strategy snapshot reported by Status.
type StrategyStatus struct {
	Name              string
	Balance           float64
	RealizedPnL       float64
	ConsecutiveWins   int
	ConsecutiveLosses int
	OpenPositions     int
	ClosedTrades      int
	WinRate           float64 // Fraction of closed trades with non-negative pnl
	Locked            bool
	LockedUntil       time.Time
}

// StatusReport summarizes the persisted engine state without mutating it.
type StatusReport struct {
	Strategies    []StrategyStatus
	OpenPositions []*domain.Position
	TotalBalance  float64
	TotalPnL      float64
}

// Status reads the stores and builds a snapshot for reporting.
func (e *Engine) Status(ctx context.Context) (*StatusReport, error) {
	positions, err := e.trades.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}
	accounts, err := e.accounts.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load capital accounts: %w", err)
	}
	breakerStates, err := e.breakers.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load breaker states: %w", err)
	}

	var open []*domain.Position
	openByStrategy := make(map[string]int)
	closedByStrategy := make(map[string]int)
	wonByStrategy := make(map[string]int)
	for _, pos := range positions {
		if pos.IsOpen() {
			open = append(open, pos)
			openByStrategy[pos.Strategy]++
			continue
		}
		closedByStrategy[pos.Strategy]++
		if pos.PNL >= 0 {
			wonByStrategy[pos.Strategy]++
		}
	}

	report := &StatusReport{OpenPositions: open}
	now := e.now()
	for _, strat := range e.cfg.Strategies {
		ss := StrategyStatus{
			Name:          strat.Name,
			Balance:       strat.InitialCapital,
			OpenPositions: openByStrategy[strat.Name],
			ClosedTrades:  closedByStrategy[strat.Name],
		}
		if ss.ClosedTrades > 0 {
			ss.WinRate = float64(wonByStrategy[strat.Name]) / float64(ss.ClosedTrades)
		}
		if acct, ok := accounts[strat.Name]; ok {
			ss.Balance = acct.Balance
			ss.RealizedPnL = acct.RealizedPnL
			ss.ConsecutiveWins = acct.ConsecutiveWins
			ss.ConsecutiveLosses = acct.ConsecutiveLosses
		}
		if st, ok := breakerStates[strat.Name]; ok && st.Broken && now.Before(st.BrokenUntil) {
			ss.Locked = true
			ss.LockedUntil = st.BrokenUntil
		}
		report.Strategies = append(report.Strategies, ss)
		report.TotalBalance += ss.Balance
		report.TotalPnL += ss.RealizedPnL
	}
	return report, nil
}
