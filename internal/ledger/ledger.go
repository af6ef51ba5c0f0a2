// Package ledger implements per-strategy capital accounting. Every strategy
// owns exactly one account; accounts are mutated only when a position closes,
// so one strategy's losing run cannot touch another's funds.
package ledger

import (
	"polytrader/internal/domain"
)

// Ledger tracks capital accounts in memory between load and persist. It is
// single-owner within a cycle; no locking.
type Ledger struct {
	initialCapital map[string]float64
	accounts       map[string]*domain.CapitalAccount
	dirty          map[string]bool
}

// New creates a ledger over previously persisted accounts. initialCapital
// maps strategy name to the capital a fresh account starts with; strategies
// missing from the map default to zero.
func New(initialCapital map[string]float64, accounts map[string]*domain.CapitalAccount) *Ledger {
	if accounts == nil {
		accounts = make(map[string]*domain.CapitalAccount)
	}
	return &Ledger{
		initialCapital: initialCapital,
		accounts:       accounts,
		dirty:          make(map[string]bool),
	}
}

// Get returns the strategy's account, creating a default-initialized one
// (balance = configured initial capital, zero PnL and streaks) on first
// reference.
func (l *Ledger) Get(strategy string) *domain.CapitalAccount {
	if acct, ok := l.accounts[strategy]; ok {
		return acct
	}
	acct := &domain.CapitalAccount{
		Strategy:       strategy,
		InitialCapital: l.initialCapital[strategy],
		Balance:        l.initialCapital[strategy],
	}
	l.accounts[strategy] = acct
	l.dirty[strategy] = true
	return acct
}

// ApplyClose settles a realized PnL against the strategy's account and
// updates the win/loss streak counters. A zero PnL counts as a win, matching
// the close semantics of the circuit breaker.
func (l *Ledger) ApplyClose(strategy string, pnl float64) {
	acct := l.Get(strategy)
	acct.Balance += pnl
	acct.RealizedPnL += pnl
	if pnl < 0 {
		acct.ConsecutiveLosses++
		acct.ConsecutiveWins = 0
	} else {
		acct.ConsecutiveWins++
		acct.ConsecutiveLosses = 0
	}
	l.dirty[strategy] = true
}

// Dirty returns the accounts mutated since the ledger was loaded.
func (l *Ledger) Dirty() []*domain.CapitalAccount {
	accts := make([]*domain.CapitalAccount, 0, len(l.dirty))
	for name := range l.dirty {
		accts = append(accts, l.accounts[name])
	}
	return accts
}
