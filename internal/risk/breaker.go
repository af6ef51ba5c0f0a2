// Package risk holds the two gates between a signal and an open position:
// the position sizer and the per-strategy circuit breaker.
package risk

import (
	"context"
	"time"

	"polytrader/internal/domain"
	"polytrader/internal/ports"
)

// BreakerConfig holds the failure-gate parameters.
type BreakerConfig struct {
	LossThreshold int           // Consecutive losses that trip the breaker
	Lockout       time.Duration // How long a tripped strategy stays locked
}

// Breaker is the per-strategy failure state machine. A strategy is either
// open for trading or broken; enough consecutive losing closes trip it, a
// winning close or lockout expiry resets it. Breaker faults never abort a
// cycle: a missing record reads as open for trading with zero losses.
type Breaker struct {
	cfg      BreakerConfig
	states   map[string]*domain.BreakerState
	dirty    map[string]bool
	notifier ports.Notifier
	logger   ports.Logger
	now      func() time.Time
}

// NewBreaker creates a breaker over previously persisted states. notifier
// may be nil, in which case trips go unannounced.
func NewBreaker(cfg BreakerConfig, states map[string]*domain.BreakerState, notifier ports.Notifier, logger ports.Logger) *Breaker {
	if cfg.LossThreshold <= 0 {
		cfg.LossThreshold = 3
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = 24 * time.Hour
	}
	if states == nil {
		states = make(map[string]*domain.BreakerState)
	}
	if notifier == nil {
		notifier = ports.NoopNotifier{}
	}
	return &Breaker{
		cfg:      cfg,
		states:   states,
		dirty:    make(map[string]bool),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (b *Breaker) state(strategy string) *domain.BreakerState {
	st, ok := b.states[strategy]
	if !ok {
		st = &domain.BreakerState{Strategy: strategy}
		b.states[strategy] = st
	}
	return st
}

// IsTradeable reports whether the strategy may open new positions. Checking
// an expired lockout resets the breaker as a side effect before reporting.
func (b *Breaker) IsTradeable(ctx context.Context, strategy string) bool {
	st := b.state(strategy)
	if !st.Broken {
		return true
	}
	if b.now().After(st.BrokenUntil) {
		b.logger.Info(ctx, "circuit breaker lockout expired, resuming trading", map[string]interface{}{
			"strategy": strategy,
		})
		b.reset(st)
		return true
	}
	return false
}

// RecordClose feeds one closed trade into the state machine. A negative PnL
// increments the loss streak and trips the breaker at the threshold, locking
// the strategy out until closedAt plus the lockout and firing the notifier.
// A non-negative PnL resets the streak and clears any lockout.
// recentLoss is the summed PnL of the streak, reported in the alert.
func (b *Breaker) RecordClose(ctx context.Context, strategy string, pnl float64, closedAt time.Time, recentLoss float64) {
	st := b.state(strategy)
	defer func() { b.dirty[strategy] = true }()

	if pnl >= 0 {
		b.reset(st)
		return
	}

	st.ConsecutiveLosses++
	if st.ConsecutiveLosses < b.cfg.LossThreshold || st.Broken {
		return
	}

	st.Broken = true
	st.BrokenUntil = closedAt.Add(b.cfg.Lockout)
	b.logger.Warn(ctx, "circuit breaker tripped", map[string]interface{}{
		"strategy":          strategy,
		"consecutiveLosses": st.ConsecutiveLosses,
		"brokenUntil":       st.BrokenUntil,
	})
	// Fire-and-forget: the notifier swallows its own failures.
	b.notifier.NotifyBreakerTripped(ctx, ports.BreakerEvent{
		Strategy:          strategy,
		ConsecutiveLosses: st.ConsecutiveLosses,
		TotalLoss:         recentLoss,
		BrokenUntil:       st.BrokenUntil,
	})
}

func (b *Breaker) reset(st *domain.BreakerState) {
	st.ConsecutiveLosses = 0
	st.Broken = false
	st.BrokenUntil = time.Time{}
	b.dirty[st.Strategy] = true
}

// State exposes the current record for a strategy, mainly for reporting.
func (b *Breaker) State(strategy string) domain.BreakerState {
	return *b.state(strategy)
}

// Dirty returns the states mutated since the breaker was loaded.
func (b *Breaker) Dirty() []*domain.BreakerState {
	states := make([]*domain.BreakerState, 0, len(b.dirty))
	for name := range b.dirty {
		states = append(states, b.states[name])
	}
	return states
}

// SetClock overrides the breaker's time source. Tests only.
func (b *Breaker) SetClock(now func() time.Time) {
	b.now = now
}
