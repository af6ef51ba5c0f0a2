// Package app wires the trading components into the per-cycle orchestrator.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"polytrader/config"
	"polytrader/internal/domain"
	"polytrader/internal/history"
	"polytrader/internal/ledger"
	"polytrader/internal/ports"
	"polytrader/internal/risk"
	"polytrader/internal/trading"
)

// Engine runs the paper-trading cycle: observe markets, gate on the circuit
// breaker, evaluate entries and exits, and persist what changed. All durable
// state is loaded at cycle start and written back at cycle end; within a
// cycle everything is in memory and single-threaded.
type Engine struct {
	cfg        *config.Config
	logger     ports.Logger
	marketData ports.MarketDataProvider
	providers  map[string]ports.SignalProvider
	notifier   ports.Notifier

	trades   ports.TradeRepository
	accounts ports.AccountRepository
	breakers ports.BreakerRepository
	history  ports.HistoryRepository

	now func() time.Time
}

// Deps bundles the collaborators the engine needs.
type Deps struct {
	Config     *config.Config
	Logger     ports.Logger
	MarketData ports.MarketDataProvider
	Providers  []ports.SignalProvider
	Notifier   ports.Notifier

	Trades   ports.TradeRepository
	Accounts ports.AccountRepository
	Breakers ports.BreakerRepository
	History  ports.HistoryRepository
}

// NewEngine creates the cycle orchestrator.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Config == nil || deps.Logger == nil || deps.MarketData == nil ||
		deps.Trades == nil || deps.Accounts == nil || deps.Breakers == nil || deps.History == nil {
		return nil, fmt.Errorf("missing required dependencies for Engine: %w", ports.ErrConfigurationError)
	}
	if len(deps.Providers) == 0 {
		return nil, fmt.Errorf("at least one signal provider is required: %w", ports.ErrConfigurationError)
	}

	providers := make(map[string]ports.SignalProvider, len(deps.Providers))
	for _, p := range deps.Providers {
		if _, dup := providers[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate signal provider %q: %w", p.Name(), ports.ErrConfigurationError)
		}
		providers[p.Name()] = p
	}
	for _, strat := range deps.Config.Strategies {
		if _, ok := providers[strat.Name]; !ok {
			return nil, fmt.Errorf("strategy %q has no signal provider: %w", strat.Name, ports.ErrConfigurationError)
		}
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = ports.NoopNotifier{}
	}

	return &Engine{
		cfg:        deps.Config,
		logger:     deps.Logger,
		marketData: deps.MarketData,
		providers:  providers,
		notifier:   notifier,
		trades:     deps.Trades,
		accounts:   deps.Accounts,
		breakers:   deps.Breakers,
		history:    deps.History,
		now:        time.Now,
	}, nil
}

// CycleReport summarizes what one cycle did.
type CycleReport struct {
	MarketsObserved   int
	SignalsFound      int
	Opened            int
	Closed            int
	StrategiesSkipped int
}

// RunCycle executes one full trading cycle. State-store failures are fatal;
// market-data failures only cost the affected market or strategy its turn.
func (e *Engine) RunCycle(ctx context.Context) (*CycleReport, error) {
	started := e.now()
	e.logger.Info(ctx, "cycle started", map[string]interface{}{"at": started.UTC().Format(time.RFC3339)})

	st, err := e.loadState(ctx)
	if err != nil {
		return nil, err
	}

	report := &CycleReport{}

	// Step 1: observe markets and record price history. A failed market
	// fetch is not fatal; exits are still evaluated below.
	markets, err := e.marketData.Markets(ctx)
	if err != nil {
		e.logger.Warn(ctx, "market fetch failed, skipping entries this cycle",
			map[string]interface{}{"error": err.Error()})
		markets = nil
	}

	tradeable := make([]domain.Market, 0, len(markets))
	prices := make(map[string]float64, len(markets))
	for _, m := range markets {
		// A zero YES price means the market is unpriced or already
		// resolved; a position opened there could never be settled.
		if m.YesPrice <= 0 {
			continue
		}
		prices[m.ID] = m.YesPrice
		if domain.ParseTimeframe(m.Question) != e.cfg.TargetTimeframe {
			continue
		}
		st.tracker.Record(m.ID, m.YesPrice, started.UTC())
		tradeable = append(tradeable, m)
	}
	report.MarketsObserved = len(tradeable)

	// Step 2: entries, strategy by strategy, gated by the breaker.
	for _, strat := range e.cfg.Strategies {
		if !st.breaker.IsTradeable(ctx, strat.Name) {
			e.logger.Info(ctx, "strategy locked out, skipping entries",
				map[string]interface{}{"strategy": strat.Name})
			report.StrategiesSkipped++
			continue
		}
		signals := e.collectSignals(ctx, strat, tradeable, st)
		report.SignalsFound += len(signals)
		report.Opened += e.openPositions(ctx, strat, signals, st)
	}

	// Step 3: exits. Evaluated for every open position regardless of the
	// breaker: lockout stops new risk, never prevents realizing value.
	report.Closed = e.closePositions(ctx, prices, st)

	// Step 4: persist everything that changed. Any failure here is fatal;
	// the stores are the only record of capital.
	if err := e.persist(ctx, st); err != nil {
		return nil, err
	}

	e.logger.Info(ctx, "cycle finished", map[string]interface{}{
		"markets": report.MarketsObserved,
		"signals": report.SignalsFound,
		"opened":  report.Opened,
		"closed":  report.Closed,
		"elapsed": e.now().Sub(started).String(),
	})
	return report, nil
}

// cycleState holds the in-memory working set for one cycle.
type cycleState struct {
	tracker *history.Tracker
	ledger  *ledger.Ledger
	breaker *risk.Breaker
	manager *trading.Manager
}

func (e *Engine) loadState(ctx context.Context) (*cycleState, error) {
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
	historyEntries, err := e.history.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load market history: %w", err)
	}

	initialCapital := make(map[string]float64, len(e.cfg.Strategies))
	for _, strat := range e.cfg.Strategies {
		initialCapital[strat.Name] = strat.InitialCapital
	}

	tracker := history.NewTracker(e.cfg.HistoryCap, historyEntries)
	ldgr := ledger.New(initialCapital, accounts)
	sizer, err := risk.NewSizer(risk.SizerConfig{
		MinPosition:     e.cfg.MinPosition,
		MaxPosition:     e.cfg.MaxPosition,
		ScaleUpFactor:   e.cfg.ScaleUpFactor,
		ScaleDownFactor: e.cfg.ScaleDownFactor,
	})
	if err != nil {
		return nil, err
	}
	breaker := risk.NewBreaker(risk.BreakerConfig{
		LossThreshold: e.cfg.BreakerLossThreshold,
		Lockout:       e.cfg.BreakerLockout,
	}, breakerStates, e.notifier, e.logger)
	breaker.SetClock(e.now)
	manager, err := trading.NewManager(positions, ldgr, sizer, breaker, e.cfg.FeeRate, e.logger)
	if err != nil {
		return nil, err
	}
	manager.SetClock(e.now)

	return &cycleState{tracker: tracker, ledger: ldgr, breaker: breaker, manager: manager}, nil
}

// collectSignals evaluates the strategy's provider over the tradeable
// markets. A failing evaluation costs only that market its turn.
func (e *Engine) collectSignals(ctx context.Context, strat domain.StrategyConfig, markets []domain.Market, st *cycleState) []*domain.Signal {
	provider := e.providers[strat.Name]
	signals := make([]*domain.Signal, 0)
	for _, m := range markets {
		sig, err := provider.Evaluate(ctx, m, m.YesPrice, st.tracker.Read(m.ID))
		if err != nil {
			e.logger.Warn(ctx, "signal evaluation failed, skipping market", map[string]interface{}{
				"strategy": strat.Name,
				"marketID": m.ID,
				"error":    err.Error(),
			})
			continue
		}
		if sig != nil {
			signals = append(signals, sig)
		}
	}
	sortSignals(signals, strat.Ordering)
	return signals
}

// sortSignals orders candidates deterministically: by the strategy's
// preference, market id breaking ties.
func sortSignals(signals []*domain.Signal, ordering domain.SignalOrdering) {
	sort.SliceStable(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		switch ordering {
		case domain.OrderByPrice:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		default: // OrderByConfidence
			if a.Confidence != b.Confidence {
				return a.Confidence > b.Confidence
			}
		}
		return a.MarketID < b.MarketID
	})
}

// openPositions opens up to the strategy's per-cycle cap, skipping markets
// where the strategy already holds an open position on the same horizon.
func (e *Engine) openPositions(ctx context.Context, strat domain.StrategyConfig, signals []*domain.Signal, st *cycleState) int {
	opened := 0
	for _, sig := range signals {
		if opened >= strat.MaxPositions {
			break
		}
		if st.manager.HasOpen(strat.Name, sig.MarketID, sig.Timeframe) {
			e.logger.Debug(ctx, "position already open for market, skipping signal",
				map[string]interface{}{"strategy": strat.Name, "marketID": sig.MarketID})
			continue
		}
		if st.manager.Open(ctx, strat, sig) != nil {
			opened++
		}
	}
	return opened
}

// closePositions exits every open position whose current YES price has
// risen above its strategy's exit threshold. Strictly above: a price
// sitting exactly on the threshold is held for another cycle.
func (e *Engine) closePositions(ctx context.Context, prices map[string]float64, st *cycleState) int {
	thresholds := make(map[string]float64, len(e.cfg.Strategies))
	for _, strat := range e.cfg.Strategies {
		thresholds[strat.Name] = strat.ExitThreshold
	}

	closed := 0
	for _, pos := range st.manager.OpenPositions() {
		threshold, ok := thresholds[pos.Strategy]
		if !ok {
			e.logger.Warn(ctx, "open position owned by unknown strategy, leaving untouched",
				map[string]interface{}{"positionID": pos.ID, "strategy": pos.Strategy})
			continue
		}

		price, ok := prices[pos.MarketID]
		if !ok {
			var err error
			price, err = e.marketData.CurrentPrice(ctx, pos.MarketID)
			if err != nil {
				if errors.Is(err, ports.ErrDataUnavailable) {
					e.logger.Warn(ctx, "price unavailable, position held for next cycle",
						map[string]interface{}{"positionID": pos.ID, "marketID": pos.MarketID})
					continue
				}
				e.logger.Error(ctx, err, "price lookup failed, position held",
					map[string]interface{}{"positionID": pos.ID, "marketID": pos.MarketID})
				continue
			}
			prices[pos.MarketID] = price
		}

		if price <= threshold {
			continue
		}
		if _, err := st.manager.Close(ctx, pos.ID, price); err != nil {
			e.logger.Error(ctx, err, "failed to close position",
				map[string]interface{}{"positionID": pos.ID})
			continue
		}
		closed++
	}
	return closed
}

// persist writes every record mutated this cycle back to the stores.
func (e *Engine) persist(ctx context.Context, st *cycleState) error {
	for _, pos := range st.manager.Created() {
		if err := e.trades.Create(ctx, pos); err != nil {
			return fmt.Errorf("failed to persist new position %s: %w", pos.ID, err)
		}
	}
	for _, pos := range st.manager.Updated() {
		if err := e.trades.Update(ctx, pos); err != nil {
			return fmt.Errorf("failed to persist closed position %s: %w", pos.ID, err)
		}
	}
	for _, acct := range st.ledger.Dirty() {
		if err := e.accounts.Save(ctx, acct); err != nil {
			return fmt.Errorf("failed to persist account %s: %w", acct.Strategy, err)
		}
	}
	for _, state := range st.breaker.Dirty() {
		if err := e.breakers.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to persist breaker %s: %w", state.Strategy, err)
		}
	}
	for _, marketID := range st.tracker.Dirty() {
		if err := e.history.Save(ctx, marketID, st.tracker.Read(marketID)); err != nil {
			return fmt.Errorf("failed to persist history for market %s: %w", marketID, err)
		}
	}
	return nil
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }
