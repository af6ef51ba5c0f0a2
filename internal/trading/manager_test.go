package trading

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polytrader/internal/domain"
	"polytrader/internal/ledger"
	"polytrader/internal/ports"
	"polytrader/internal/risk"
)

type testLogger struct{}

func (testLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (testLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (testLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (testLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type fixture struct {
	manager *Manager
	ledger  *ledger.Ledger
	breaker *risk.Breaker
	strat   domain.StrategyConfig
	clock   time.Time
}

func newFixture(t *testing.T, positions []*domain.Position) *fixture {
	t.Helper()

	strat := domain.StrategyConfig{
		Name:           "Late Entry",
		InitialCapital: 100,
		RiskPerTrade:   0.05,
		ScaleUpAfter:   10,
		ScaleDownAfter: 3,
		MaxPositions:   2,
		ExitThreshold:  0.65,
		Ordering:       domain.OrderByPrice,
	}

	ldgr := ledger.New(map[string]float64{strat.Name: strat.InitialCapital}, nil)
	sizer, err := risk.NewSizer(risk.SizerConfig{
		MinPosition:     5,
		MaxPosition:     100,
		ScaleUpFactor:   1.5,
		ScaleDownFactor: 0.5,
	})
	require.NoError(t, err)
	breaker := risk.NewBreaker(risk.BreakerConfig{LossThreshold: 3, Lockout: 24 * time.Hour}, nil, nil, testLogger{})

	manager, err := NewManager(positions, ldgr, sizer, breaker, DefaultFeeRate, testLogger{})
	require.NoError(t, err)

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	manager.SetClock(func() time.Time { return clock })
	breaker.SetClock(func() time.Time { return clock })

	ids := 0
	manager.SetIDGenerator(func() string {
		ids++
		return fmt.Sprintf("pos-%04d", ids)
	})

	return &fixture{manager: manager, ledger: ldgr, breaker: breaker, strat: strat, clock: clock}
}

func signal(marketID string, price float64) *domain.Signal {
	return &domain.Signal{
		MarketID:   marketID,
		Question:   "Bitcoin Up or Down - June 1, 4h?",
		Strategy:   "Late Entry",
		Timeframe:  domain.Timeframe4h,
		Price:      price,
		Confidence: 0.8,
	}
}

func TestOpenCreatesStakedPosition(t *testing.T) {
	f := newFixture(t, nil)

	pos := f.manager.Open(context.Background(), f.strat, signal("mkt-1", 0.20))
	require.NotNil(t, pos)
	assert.Equal(t, "pos-0001", pos.ID)
	assert.Equal(t, "mkt-1", pos.MarketID)
	assert.Equal(t, "Late Entry", pos.Strategy)
	assert.Equal(t, domain.Timeframe4h, pos.Timeframe)
	assert.Equal(t, 0.20, pos.EntryPrice)
	assert.InDelta(t, 5.0, pos.Stake, 1e-9) // 100 * 0.05
	assert.Equal(t, domain.StatusOpen, pos.Status)
	assert.Equal(t, f.clock, pos.EntryTime)

	assert.True(t, f.manager.HasOpen("Late Entry", "mkt-1", domain.Timeframe4h))
	assert.False(t, f.manager.HasOpen("Late Entry", "mkt-2", domain.Timeframe4h))
	assert.False(t, f.manager.HasOpen("AI Contrarian", "mkt-1", domain.Timeframe4h))

	require.Len(t, f.manager.Created(), 1)
	assert.Empty(t, f.manager.Updated())
}

func TestOpenRefusesNonPositiveEntryPrice(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, price := range []float64{0, -0.10} {
		pos := f.manager.Open(ctx, f.strat, signal("mkt-1", price))
		assert.Nil(t, pos)
	}

	assert.Empty(t, f.manager.Positions())
	assert.Empty(t, f.manager.Created())
	assert.False(t, f.manager.HasOpen("Late Entry", "mkt-1", domain.Timeframe4h))
	assert.InDelta(t, 100.0, f.ledger.Get("Late Entry").Balance, 1e-9)
}

func TestCloseSettlesFeeAdjustedPnL(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	pos := f.manager.Open(ctx, f.strat, signal("mkt-1", 0.20))
	// Force the worked example: stake 10 at entry 0.20, exit 0.40.
	pos.Stake = 10

	closed, err := f.manager.Close(ctx, pos.ID, 0.40)
	require.NoError(t, err)

	// gross = (0.40-0.20) * (10/0.20) = 10.00
	// fee   = 10 * 0.02            = 0.20
	// pnl   = 9.80
	assert.InDelta(t, 10.00, closed.GrossPNL, 1e-9)
	assert.InDelta(t, 0.20, closed.Fee, 1e-9)
	assert.InDelta(t, 9.80, closed.PNL, 1e-9)
	assert.Equal(t, 0.40, closed.ExitPrice)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	assert.Equal(t, f.clock, closed.ExitTime)
	assert.False(t, f.manager.HasOpen("Late Entry", "mkt-1", domain.Timeframe4h))

	acct := f.ledger.Get("Late Entry")
	assert.InDelta(t, 109.80, acct.Balance, 1e-9)
	assert.Equal(t, 1, acct.ConsecutiveWins)

	require.Len(t, f.manager.Updated(), 1)
	assert.Same(t, closed, f.manager.Updated()[0])
}

func TestCloseUnknownIDReturnsPositionNotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.manager.Close(context.Background(), "no-such-id", 0.50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrPositionNotFound))
}

func TestCloseTwiceReturnsPositionNotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	pos := f.manager.Open(ctx, f.strat, signal("mkt-1", 0.20))
	_, err := f.manager.Close(ctx, pos.ID, 0.40)
	require.NoError(t, err)

	_, err = f.manager.Close(ctx, pos.ID, 0.50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrPositionNotFound))
}

func TestCloseFeedsBreaker(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		pos := f.manager.Open(ctx, f.strat, signal(fmt.Sprintf("mkt-%d", i), 0.50))
		_, err := f.manager.Close(ctx, pos.ID, 0.45)
		require.NoError(t, err)
	}

	assert.False(t, f.breaker.IsTradeable(ctx, "Late Entry"))
	st := f.breaker.State("Late Entry")
	assert.Equal(t, 3, st.ConsecutiveLosses)
	assert.Equal(t, f.clock.Add(24*time.Hour), st.BrokenUntil)
}

type captureNotifier struct {
	events []ports.BreakerEvent
}

func (c *captureNotifier) NotifyBreakerTripped(ctx context.Context, event ports.BreakerEvent) {
	c.events = append(c.events, event)
}

func TestBreakerAlertSumsLossStreakByCloseTime(t *testing.T) {
	ctx := context.Background()

	strat := domain.StrategyConfig{
		Name:           "Late Entry",
		InitialCapital: 100,
		RiskPerTrade:   0.05,
		ScaleUpAfter:   10,
		ScaleDownAfter: 3,
		MaxPositions:   4,
		ExitThreshold:  0.65,
		Ordering:       domain.OrderByPrice,
	}
	ldgr := ledger.New(map[string]float64{strat.Name: strat.InitialCapital}, nil)
	sizer, err := risk.NewSizer(risk.SizerConfig{
		MinPosition:     5,
		MaxPosition:     100,
		ScaleUpFactor:   1.5,
		ScaleDownFactor: 0.5,
	})
	require.NoError(t, err)
	notifier := &captureNotifier{}
	breaker := risk.NewBreaker(risk.BreakerConfig{LossThreshold: 3, Lockout: 24 * time.Hour}, nil, notifier, testLogger{})
	manager, err := NewManager(nil, ldgr, sizer, breaker, DefaultFeeRate, testLogger{})
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	manager.SetClock(func() time.Time { return now })
	breaker.SetClock(func() time.Time { return now })

	// All four enter at once at stake 5.
	var ids []string
	for _, mkt := range []string{"mkt-a", "mkt-b", "mkt-c", "mkt-d"} {
		pos := manager.Open(ctx, strat, signal(mkt, 0.50))
		require.NotNil(t, pos)
		ids = append(ids, pos.ID)
	}

	// Closes interleave with entry order: the win on mkt-b lands between
	// the losses, so the streak is a close-time sequence, not an
	// entry-time one. Each loss: gross -1.00, fee 0.10, pnl -1.10.
	closes := []struct {
		id   string
		exit float64
	}{
		{ids[1], 0.60}, // mkt-b win
		{ids[0], 0.40},
		{ids[2], 0.40},
		{ids[3], 0.40},
	}
	for _, c := range closes {
		now = now.Add(time.Hour)
		_, err := manager.Close(ctx, c.id, c.exit)
		require.NoError(t, err)
	}

	require.Len(t, notifier.events, 1)
	event := notifier.events[0]
	assert.Equal(t, "Late Entry", event.Strategy)
	assert.Equal(t, 3, event.ConsecutiveLosses)
	assert.InDelta(t, -3.30, event.TotalLoss, 1e-9)
}

func TestManagerLoadsPersistedPositions(t *testing.T) {
	entry := time.Date(2025, 5, 31, 8, 0, 0, 0, time.UTC)
	persisted := []*domain.Position{
		{
			ID: "old-open", MarketID: "mkt-1", Strategy: "Late Entry",
			Timeframe: domain.Timeframe4h, EntryPrice: 0.30, EntryTime: entry,
			Stake: 5, Status: domain.StatusOpen,
		},
		{
			ID: "old-closed", MarketID: "mkt-2", Strategy: "Late Entry",
			Timeframe: domain.Timeframe4h, EntryPrice: 0.30, EntryTime: entry,
			Stake: 5, ExitPrice: 0.70, PNL: 6.57, Status: domain.StatusClosed,
		},
	}
	f := newFixture(t, persisted)

	assert.True(t, f.manager.HasOpen("Late Entry", "mkt-1", domain.Timeframe4h))
	assert.False(t, f.manager.HasOpen("Late Entry", "mkt-2", domain.Timeframe4h))

	open := f.manager.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, "old-open", open[0].ID)

	// Loaded positions can be closed.
	closed, err := f.manager.Close(context.Background(), "old-open", 0.65)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	assert.Empty(t, f.manager.Created(), "loaded positions are not re-created")
	require.Len(t, f.manager.Updated(), 1)
}

func TestBalanceIdentityAcrossLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	exits := []float64{0.40, 0.10, 0.70, 0.25}
	for i, exit := range exits {
		pos := f.manager.Open(ctx, f.strat, signal(fmt.Sprintf("mkt-%d", i), 0.30))
		_, err := f.manager.Close(ctx, pos.ID, exit)
		require.NoError(t, err)
	}

	var sum float64
	for _, pos := range f.manager.Positions() {
		sum += pos.PNL
	}
	acct := f.ledger.Get("Late Entry")
	assert.InDelta(t, acct.InitialCapital+sum, acct.Balance, 1e-9)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, nil, nil, nil, DefaultFeeRate, testLogger{})
	assert.Error(t, err)

	ldgr := ledger.New(nil, nil)
	sizer, err := risk.NewSizer(risk.SizerConfig{MinPosition: 5, MaxPosition: 100, ScaleUpFactor: 1.5, ScaleDownFactor: 0.5})
	require.NoError(t, err)
	breaker := risk.NewBreaker(risk.BreakerConfig{}, nil, nil, testLogger{})

	_, err = NewManager(nil, ldgr, sizer, breaker, 1.5, testLogger{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrConfigurationError))
}
