package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polytrader/internal/domain"
)

func TestGetCreatesDefaultAccount(t *testing.T) {
	l := New(map[string]float64{"Late Entry": 100}, nil)

	acct := l.Get("Late Entry")
	require.NotNil(t, acct)
	assert.Equal(t, "Late Entry", acct.Strategy)
	assert.Equal(t, 100.0, acct.InitialCapital)
	assert.Equal(t, 100.0, acct.Balance)
	assert.Zero(t, acct.RealizedPnL)
	assert.Zero(t, acct.ConsecutiveWins)
	assert.Zero(t, acct.ConsecutiveLosses)

	// Same account on repeated access.
	assert.Same(t, acct, l.Get("Late Entry"))
}

func TestGetReturnsLoadedAccount(t *testing.T) {
	loaded := map[string]*domain.CapitalAccount{
		"Late Entry": {Strategy: "Late Entry", InitialCapital: 100, Balance: 87.5, RealizedPnL: -12.5},
	}
	l := New(map[string]float64{"Late Entry": 100}, loaded)

	acct := l.Get("Late Entry")
	assert.Equal(t, 87.5, acct.Balance)
	assert.Equal(t, -12.5, acct.RealizedPnL)
	assert.Empty(t, l.Dirty(), "reading a loaded account must not mark it dirty")
}

func TestApplyCloseUpdatesBalanceAndStreaks(t *testing.T) {
	l := New(map[string]float64{"Late Entry": 100}, nil)

	l.ApplyClose("Late Entry", 9.8)
	acct := l.Get("Late Entry")
	assert.InDelta(t, 109.8, acct.Balance, 1e-9)
	assert.InDelta(t, 9.8, acct.RealizedPnL, 1e-9)
	assert.Equal(t, 1, acct.ConsecutiveWins)
	assert.Equal(t, 0, acct.ConsecutiveLosses)

	l.ApplyClose("Late Entry", -4.8)
	assert.InDelta(t, 105.0, acct.Balance, 1e-9)
	assert.InDelta(t, 5.0, acct.RealizedPnL, 1e-9)
	assert.Equal(t, 0, acct.ConsecutiveWins)
	assert.Equal(t, 1, acct.ConsecutiveLosses)

	l.ApplyClose("Late Entry", -2.0)
	assert.Equal(t, 2, acct.ConsecutiveLosses)
}

func TestApplyCloseZeroPnLCountsAsWin(t *testing.T) {
	l := New(map[string]float64{"Late Entry": 100}, nil)
	l.ApplyClose("Late Entry", -1.0)
	l.ApplyClose("Late Entry", 0.0)

	acct := l.Get("Late Entry")
	assert.Equal(t, 1, acct.ConsecutiveWins)
	assert.Equal(t, 0, acct.ConsecutiveLosses)
}

func TestBalanceIdentityOverCloses(t *testing.T) {
	l := New(map[string]float64{"Late Entry": 100}, nil)

	pnls := []float64{3.2, -1.5, 9.8, -4.1, 0.0, 2.6}
	var sum float64
	for _, pnl := range pnls {
		l.ApplyClose("Late Entry", pnl)
		sum += pnl
	}

	acct := l.Get("Late Entry")
	assert.InDelta(t, acct.InitialCapital+sum, acct.Balance, 1e-9)
	assert.InDelta(t, sum, acct.RealizedPnL, 1e-9)
}

func TestStrategiesAreIsolated(t *testing.T) {
	capital := map[string]float64{"A": 100, "B": 100}
	l := New(capital, nil)

	l.ApplyClose("A", -50)

	assert.InDelta(t, 50.0, l.Get("A").Balance, 1e-9)
	assert.InDelta(t, 100.0, l.Get("B").Balance, 1e-9)
}

func TestDirtyReturnsMutatedAccounts(t *testing.T) {
	loaded := map[string]*domain.CapitalAccount{
		"A": {Strategy: "A", InitialCapital: 100, Balance: 100},
		"B": {Strategy: "B", InitialCapital: 100, Balance: 100},
	}
	l := New(map[string]float64{"A": 100, "B": 100}, loaded)

	l.ApplyClose("A", 1.0)

	dirty := l.Dirty()
	require.Len(t, dirty, 1)
	assert.Equal(t, "A", dirty[0].Strategy)
}
