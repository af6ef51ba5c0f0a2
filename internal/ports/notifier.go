package ports

import (
	"context"
	"time"
)

// BreakerEvent describes a circuit-breaker trip for alerting.
type BreakerEvent struct {
	Strategy          string
	ConsecutiveLosses int
	TotalLoss         float64
	BrokenUntil       time.Time
}

// Notifier delivers out-of-band alerts. Delivery is fire-and-forget: a
// failing notifier must never affect trade execution or persistence, so
// implementations log failures and return nothing.
type Notifier interface {
	NotifyBreakerTripped(ctx context.Context, event BreakerEvent)
}

// NoopNotifier is the default Notifier used when no alert channel is
// configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyBreakerTripped(ctx context.Context, event BreakerEvent) {}
