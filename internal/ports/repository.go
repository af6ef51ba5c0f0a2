package ports

import (
	"context"

	"polytrader/internal/domain"
)

// The four durable stores. Each is loaded wholesale at cycle start and
// rewritten at cycle end; within a cycle all mutation happens in memory.
// A store that has never been written reads back empty (MissingState is not
// an error); a store that exists but cannot be decoded surfaces
// ErrMalformedState.

// TradeRepository stores the position ledger, the sole source of truth for
// capital and position state.
type TradeRepository interface {
	// FindAll retrieves every position, ordered by entry time ascending.
	FindAll(ctx context.Context) ([]*domain.Position, error)
	// FindOpen retrieves all OPEN positions, ordered by entry time ascending.
	FindOpen(ctx context.Context) ([]*domain.Position, error)
	// Create saves a new position. The caller assigns the id.
	Create(ctx context.Context, pos *domain.Position) error
	// Update rewrites an existing position by id.
	// Returns ErrNotFound when no such position exists.
	Update(ctx context.Context, pos *domain.Position) error
}

// AccountRepository stores per-strategy capital accounts.
type AccountRepository interface {
	All(ctx context.Context) (map[string]*domain.CapitalAccount, error)
	Save(ctx context.Context, acct *domain.CapitalAccount) error
}

// BreakerRepository stores per-strategy circuit-breaker state.
type BreakerRepository interface {
	All(ctx context.Context) (map[string]*domain.BreakerState, error)
	Save(ctx context.Context, state *domain.BreakerState) error
}

// HistoryRepository stores the bounded per-market price history.
type HistoryRepository interface {
	All(ctx context.Context) (map[string][]domain.PricePoint, error)
	Save(ctx context.Context, marketID string, points []domain.PricePoint) error
}
