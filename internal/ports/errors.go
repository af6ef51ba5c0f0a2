package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these so the core can
// branch on errors.Is without knowing the adapter.
var (
	// General Errors
	ErrNotFound           = errors.New("resource not found")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Market Data Errors
	// ErrDataUnavailable means a price or candle fetch exhausted its
	// retries. The affected market is skipped for the cycle; never fatal.
	ErrDataUnavailable = errors.New("market data unavailable")

	// State Store Errors
	// ErrMalformedState means a persisted store exists but is structurally
	// invalid. Fatal: the engine must not fabricate ledger or breaker
	// state from corrupt data.
	ErrMalformedState = errors.New("persisted state is malformed")
	ErrQueryFailed    = errors.New("store query failed")
	ErrUpdateFailed   = errors.New("store update failed")

	// Trading Errors
	// ErrPositionNotFound means a close was requested for an id with no
	// matching OPEN position. Reported to the caller, not retried.
	ErrPositionNotFound = errors.New("no open position with that id")

	// Notification Errors
	ErrNotificationFailed = errors.New("notification delivery failed")
)
