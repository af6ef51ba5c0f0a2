package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"polytrader/internal/domain"
	"polytrader/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store owns the SQLite database shared by the four repositories (trades,
// accounts, breakers, market history). Each repository is exposed as a thin
// view over the same connection.
type Store struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite store.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewStore opens (creating if necessary) the database and initializes the
// schema. The connection uses WAL mode with a busy timeout so a concurrent
// reader never fails an in-flight cycle write.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite store")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/polytrader.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; limiting the pool avoids
	// writer contention in the Go driver.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, logger: cfg.Logger}
	if err := s.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return s, nil
}

func (s *Store) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		market_id TEXT NOT NULL,
		question TEXT NOT NULL,
		strategy TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		entry_price REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		stake REAL NOT NULL,
		exit_price REAL DEFAULT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		gross_pnl REAL DEFAULT NULL,
		fee REAL DEFAULT NULL,
		pnl REAL DEFAULT NULL,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accounts (
		strategy TEXT PRIMARY KEY,
		initial_capital REAL NOT NULL,
		balance REAL NOT NULL,
		realized_pnl REAL NOT NULL,
		consecutive_wins INTEGER NOT NULL,
		consecutive_losses INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS breakers (
		strategy TEXT PRIMARY KEY,
		consecutive_losses INTEGER NOT NULL,
		broken INTEGER NOT NULL,
		broken_until TIMESTAMP DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS market_history (
		market_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		price REAL NOT NULL,
		observed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (market_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_positions_status ON positions (status);
	CREATE INDEX IF NOT EXISTS idx_positions_strategy ON positions (strategy, status);
	`
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		s.logger.Info(context.Background(), "Closing SQLite database connection")
		return s.db.Close()
	}
	return nil
}

// Trades returns the position repository view.
func (s *Store) Trades() *TradeStore { return &TradeStore{s} }

// Accounts returns the capital account repository view.
func (s *Store) Accounts() *AccountStore { return &AccountStore{s} }

// Breakers returns the circuit breaker repository view.
func (s *Store) Breakers() *BreakerStore { return &BreakerStore{s} }

// History returns the market history repository view.
func (s *Store) History() *HistoryStore { return &HistoryStore{s} }

// --- TradeStore ---

// TradeStore implements ports.TradeRepository.
type TradeStore struct {
	s *Store
}

const positionColumns = `
	id, market_id, question, strategy, timeframe, entry_price, entry_time, stake,
	COALESCE(exit_price, 0), exit_time, COALESCE(gross_pnl, 0), COALESCE(fee, 0),
	COALESCE(pnl, 0), status`

// FindAll retrieves every position, ordered by entry time ascending.
func (t *TradeStore) FindAll(ctx context.Context) ([]*domain.Position, error) {
	return t.queryPositions(ctx, `SELECT `+positionColumns+` FROM positions ORDER BY entry_time ASC, id ASC`)
}

// FindOpen retrieves all open positions, ordered by entry time ascending.
func (t *TradeStore) FindOpen(ctx context.Context) ([]*domain.Position, error) {
	return t.queryPositions(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE status = ? ORDER BY entry_time ASC, id ASC`,
		string(domain.StatusOpen))
}

func (t *TradeStore) queryPositions(ctx context.Context, query string, args ...interface{}) ([]*domain.Position, error) {
	rows, err := t.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %v: %w", err, ports.ErrQueryFailed)
	}
	defer rows.Close()

	positions := make([]*domain.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode position row: %v: %w", err, ports.ErrMalformedState)
		}
		positions = append(positions, pos)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %v: %w", err, ports.ErrQueryFailed)
	}
	return positions, nil
}

// Create saves a new position. The caller assigns the id.
func (t *TradeStore) Create(ctx context.Context, pos *domain.Position) error {
	const query = `
	INSERT INTO positions (id, market_id, question, strategy, timeframe, entry_price, entry_time, stake, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := t.s.db.ExecContext(ctx, query,
		pos.ID, pos.MarketID, pos.Question, pos.Strategy, string(pos.Timeframe),
		pos.EntryPrice, pos.EntryTime, pos.Stake, string(pos.Status))
	if err != nil {
		return fmt.Errorf("failed to insert position %s: %v: %w", pos.ID, err, ports.ErrUpdateFailed)
	}
	t.s.logger.Debug(ctx, "Position persisted", map[string]interface{}{"positionID": pos.ID, "strategy": pos.Strategy})
	return nil
}

// Update rewrites an existing position by id.
func (t *TradeStore) Update(ctx context.Context, pos *domain.Position) error {
	const query = `
	UPDATE positions
	SET market_id = ?, question = ?, strategy = ?, timeframe = ?, entry_price = ?,
	    entry_time = ?, stake = ?, exit_price = ?, exit_time = ?, gross_pnl = ?,
	    fee = ?, pnl = ?, status = ?
	WHERE id = ?`

	var exitTime sql.NullTime
	if !pos.ExitTime.IsZero() {
		exitTime = sql.NullTime{Time: pos.ExitTime, Valid: true}
	}

	result, err := t.s.db.ExecContext(ctx, query,
		pos.MarketID, pos.Question, pos.Strategy, string(pos.Timeframe), pos.EntryPrice,
		pos.EntryTime, pos.Stake, pos.ExitPrice, exitTime, pos.GrossPNL,
		pos.Fee, pos.PNL, string(pos.Status),
		pos.ID)
	if err != nil {
		return fmt.Errorf("failed to update position %s: %v: %w", pos.ID, err, ports.ErrUpdateFailed)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for position %s: %w", pos.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("position %s not found for update: %w", pos.ID, ports.ErrNotFound)
	}
	t.s.logger.Debug(ctx, "Position updated", map[string]interface{}{"positionID": pos.ID, "status": pos.Status})
	return nil
}

// --- AccountStore ---

// AccountStore implements ports.AccountRepository.
type AccountStore struct {
	s *Store
}

// All loads every capital account keyed by strategy. An empty table reads
// back as an empty map.
func (a *AccountStore) All(ctx context.Context) (map[string]*domain.CapitalAccount, error) {
	const query = `
	SELECT strategy, initial_capital, balance, realized_pnl, consecutive_wins, consecutive_losses
	FROM accounts`

	rows, err := a.s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %v: %w", err, ports.ErrQueryFailed)
	}
	defer rows.Close()

	accounts := make(map[string]*domain.CapitalAccount)
	for rows.Next() {
		acct := &domain.CapitalAccount{}
		if err := rows.Scan(&acct.Strategy, &acct.InitialCapital, &acct.Balance,
			&acct.RealizedPnL, &acct.ConsecutiveWins, &acct.ConsecutiveLosses); err != nil {
			return nil, fmt.Errorf("failed to decode account row: %v: %w", err, ports.ErrMalformedState)
		}
		accounts[acct.Strategy] = acct
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %v: %w", err, ports.ErrQueryFailed)
	}
	return accounts, nil
}

// Save upserts a capital account.
func (a *AccountStore) Save(ctx context.Context, acct *domain.CapitalAccount) error {
	const query = `
	INSERT INTO accounts (strategy, initial_capital, balance, realized_pnl, consecutive_wins, consecutive_losses)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(strategy) DO UPDATE SET
		initial_capital = excluded.initial_capital,
		balance = excluded.balance,
		realized_pnl = excluded.realized_pnl,
		consecutive_wins = excluded.consecutive_wins,
		consecutive_losses = excluded.consecutive_losses`

	_, err := a.s.db.ExecContext(ctx, query,
		acct.Strategy, acct.InitialCapital, acct.Balance, acct.RealizedPnL,
		acct.ConsecutiveWins, acct.ConsecutiveLosses)
	if err != nil {
		return fmt.Errorf("failed to save account for %s: %v: %w", acct.Strategy, err, ports.ErrUpdateFailed)
	}
	return nil
}

// --- BreakerStore ---

// BreakerStore implements ports.BreakerRepository.
type BreakerStore struct {
	s *Store
}

// All loads every breaker state keyed by strategy.
func (b *BreakerStore) All(ctx context.Context) (map[string]*domain.BreakerState, error) {
	const query = `SELECT strategy, consecutive_losses, broken, broken_until FROM breakers`

	rows, err := b.s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query breakers: %v: %w", err, ports.ErrQueryFailed)
	}
	defer rows.Close()

	states := make(map[string]*domain.BreakerState)
	for rows.Next() {
		st := &domain.BreakerState{}
		var brokenUntil sql.NullTime
		if err := rows.Scan(&st.Strategy, &st.ConsecutiveLosses, &st.Broken, &brokenUntil); err != nil {
			return nil, fmt.Errorf("failed to decode breaker row: %v: %w", err, ports.ErrMalformedState)
		}
		if brokenUntil.Valid {
			st.BrokenUntil = brokenUntil.Time
		}
		states[st.Strategy] = st
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating breaker rows: %v: %w", err, ports.ErrQueryFailed)
	}
	return states, nil
}

// Save upserts a breaker state.
func (b *BreakerStore) Save(ctx context.Context, st *domain.BreakerState) error {
	const query = `
	INSERT INTO breakers (strategy, consecutive_losses, broken, broken_until)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(strategy) DO UPDATE SET
		consecutive_losses = excluded.consecutive_losses,
		broken = excluded.broken,
		broken_until = excluded.broken_until`

	var brokenUntil sql.NullTime
	if !st.BrokenUntil.IsZero() {
		brokenUntil = sql.NullTime{Time: st.BrokenUntil, Valid: true}
	}
	_, err := b.s.db.ExecContext(ctx, query, st.Strategy, st.ConsecutiveLosses, st.Broken, brokenUntil)
	if err != nil {
		return fmt.Errorf("failed to save breaker for %s: %v: %w", st.Strategy, err, ports.ErrUpdateFailed)
	}
	return nil
}

// --- HistoryStore ---

// HistoryStore implements ports.HistoryRepository.
type HistoryStore struct {
	s *Store
}

// All loads the full price history for every market, points ordered oldest
// first.
func (h *HistoryStore) All(ctx context.Context) (map[string][]domain.PricePoint, error) {
	const query = `SELECT market_id, price, observed_at FROM market_history ORDER BY market_id, seq ASC`

	rows, err := h.s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query market history: %v: %w", err, ports.ErrQueryFailed)
	}
	defer rows.Close()

	history := make(map[string][]domain.PricePoint)
	for rows.Next() {
		var marketID string
		var pt domain.PricePoint
		if err := rows.Scan(&marketID, &pt.Price, &pt.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to decode history row: %v: %w", err, ports.ErrMalformedState)
		}
		history[marketID] = append(history[marketID], pt)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %v: %w", err, ports.ErrQueryFailed)
	}
	return history, nil
}

// Save replaces the stored history for a market with the given points.
// Replacement runs in a transaction so a crash never leaves a half-written
// series behind.
func (h *HistoryStore) Save(ctx context.Context, marketID string, points []domain.PricePoint) error {
	tx, err := h.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction for %s: %v: %w", marketID, err, ports.ErrUpdateFailed)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM market_history WHERE market_id = ?`, marketID); err != nil {
		return fmt.Errorf("failed to clear history for %s: %v: %w", marketID, err, ports.ErrUpdateFailed)
	}
	const insert = `INSERT INTO market_history (market_id, seq, price, observed_at) VALUES (?, ?, ?, ?)`
	for i, pt := range points {
		if _, err := tx.ExecContext(ctx, insert, marketID, i, pt.Price, pt.Timestamp); err != nil {
			return fmt.Errorf("failed to insert history point for %s: %v: %w", marketID, err, ports.ErrUpdateFailed)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history for %s: %v: %w", marketID, err, ports.ErrUpdateFailed)
	}
	return nil
}

// --- Helpers ---

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(sc scanner) (*domain.Position, error) {
	p := &domain.Position{}
	var exitTime sql.NullTime
	var status, timeframe string
	err := sc.Scan(
		&p.ID, &p.MarketID, &p.Question, &p.Strategy, &timeframe, &p.EntryPrice,
		&p.EntryTime, &p.Stake, &p.ExitPrice, &exitTime, &p.GrossPNL, &p.Fee,
		&p.PNL, &status)
	if err != nil {
		return nil, err
	}
	if exitTime.Valid {
		p.ExitTime = exitTime.Time
	}
	p.Timeframe = domain.Timeframe(timeframe)
	p.Status = domain.PositionStatus(status)
	if p.Status != domain.StatusOpen && p.Status != domain.StatusClosed {
		return nil, fmt.Errorf("unknown position status %q", status)
	}
	return p, nil
}

var (
	_ ports.TradeRepository   = (*TradeStore)(nil)
	_ ports.AccountRepository = (*AccountStore)(nil)
	_ ports.BreakerRepository = (*BreakerStore)(nil)
	_ ports.HistoryRepository = (*HistoryStore)(nil)
)
