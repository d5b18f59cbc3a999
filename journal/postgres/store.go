package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rustyeddy/propjournal/apex"
	"github.com/rustyeddy/propjournal/journal"
	"github.com/shopspring/decimal"
)

// Store implements journal.Store using PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Compile-time interface check.
var _ journal.Store = (*Store)(nil)

// NewStore wraps an open pool. Close closes the pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Open connects to dsn, applies the schema and returns a Store.
func Open(ctx context.Context, dsn string, pc PoolConfig, logger *slog.Logger) (*Store, error) {
	pool, err := NewPool(ctx, dsn, pc, logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewStore(pool, logger), nil
}

func (s *Store) CreateAccount(ctx context.Context, a apex.Account) error {
	if err := journal.ValidateAccount(a); err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	var peak *string
	if a.PriorPeak != nil {
		p := a.PriorPeak.String()
		peak = &p
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, name, initial_balance, prior_peak, entry_phase, created_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6)`,
		a.ID, a.Name, a.InitialBalance.String(), peak, string(a.EntryPhase), a.CreatedAt.UTC(),
	)
	if err != nil {
		if pgCode(err) == pgErrUniqueViolation {
			return fmt.Errorf("account %q: %w", a.ID, journal.ErrDuplicateKey)
		}
		return fmt.Errorf("insert account: %w", err)
	}

	s.logger.Info("Created account", "account_id", a.ID, "initial_balance", a.InitialBalance.String())
	return nil
}

const accountColumns = `id, name, initial_balance::text, prior_peak::text, entry_phase, created_at`

func (s *Store) GetAccount(ctx context.Context, id string) (apex.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err != nil {
		if isNotFound(err) {
			return apex.Account{}, fmt.Errorf("account %q: %w", id, journal.ErrNotFound)
		}
		return apex.Account{}, err
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]apex.Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []apex.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePriorPeak(ctx context.Context, id string, peak decimal.Decimal) error {
	if peak.IsNegative() {
		return fmt.Errorf("%w: prior peak must not be negative", journal.ErrInvalidInput)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET prior_peak = $1::numeric WHERE id = $2`, peak.String(), id)
	if err != nil {
		return fmt.Errorf("update prior peak: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %q: %w", id, journal.ErrNotFound)
	}
	s.logger.Info("Updated prior peak", "account_id", id, "prior_peak", peak.String())
	return nil
}

func (s *Store) RecordTrade(ctx context.Context, t apex.Trade) error {
	return s.RecordTrades(ctx, []apex.Trade{t})
}

// RecordTrades adds multiple trades atomically. Fails entire batch on any error.
func (s *Store) RecordTrades(ctx context.Context, trades []apex.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if err := journal.ValidateTrade(t); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		_, err := tx.Exec(ctx, `
			INSERT INTO trades (trade_id, account_id, instrument, lots, result, timestamp, notes)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)`,
			t.ID, t.AccountID, t.Instrument, t.Lots, t.Result.String(), t.Timestamp.UTC(), t.Notes,
		)
		if err != nil {
			switch pgCode(err) {
			case pgErrUniqueViolation:
				return fmt.Errorf("trade %q: %w", t.ID, journal.ErrDuplicateKey)
			case pgErrForeignKeyViolation:
				return fmt.Errorf("account %q: %w", t.AccountID, journal.ErrNotFound)
			}
			return fmt.Errorf("insert trade: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("Recorded trades", "count", len(trades))
	return nil
}

const tradeColumns = `trade_id, account_id, instrument, lots, result::text, timestamp, notes`

func (s *Store) GetTrade(ctx context.Context, id string) (apex.Trade, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE trade_id = $1`, id)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFound(err) {
			return apex.Trade{}, fmt.Errorf("trade %q: %w", id, journal.ErrNotFound)
		}
		return apex.Trade{}, err
	}
	return t, nil
}

func (s *Store) ListTrades(ctx context.Context, accountID string) ([]apex.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+` FROM trades
		WHERE account_id = $1
		ORDER BY timestamp ASC, trade_id ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	return collectTrades(rows)
}

func (s *Store) ListTradesBetween(ctx context.Context, accountID string, start, end time.Time) ([]apex.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+` FROM trades
		WHERE account_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp ASC, trade_id ASC`, accountID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	return collectTrades(rows)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanAccount(row pgx.Row) (apex.Account, error) {
	var (
		a       apex.Account
		initial string
		peak    *string
		phase   string
	)
	if err := row.Scan(&a.ID, &a.Name, &initial, &peak, &phase, &a.CreatedAt); err != nil {
		return apex.Account{}, err
	}

	var err error
	if a.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return apex.Account{}, fmt.Errorf("account %q: bad initial balance: %w", a.ID, err)
	}
	if peak != nil {
		p, err := decimal.NewFromString(*peak)
		if err != nil {
			return apex.Account{}, fmt.Errorf("account %q: bad prior peak: %w", a.ID, err)
		}
		a.PriorPeak = &p
	}
	a.EntryPhase = apex.ParsePhase(phase)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func scanTrade(row pgx.Row) (apex.Trade, error) {
	var (
		t      apex.Trade
		result string
	)
	if err := row.Scan(&t.ID, &t.AccountID, &t.Instrument, &t.Lots, &result, &t.Timestamp, &t.Notes); err != nil {
		return apex.Trade{}, err
	}
	var err error
	if t.Result, err = decimal.NewFromString(result); err != nil {
		return apex.Trade{}, fmt.Errorf("trade %q: bad result: %w", t.ID, err)
	}
	t.Timestamp = t.Timestamp.UTC()
	return t, nil
}

func collectTrades(rows pgx.Rows) ([]apex.Trade, error) {
	defer rows.Close()

	var out []apex.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
