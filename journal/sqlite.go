package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/propjournal/apex"
	"github.com/shopspring/decimal"
)

// SQLite is a Store backed by a single SQLite file.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (or creates) the journal at path and applies the schema.
func NewSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Debug("Opened sqlite journal", "path", path)
	return &SQLite{db: db, logger: logger}, nil
}

func (j *SQLite) CreateAccount(ctx context.Context, a apex.Account) error {
	if err := ValidateAccount(a); err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, initial_balance, prior_peak, entry_phase, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.InitialBalance.String(), nullDecimal(a.PriorPeak),
		string(a.EntryPhase), a.CreatedAt.UTC(),
	)
	if err != nil {
		if isSQLiteDuplicate(err) {
			return fmt.Errorf("account %q: %w", a.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("insert account: %w", err)
	}

	j.logger.Info("Created account", "account_id", a.ID, "initial_balance", a.InitialBalance.String())
	return nil
}

func (j *SQLite) GetAccount(ctx context.Context, id string) (apex.Account, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, name, initial_balance, prior_peak, entry_phase, created_at
		FROM accounts
		WHERE id = ?`, id)

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apex.Account{}, fmt.Errorf("account %q: %w", id, ErrNotFound)
		}
		return apex.Account{}, err
	}
	return a, nil
}

func (j *SQLite) ListAccounts(ctx context.Context) ([]apex.Account, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, name, initial_balance, prior_peak, entry_phase, created_at
		FROM accounts
		ORDER BY created_at ASC, id ASC`)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) UpdatePriorPeak(ctx context.Context, id string, peak decimal.Decimal) error {
	if peak.IsNegative() {
		return fmt.Errorf("%w: prior peak must not be negative", ErrInvalidInput)
	}
	res, err := j.db.ExecContext(ctx, `UPDATE accounts SET prior_peak = ? WHERE id = ?`, peak.String(), id)
	if err != nil {
		return fmt.Errorf("update prior peak: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("account %q: %w", id, ErrNotFound)
	}

	j.logger.Info("Updated prior peak", "account_id", id, "prior_peak", peak.String())
	return nil
}

func (j *SQLite) RecordTrade(ctx context.Context, t apex.Trade) error {
	return j.RecordTrades(ctx, []apex.Trade{t})
}

func (j *SQLite) RecordTrades(ctx context.Context, trades []apex.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if err := ValidateTrade(t); err != nil {
			return err
		}
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	known := map[string]bool{}
	for _, t := range trades {
		if !known[t.AccountID] {
			var one int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, t.AccountID).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("account %q: %w", t.AccountID, ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("check account: %w", err)
			}
			known[t.AccountID] = true
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO trades (trade_id, account_id, instrument, lots, result, timestamp, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.AccountID, t.Instrument, t.Lots, t.Result.String(), t.Timestamp.UTC(), t.Notes,
		)
		if err != nil {
			if isSQLiteDuplicate(err) {
				return fmt.Errorf("trade %q: %w", t.ID, ErrDuplicateKey)
			}
			return fmt.Errorf("insert trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	j.logger.Debug("Recorded trades", "count", len(trades))
	return nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(ctx context.Context, id string) (apex.Trade, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT trade_id, account_id, instrument, lots, result, timestamp, notes
		FROM trades
		WHERE trade_id = ?`, id)

	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apex.Trade{}, fmt.Errorf("trade %q: %w", id, ErrNotFound)
		}
		return apex.Trade{}, err
	}
	return t, nil
}

func (j *SQLite) ListTrades(ctx context.Context, accountID string) ([]apex.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, account_id, instrument, lots, result, timestamp, notes
		FROM trades
		WHERE account_id = ?
		ORDER BY timestamp ASC, trade_id ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	return collectTrades(rows)
}

// ListTradesBetween returns trades whose timestamp is within [start, end).
func (j *SQLite) ListTradesBetween(ctx context.Context, accountID string, start, end time.Time) ([]apex.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, account_id, instrument, lots, result, timestamp, notes
		FROM trades
		WHERE account_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC, trade_id ASC`, accountID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	return collectTrades(rows)
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (apex.Account, error) {
	var (
		a       apex.Account
		initial string
		peak    sql.NullString
		phase   string
	)
	if err := r.Scan(&a.ID, &a.Name, &initial, &peak, &phase, &a.CreatedAt); err != nil {
		return apex.Account{}, err
	}

	var err error
	if a.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return apex.Account{}, fmt.Errorf("account %q: bad initial balance %q: %w", a.ID, initial, err)
	}
	if peak.Valid {
		p, err := decimal.NewFromString(peak.String)
		if err != nil {
			return apex.Account{}, fmt.Errorf("account %q: bad prior peak %q: %w", a.ID, peak.String, err)
		}
		a.PriorPeak = &p
	}
	a.EntryPhase = apex.ParsePhase(phase)
	return a, nil
}

func scanTrade(r rowScanner) (apex.Trade, error) {
	var (
		t      apex.Trade
		result string
	)
	if err := r.Scan(&t.ID, &t.AccountID, &t.Instrument, &t.Lots, &result, &t.Timestamp, &t.Notes); err != nil {
		return apex.Trade{}, err
	}
	var err error
	if t.Result, err = decimal.NewFromString(result); err != nil {
		return apex.Trade{}, fmt.Errorf("trade %q: bad result %q: %w", t.ID, result, err)
	}
	return t, nil
}

func collectTrades(rows *sql.Rows) ([]apex.Trade, error) {
	defer rows.Close()

	var out []apex.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func isSQLiteDuplicate(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		if se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return true
		}
		return se.Code == sqlite3.ErrConstraint && strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}
