// Package journal stores funded accounts and their closed trades.
//
// The risk engines never import this package; callers load an account and
// one snapshot of its trades, then hand plain values to apex and risk.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/propjournal/apex"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a record with the same ID exists.
	// Trades are append-only and are never updated in place.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when a record fails validation.
	ErrInvalidInput = errors.New("invalid input")
)

// AccountStore persists account configuration.
type AccountStore interface {
	// CreateAccount adds an account. Returns ErrDuplicateKey if the ID exists.
	CreateAccount(ctx context.Context, a apex.Account) error

	// GetAccount returns ErrNotFound if the account does not exist.
	GetAccount(ctx context.Context, id string) (apex.Account, error)

	// ListAccounts returns all accounts ordered by creation time.
	ListAccounts(ctx context.Context) ([]apex.Account, error)

	// UpdatePriorPeak replaces the carried-over high-water mark.
	UpdatePriorPeak(ctx context.Context, id string, peak decimal.Decimal) error
}

// TradeStore persists closed trades.
type TradeStore interface {
	// RecordTrade appends a trade. The account must exist.
	RecordTrade(ctx context.Context, t apex.Trade) error

	// RecordTrades appends a batch atomically. Fails the whole batch on any error.
	RecordTrades(ctx context.Context, trades []apex.Trade) error

	// GetTrade returns ErrNotFound if the trade does not exist.
	GetTrade(ctx context.Context, id string) (apex.Trade, error)

	// ListTrades returns every trade of an account ordered by timestamp ASC.
	ListTrades(ctx context.Context, accountID string) ([]apex.Trade, error)

	// ListTradesBetween returns trades with timestamp in [start, end), ordered ASC.
	ListTradesBetween(ctx context.Context, accountID string, start, end time.Time) ([]apex.Trade, error)
}

// Store is the full journal backend.
type Store interface {
	AccountStore
	TradeStore
	Close() error
}

// ValidateAccount checks an account before it is stored.
func ValidateAccount(a apex.Account) error {
	if a.ID == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// ValidateTrade checks a trade before it is stored.
func ValidateTrade(t apex.Trade) error {
	if t.ID == "" {
		return fmt.Errorf("%w: trade id is required", ErrInvalidInput)
	}
	if t.AccountID == "" {
		return fmt.Errorf("%w: trade %q has no account id", ErrInvalidInput, t.ID)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
