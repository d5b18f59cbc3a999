// Package apex tracks the trailing-drawdown health of a funded trading account.
//
// Everything here is a pure function of an Account and its closed trades.
// Nothing reads a store or a clock, so callers decide which snapshot of the
// trade history an evaluation sees.
package apex

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAccount marks a precondition violation on Account.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrInvalidTrade marks a malformed trade record.
	ErrInvalidTrade = errors.New("invalid trade")
)

// StopStatus is the state of the trailing stop.
type StopStatus string

const (
	Trailing StopStatus = "TRAILING"
	Locked   StopStatus = "LOCKED"
)

// Phase is the display classification of an account.
type Phase string

const (
	PhaseBuilding      Phase = "Building buffer"
	PhaseConsolidation Phase = "Consolidation"
	PhaseTerminal      Phase = "Terminal"
)

// ParsePhase maps a stored label back to a Phase. Unknown labels return "".
func ParsePhase(s string) Phase {
	switch Phase(s) {
	case PhaseBuilding, PhaseConsolidation, PhaseTerminal:
		return Phase(s)
	}
	return ""
}

// Account is a registered funded account.
type Account struct {
	ID             string
	Name           string
	InitialBalance decimal.Decimal
	PriorPeak      *decimal.Decimal // nil means no peak was carried over
	EntryPhase     Phase            // display hint only
	CreatedAt      time.Time
}

// Peak returns the carried-over high-water mark, defaulting to the initial balance.
func (a Account) Peak() decimal.Decimal {
	if a.PriorPeak == nil {
		return a.InitialBalance
	}
	return *a.PriorPeak
}

// Validate reports precondition violations. A missing prior peak is fine.
func (a Account) Validate() error {
	if !a.InitialBalance.IsPositive() {
		return fmt.Errorf("%w: initial balance must be positive, got %s", ErrInvalidAccount, a.InitialBalance)
	}
	if a.PriorPeak != nil && a.PriorPeak.IsNegative() {
		return fmt.Errorf("%w: prior peak must not be negative, got %s", ErrInvalidAccount, a.PriorPeak)
	}
	return nil
}

// Trade is one closed position.
type Trade struct {
	ID         string
	AccountID  string
	Instrument string
	Lots       float64
	Result     decimal.Decimal // realized P/L, signed
	Timestamp  time.Time
	Notes      string
}

// Validate checks the fields the engine depends on.
func (t Trade) Validate() error {
	if t.Timestamp.IsZero() {
		return fmt.Errorf("%w: trade %q has no timestamp", ErrInvalidTrade, t.ID)
	}
	if t.Lots < 0 {
		return fmt.Errorf("%w: trade %q has negative lots", ErrInvalidTrade, t.ID)
	}
	return nil
}

// Results returns the realized P/L of each trade as float64, in the given order.
func Results(trades []Trade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.Result.InexactFloat64()
	}
	return out
}
