package apex

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// HealthSnapshot is the derived state of an account after its trade history.
type HealthSnapshot struct {
	CurrentBalance decimal.Decimal
	HighWaterMark  decimal.Decimal
	StopLevel      decimal.Decimal
	Buffer         decimal.Decimal
	LockThreshold  decimal.Decimal
	StopStatus     StopStatus
	Phase          Phase
	EntryPhase     Phase

	// NextGoal is zero and GoalReached is true in the terminal phase.
	NextGoal       decimal.Decimal
	DistanceToGoal decimal.Decimal
	GoalReached    bool

	Tier       DrawdownTier
	TradeCount int
}

// EquityPoint is the account state right after one trade.
type EquityPoint struct {
	TradeID       string
	Time          time.Time
	Result        decimal.Decimal
	Balance       decimal.Decimal
	HighWaterMark decimal.Decimal
	StopLevel     decimal.Decimal
	Buffer        decimal.Decimal
	Status        StopStatus
}

// Engine evaluates accounts against a tier table.
type Engine struct {
	tiers TierTable
}

// New returns an Engine for the given tiers. An invalid table is an error.
func New(tiers TierTable) (*Engine, error) {
	if err := tiers.Validate(); err != nil {
		return nil, err
	}
	return &Engine{tiers: tiers}, nil
}

// Tiers returns the table this engine evaluates against.
func (e *Engine) Tiers() TierTable {
	return e.tiers
}

// Evaluate computes the HealthSnapshot for acct after trades.
// Trades are ordered by timestamp before the equity curve is built;
// the caller's slice is not modified.
func (e *Engine) Evaluate(acct Account, trades []Trade) (HealthSnapshot, error) {
	tier, ordered, err := e.prepare(acct, trades)
	if err != nil {
		return HealthSnapshot{}, err
	}

	initial := acct.InitialBalance
	balance := initial
	hwm := decimal.Max(initial, acct.Peak())
	for _, t := range ordered {
		balance = balance.Add(t.Result)
		hwm = decimal.Max(hwm, balance)
	}

	snap := HealthSnapshot{
		CurrentBalance: balance,
		HighWaterMark:  hwm,
		LockThreshold:  tier.LockThreshold(initial),
		EntryPhase:     acct.EntryPhase,
		Tier:           tier,
		TradeCount:     len(ordered),
	}
	snap.StopLevel, snap.StopStatus = stopFor(tier, initial, hwm)
	snap.Buffer = decimal.Max(decimal.Zero, balance.Sub(snap.StopLevel))

	switch {
	case snap.StopStatus == Trailing:
		snap.Phase = PhaseBuilding
		snap.NextGoal = snap.LockThreshold
	case balance.LessThan(tier.TerminalThreshold(initial)):
		snap.Phase = PhaseConsolidation
		snap.NextGoal = tier.TerminalThreshold(initial)
	default:
		snap.Phase = PhaseTerminal
		snap.GoalReached = true
	}
	if !snap.GoalReached {
		snap.DistanceToGoal = decimal.Max(decimal.Zero, snap.NextGoal.Sub(balance))
	}

	return snap, nil
}

// EquityCurve returns the account state after each trade, in timestamp order.
// The last point always agrees with Evaluate over the same inputs.
func (e *Engine) EquityCurve(acct Account, trades []Trade) ([]EquityPoint, error) {
	tier, ordered, err := e.prepare(acct, trades)
	if err != nil {
		return nil, err
	}

	initial := acct.InitialBalance
	balance := initial
	hwm := decimal.Max(initial, acct.Peak())

	curve := make([]EquityPoint, 0, len(ordered))
	for _, t := range ordered {
		balance = balance.Add(t.Result)
		hwm = decimal.Max(hwm, balance)
		stop, status := stopFor(tier, initial, hwm)
		curve = append(curve, EquityPoint{
			TradeID:       t.ID,
			Time:          t.Timestamp,
			Result:        t.Result,
			Balance:       balance,
			HighWaterMark: hwm,
			StopLevel:     stop,
			Buffer:        decimal.Max(decimal.Zero, balance.Sub(stop)),
			Status:        status,
		})
	}
	return curve, nil
}

// LockEvent returns the first point at which the stop was locked.
func LockEvent(curve []EquityPoint) (EquityPoint, bool) {
	for _, p := range curve {
		if p.Status == Locked {
			return p, true
		}
	}
	return EquityPoint{}, false
}

// Breached reports whether the balance ever touched the stop level.
func Breached(curve []EquityPoint) (EquityPoint, bool) {
	for _, p := range curve {
		if p.Balance.LessThanOrEqual(p.StopLevel) {
			return p, true
		}
	}
	return EquityPoint{}, false
}

func (e *Engine) prepare(acct Account, trades []Trade) (DrawdownTier, []Trade, error) {
	if err := acct.Validate(); err != nil {
		return DrawdownTier{}, nil, err
	}
	tier, err := e.tiers.Lookup(acct.InitialBalance)
	if err != nil {
		return DrawdownTier{}, nil, fmt.Errorf("account %q: %w", acct.ID, err)
	}

	ordered := make([]Trade, len(trades))
	copy(ordered, trades)
	for _, t := range ordered {
		if err := t.Validate(); err != nil {
			return DrawdownTier{}, nil, err
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})
	return tier, ordered, nil
}

// stopFor applies the lock rule. The high-water mark never decreases, so once
// it crosses the lock threshold the locked stop holds for good.
func stopFor(tier DrawdownTier, initial, hwm decimal.Decimal) (decimal.Decimal, StopStatus) {
	if hwm.GreaterThanOrEqual(tier.LockThreshold(initial)) {
		return initial.Add(tier.LockOffset), Locked
	}
	return hwm.Sub(tier.DDMax), Trailing
}
