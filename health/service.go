// Package health ties the journal to the drawdown and risk engines: it reads
// one account and its trade history, then derives the snapshot, statistics,
// ruin estimate and lot band in a single pass.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/propjournal/apex"
	"github.com/rustyeddy/propjournal/journal"
	"github.com/rustyeddy/propjournal/risk"
)

// SizeInput describes the next trade for lot sizing.
type SizeInput struct {
	PerUnitRisk float64 // loss per lot at the stop; 0 skips the lot band
	BaseLots    float64 // lots behind the historical results; 0 means 1
}

// Report is everything the journal knows about an account's health.
type Report struct {
	Account  apex.Account
	Snapshot apex.HealthSnapshot
	Stats    risk.Stats
	Ruin     risk.RuinEstimate

	// Limits is nil when no per-unit risk was given or the edge cannot be
	// sized; LimitsNote then says why.
	Limits     *risk.Limits
	LimitsNote string

	Curve     []apex.EquityPoint
	LockEvent *apex.EquityPoint
	Breach    *apex.EquityPoint

	GeneratedAt time.Time
}

// Service evaluates accounts stored in a journal.
type Service struct {
	store  journal.Store
	engine *apex.Engine
	policy risk.SizingPolicy
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a store to an engine and sizing policy.
func NewService(store journal.Store, engine *apex.Engine, policy risk.SizingPolicy, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("health: store is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("health: engine is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, engine: engine, policy: policy, logger: logger, now: time.Now}, nil
}

// Policy returns the sizing policy in use.
func (s *Service) Policy() risk.SizingPolicy {
	return s.policy
}

// Evaluate builds a Report for accountID. The trade history is read once and
// every figure in the report is derived from that same slice.
func (s *Service) Evaluate(ctx context.Context, accountID string, in SizeInput) (Report, error) {
	acct, trades, err := s.load(ctx, accountID)
	if err != nil {
		return Report{}, err
	}
	return s.build(acct, trades, in)
}

// EvaluateAll builds a Report for every account, in store order.
func (s *Service) EvaluateAll(ctx context.Context, in SizeInput) ([]Report, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	out := make([]Report, 0, len(accounts))
	for _, acct := range accounts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		trades, err := s.store.ListTrades(ctx, acct.ID)
		if err != nil {
			return nil, fmt.Errorf("list trades for %q: %w", acct.ID, err)
		}
		r, err := s.build(acct, trades, in)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// CheckProposal evaluates a planned trade against the account's current
// buffer and edge.
func (s *Service) CheckProposal(ctx context.Context, accountID string, prop risk.Proposal) (risk.Decision, Report, error) {
	r, err := s.Evaluate(ctx, accountID, SizeInput{PerUnitRisk: prop.PerUnitRisk, BaseLots: prop.BaseLots})
	if err != nil {
		return risk.Decision{}, Report{}, err
	}
	d := s.policy.Evaluate(prop, r.Stats, r.Snapshot.Buffer.InexactFloat64())

	s.logger.Info("Checked proposal",
		"account_id", accountID,
		"lots", prop.Lots,
		"allowed", d.Allowed,
		"violations", len(d.Violations),
	)
	return d, r, nil
}

// Curve returns the equity curve for accountID.
func (s *Service) Curve(ctx context.Context, accountID string) ([]apex.EquityPoint, error) {
	acct, trades, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.engine.EquityCurve(acct, trades)
}

func (s *Service) load(ctx context.Context, accountID string) (apex.Account, []apex.Trade, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return apex.Account{}, nil, err
	}
	trades, err := s.store.ListTrades(ctx, accountID)
	if err != nil {
		return apex.Account{}, nil, fmt.Errorf("list trades for %q: %w", accountID, err)
	}
	return acct, trades, nil
}

func (s *Service) build(acct apex.Account, trades []apex.Trade, in SizeInput) (Report, error) {
	snap, err := s.engine.Evaluate(acct, trades)
	if err != nil {
		return Report{}, fmt.Errorf("evaluate %q: %w", acct.ID, err)
	}
	curve, err := s.engine.EquityCurve(acct, trades)
	if err != nil {
		return Report{}, fmt.Errorf("equity curve %q: %w", acct.ID, err)
	}

	stats := risk.ComputeStats(apex.Results(trades))
	buffer := snap.Buffer.InexactFloat64()

	r := Report{
		Account:     acct,
		Snapshot:    snap,
		Stats:       stats,
		Ruin:        s.policy.EstimateRuin(stats, buffer),
		Curve:       curve,
		GeneratedAt: s.now(),
	}
	if p, ok := apex.LockEvent(curve); ok {
		r.LockEvent = &p
	}
	if p, ok := apex.Breached(curve); ok {
		r.Breach = &p
	}

	switch {
	case in.PerUnitRisk <= 0:
		r.LimitsNote = "no per-unit risk given"
	case stats.PayoffRatio <= 0:
		r.LimitsNote = "payoff ratio undefined until there are both wins and losses"
	default:
		base := in.BaseLots
		if base <= 0 {
			base = 1
		}
		lim, err := s.policy.RecommendLimits(stats, stats.PayoffRatio, buffer, in.PerUnitRisk)
		if err != nil {
			return Report{}, fmt.Errorf("size %q: %w", acct.ID, err)
		}
		lim = s.policy.CapForRuin(lim, stats, buffer, base)
		r.Limits = &lim
	}

	s.logger.Debug("Evaluated account",
		"account_id", acct.ID,
		"trades", snap.TradeCount,
		"balance", snap.CurrentBalance.String(),
		"buffer", snap.Buffer.String(),
		"status", snap.StopStatus,
		"ruin_pct", r.Ruin.Percent,
	)
	if r.Breach != nil {
		s.logger.Warn("Account breached trailing stop",
			"account_id", acct.ID,
			"trade_id", r.Breach.TradeID,
			"balance", r.Breach.Balance.String(),
			"stop_level", r.Breach.StopLevel.String(),
		)
	}
	return r, nil
}
