package journal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/propjournal/apex"
	"github.com/shopspring/decimal"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]apex.Account
	trades   map[string]apex.Trade
	byAcct   map[string][]string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]apex.Account),
		trades:   make(map[string]apex.Trade),
		byAcct:   make(map[string][]string),
	}
}

func (m *Memory) CreateAccount(_ context.Context, a apex.Account) error {
	if err := ValidateAccount(a); err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[a.ID]; ok {
		return fmt.Errorf("account %q: %w", a.ID, ErrDuplicateKey)
	}
	m.accounts[a.ID] = copyAccount(a)
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id string) (apex.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return apex.Account{}, fmt.Errorf("account %q: %w", id, ErrNotFound)
	}
	return copyAccount(a), nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]apex.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]apex.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, copyAccount(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdatePriorPeak(_ context.Context, id string, peak decimal.Decimal) error {
	if peak.IsNegative() {
		return fmt.Errorf("%w: prior peak must not be negative", ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return fmt.Errorf("account %q: %w", id, ErrNotFound)
	}
	a.PriorPeak = &peak
	m.accounts[id] = a
	return nil
}

func (m *Memory) RecordTrade(ctx context.Context, t apex.Trade) error {
	return m.RecordTrades(ctx, []apex.Trade{t})
}

func (m *Memory) RecordTrades(_ context.Context, trades []apex.Trade) error {
	for _, t := range trades {
		if err := ValidateTrade(t); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(trades))
	for _, t := range trades {
		if _, ok := m.accounts[t.AccountID]; !ok {
			return fmt.Errorf("account %q: %w", t.AccountID, ErrNotFound)
		}
		if _, ok := m.trades[t.ID]; ok || seen[t.ID] {
			return fmt.Errorf("trade %q: %w", t.ID, ErrDuplicateKey)
		}
		seen[t.ID] = true
	}
	for _, t := range trades {
		m.trades[t.ID] = t
		m.byAcct[t.AccountID] = append(m.byAcct[t.AccountID], t.ID)
	}
	return nil
}

func (m *Memory) GetTrade(_ context.Context, id string) (apex.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.trades[id]
	if !ok {
		return apex.Trade{}, fmt.Errorf("trade %q: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *Memory) ListTrades(_ context.Context, accountID string) ([]apex.Trade, error) {
	return m.list(accountID, func(apex.Trade) bool { return true }), nil
}

func (m *Memory) ListTradesBetween(_ context.Context, accountID string, start, end time.Time) ([]apex.Trade, error) {
	return m.list(accountID, func(t apex.Trade) bool {
		return !t.Timestamp.Before(start) && t.Timestamp.Before(end)
	}), nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) list(accountID string, keep func(apex.Trade) bool) []apex.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []apex.Trade
	for _, id := range m.byAcct[accountID] {
		if t := m.trades[id]; keep(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func copyAccount(a apex.Account) apex.Account {
	if a.PriorPeak != nil {
		p := *a.PriorPeak
		a.PriorPeak = &p
	}
	return a
}
