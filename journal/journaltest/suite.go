// Package journaltest holds a conformance suite shared by journal.Store
// implementations.
package journaltest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rustyeddy/propjournal/apex"
	"github.com/rustyeddy/propjournal/journal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Base is the reference time used by the suite.
var Base = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// Account returns a valid 150k account with the given ID.
func Account(id string) apex.Account {
	return apex.Account{
		ID:             id,
		Name:           "Funded " + id,
		InitialBalance: decimal.NewFromInt(150000),
		EntryPhase:     apex.PhaseBuilding,
		CreatedAt:      Base,
	}
}

// Trade returns a valid trade for acct.
func Trade(id, acct string, result string, at time.Time) apex.Trade {
	return apex.Trade{
		ID:         id,
		AccountID:  acct,
		Instrument: "ES",
		Lots:       2,
		Result:     decimal.RequireFromString(result),
		Timestamp:  at,
		Notes:      "note " + id,
	}
}

// Run runs the same behavioural checks against any Store.
func Run(t *testing.T, open func(t *testing.T) journal.Store) {
	ctx := context.Background()

	t.Run("account round trip", func(t *testing.T) {
		s := open(t)
		a := Account("A1")
		require.NoError(t, s.CreateAccount(ctx, a))

		got, err := s.GetAccount(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, a.Name, got.Name)
		assert.True(t, a.InitialBalance.Equal(got.InitialBalance))
		assert.Nil(t, got.PriorPeak)
		assert.Equal(t, apex.PhaseBuilding, got.EntryPhase)
		assert.True(t, got.CreatedAt.Equal(Base))
	})

	t.Run("duplicate account", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateAccount(ctx, Account("A1")))
		err := s.CreateAccount(ctx, Account("A1"))
		assert.True(t, errors.Is(err, journal.ErrDuplicateKey))
	})

	t.Run("invalid account", func(t *testing.T) {
		s := open(t)
		a := Account("bad")
		a.InitialBalance = decimal.NewFromInt(-5)
		assert.True(t, errors.Is(s.CreateAccount(ctx, a), journal.ErrInvalidInput))
		assert.True(t, errors.Is(s.CreateAccount(ctx, Account("")), journal.ErrInvalidInput))
	})

	t.Run("missing account", func(t *testing.T) {
		s := open(t)
		_, err := s.GetAccount(ctx, "nope")
		assert.True(t, errors.Is(err, journal.ErrNotFound))
		assert.True(t, errors.Is(s.UpdatePriorPeak(ctx, "nope", decimal.NewFromInt(1)), journal.ErrNotFound))
	})

	t.Run("update prior peak", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateAccount(ctx, Account("A1")))
		require.NoError(t, s.UpdatePriorPeak(ctx, "A1", decimal.RequireFromString("152000.50")))

		got, err := s.GetAccount(ctx, "A1")
		require.NoError(t, err)
		require.NotNil(t, got.PriorPeak)
		assert.Equal(t, "152000.5", got.PriorPeak.String())

		assert.True(t, errors.Is(s.UpdatePriorPeak(ctx, "A1", decimal.NewFromInt(-1)), journal.ErrInvalidInput))
	})

	t.Run("list accounts", func(t *testing.T) {
		s := open(t)
		for i, name := range []string{"C", "A", "B"} {
			a := Account(name)
			a.CreatedAt = Base.Add(time.Duration(i) * time.Hour)
			require.NoError(t, s.CreateAccount(ctx, a))
		}
		got, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "C", got[0].ID)
		assert.Equal(t, "B", got[2].ID)
	})

	t.Run("trades ordered by timestamp", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateAccount(ctx, Account("A1")))
		require.NoError(t, s.CreateAccount(ctx, Account("A2")))

		require.NoError(t, s.RecordTrade(ctx, Trade("T3", "A1", "500", Base.Add(10*time.Hour))))
		require.NoError(t, s.RecordTrade(ctx, Trade("T1", "A1", "-125.25", Base.Add(2*time.Hour))))
		require.NoError(t, s.RecordTrade(ctx, Trade("T2", "A1", "100", Base.Add(5*time.Hour))))
		require.NoError(t, s.RecordTrade(ctx, Trade("X1", "A2", "999", Base.Add(1*time.Hour))))

		got, err := s.ListTrades(ctx, "A1")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "T1", got[0].ID)
		assert.Equal(t, "T2", got[1].ID)
		assert.Equal(t, "T3", got[2].ID)
		assert.Equal(t, "-125.25", got[0].Result.String())
		assert.True(t, got[0].Timestamp.Equal(Base.Add(2*time.Hour)))
		assert.Equal(t, "ES", got[0].Instrument)
		assert.Equal(t, 2.0, got[0].Lots)
		assert.Equal(t, "note T1", got[0].Notes)

		between, err := s.ListTradesBetween(ctx, "A1", Base.Add(3*time.Hour), Base.Add(10*time.Hour))
		require.NoError(t, err)
		require.Len(t, between, 1)
		assert.Equal(t, "T2", between[0].ID)

		one, err := s.GetTrade(ctx, "X1")
		require.NoError(t, err)
		assert.Equal(t, "A2", one.AccountID)

		_, err = s.GetTrade(ctx, "missing")
		assert.True(t, errors.Is(err, journal.ErrNotFound))
	})

	t.Run("trade for unknown account", func(t *testing.T) {
		s := open(t)
		err := s.RecordTrade(ctx, Trade("T1", "ghost", "10", Base))
		assert.True(t, errors.Is(err, journal.ErrNotFound))
	})

	t.Run("duplicate trade", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateAccount(ctx, Account("A1")))
		require.NoError(t, s.RecordTrade(ctx, Trade("T1", "A1", "10", Base)))
		err := s.RecordTrade(ctx, Trade("T1", "A1", "20", Base))
		assert.True(t, errors.Is(err, journal.ErrDuplicateKey))
	})

	t.Run("batch is atomic", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateAccount(ctx, Account("A1")))
		require.NoError(t, s.RecordTrade(ctx, Trade("T2", "A1", "10", Base)))

		batch := []apex.Trade{
			Trade("T1", "A1", "10", Base.Add(time.Hour)),
			Trade("T2", "A1", "10", Base.Add(2*time.Hour)),
		}
		assert.True(t, errors.Is(s.RecordTrades(ctx, batch), journal.ErrDuplicateKey))

		got, err := s.ListTrades(ctx, "A1")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("invalid trade", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateAccount(ctx, Account("A1")))
		bad := Trade("T1", "A1", "10", time.Time{})
		assert.True(t, errors.Is(s.RecordTrade(ctx, bad), journal.ErrInvalidInput))
	})

	t.Run("empty history", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateAccount(ctx, Account("A1")))
		got, err := s.ListTrades(ctx, "A1")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("many trades", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateAccount(ctx, Account("A1")))
		var batch []apex.Trade
		for i := 0; i < 100; i++ {
			batch = append(batch, Trade(fmt.Sprintf("T%03d", i), "A1", "1.5", Base.Add(time.Duration(i)*time.Minute)))
		}
		require.NoError(t, s.RecordTrades(ctx, batch))
		got, err := s.ListTrades(ctx, "A1")
		require.NoError(t, err)
		require.Len(t, got, 100)
		assert.Equal(t, "T099", got[99].ID)
	})
}

