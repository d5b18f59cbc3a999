package journal_test

import (
	"context"
	"testing"

	"github.com/rustyeddy/propjournal/journal"
	"github.com/rustyeddy/propjournal/journal/journaltest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	journaltest.Run(t, func(t *testing.T) journal.Store {
		return journal.NewMemory()
	})
}

func TestMemoryReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := journal.NewMemory()

	a := journaltest.Account("A1")
	p := decimal.NewFromInt(151000)
	a.PriorPeak = &p
	require.NoError(t, m.CreateAccount(ctx, a))

	got, err := m.GetAccount(ctx, "A1")
	require.NoError(t, err)
	*got.PriorPeak = decimal.NewFromInt(1)

	again, err := m.GetAccount(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "151000", again.PriorPeak.String())
}
