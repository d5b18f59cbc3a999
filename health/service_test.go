package health

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/propjournal/apex"
	"github.com/rustyeddy/propjournal/internal/logging"
	"github.com/rustyeddy/propjournal/journal"
	"github.com/rustyeddy/propjournal/journal/journaltest"
	"github.com/rustyeddy/propjournal/risk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportTime = time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *journal.Memory) {
	t.Helper()

	engine, err := apex.New(apex.DefaultTiers())
	require.NoError(t, err)

	store := journal.NewMemory()
	svc, err := NewService(store, engine, risk.DefaultSizingPolicy(), logging.Discard())
	require.NoError(t, err)
	svc.now = func() time.Time { return reportTime }
	return svc, store
}

// seedEdge records 16 losses of 200 then 24 wins of 250 on a 150k account.
// The balance bottoms at 146800, then climbs to 152800 with the stop at 147800.
func seedEdge(t *testing.T, store journal.Store, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateAccount(ctx, journaltest.Account(id)))

	var batch []apex.Trade
	at := journaltest.Base
	for i := 0; i < 16; i++ {
		at = at.Add(time.Hour)
		batch = append(batch, journaltest.Trade(fmt.Sprintf("%s-L%02d", id, i), id, "-200", at))
	}
	for i := 0; i < 24; i++ {
		at = at.Add(time.Hour)
		batch = append(batch, journaltest.Trade(fmt.Sprintf("%s-W%02d", id, i), id, "250", at))
	}
	require.NoError(t, store.RecordTrades(ctx, batch))
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	t.Parallel()

	engine, err := apex.New(apex.DefaultTiers())
	require.NoError(t, err)

	_, err = NewService(nil, engine, risk.DefaultSizingPolicy(), nil)
	assert.Error(t, err)

	_, err = NewService(journal.NewMemory(), nil, risk.DefaultSizingPolicy(), nil)
	assert.Error(t, err)

	bad := risk.DefaultSizingPolicy()
	bad.MinLot = 0
	_, err = NewService(journal.NewMemory(), engine, bad, nil)
	assert.True(t, errors.Is(err, risk.ErrInvalidSizing))
}

func TestEvaluateEmptyHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	require.NoError(t, store.CreateAccount(ctx, journaltest.Account("A1")))

	r, err := svc.Evaluate(ctx, "A1", SizeInput{PerUnitRisk: 200})
	require.NoError(t, err)

	assert.Equal(t, "145000", r.Snapshot.StopLevel.String())
	assert.Equal(t, "5000", r.Snapshot.Buffer.String())
	assert.Equal(t, apex.Trailing, r.Snapshot.StopStatus)
	assert.Equal(t, apex.PhaseBuilding, r.Snapshot.Phase)
	assert.Equal(t, 0, r.Stats.Trades)
	assert.Equal(t, 100.0, r.Ruin.Percent)
	assert.Nil(t, r.Limits)
	assert.NotEmpty(t, r.LimitsNote)
	assert.Empty(t, r.Curve)
	assert.Nil(t, r.LockEvent)
	assert.Nil(t, r.Breach)
	assert.Equal(t, reportTime, r.GeneratedAt)
}

func TestEvaluateWithEdge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	seedEdge(t, store, "A1")

	r, err := svc.Evaluate(ctx, "A1", SizeInput{PerUnitRisk: 200})
	require.NoError(t, err)

	snap := r.Snapshot
	assert.Equal(t, "152800", snap.CurrentBalance.String())
	assert.Equal(t, "152800", snap.HighWaterMark.String())
	assert.Equal(t, "147800", snap.StopLevel.String())
	assert.Equal(t, "5000", snap.Buffer.String())
	assert.Equal(t, 40, snap.TradeCount)

	assert.Equal(t, 40, r.Stats.Trades)
	assert.Equal(t, 24, r.Stats.Wins)
	assert.InDelta(t, 0.6, r.Stats.WinRate, 1e-12)
	assert.InDelta(t, 70, r.Stats.Expectancy, 1e-9)
	assert.InDelta(t, 1.25, r.Stats.PayoffRatio, 1e-12)

	assert.Equal(t, risk.ConfidenceHigh, r.Ruin.Confidence)
	assert.Less(t, r.Ruin.Percent, 0.001)

	require.NotNil(t, r.Limits)
	assert.InDelta(t, 0.28, r.Limits.KellyFraction, 1e-9)
	// Kelly alone allows 7 lots; the 2% ruin ceiling at 1 base lot allows 3.
	assert.Equal(t, 3, r.Limits.LotMax)
	assert.Equal(t, 3, r.Limits.LotMin)

	require.Len(t, r.Curve, 40)
	last := r.Curve[len(r.Curve)-1]
	assert.True(t, last.Balance.Equal(snap.CurrentBalance))
	assert.True(t, last.StopLevel.Equal(snap.StopLevel))
	assert.Nil(t, r.Breach)
}

func TestEvaluateBaseLotsRaisesRuinCeiling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	seedEdge(t, store, "A1")

	r, err := svc.Evaluate(ctx, "A1", SizeInput{PerUnitRisk: 200, BaseLots: 2})
	require.NoError(t, err)
	require.NotNil(t, r.Limits)
	assert.Equal(t, 7, r.Limits.LotMax)
	assert.Equal(t, 3, r.Limits.LotMin)
}

func TestEvaluateBreach(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)

	a := journaltest.Account("A50")
	a.InitialBalance = decimal.NewFromInt(50000)
	require.NoError(t, store.CreateAccount(ctx, a))
	require.NoError(t, store.RecordTrade(ctx, journaltest.Trade("T1", "A50", "-3000", journaltest.Base.Add(time.Hour))))

	r, err := svc.Evaluate(ctx, "A50", SizeInput{PerUnitRisk: 100})
	require.NoError(t, err)

	assert.Equal(t, "47500", r.Snapshot.StopLevel.String())
	assert.True(t, r.Snapshot.Buffer.IsZero())
	require.NotNil(t, r.Breach)
	assert.Equal(t, "T1", r.Breach.TradeID)
	assert.Equal(t, 100.0, r.Ruin.Percent)
	assert.Equal(t, "buffer exhausted", r.Ruin.Reason)
	assert.Nil(t, r.Limits)
}

func TestEvaluateLockEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	require.NoError(t, store.CreateAccount(ctx, journaltest.Account("A1")))
	require.NoError(t, store.RecordTrades(ctx, []apex.Trade{
		journaltest.Trade("T1", "A1", "3000", journaltest.Base.Add(1*time.Hour)),
		journaltest.Trade("T2", "A1", "2100", journaltest.Base.Add(2*time.Hour)),
		journaltest.Trade("T3", "A1", "-1000", journaltest.Base.Add(3*time.Hour)),
	}))

	r, err := svc.Evaluate(ctx, "A1", SizeInput{})
	require.NoError(t, err)

	assert.Equal(t, apex.Locked, r.Snapshot.StopStatus)
	assert.Equal(t, "150100", r.Snapshot.StopLevel.String())
	assert.Equal(t, apex.PhaseConsolidation, r.Snapshot.Phase)
	require.NotNil(t, r.LockEvent)
	assert.Equal(t, "T2", r.LockEvent.TradeID)
	assert.Equal(t, "no per-unit risk given", r.LimitsNote)
}

func TestEvaluateMissingAccount(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.Evaluate(context.Background(), "ghost", SizeInput{})
	assert.True(t, errors.Is(err, journal.ErrNotFound))

	_, err = svc.Curve(context.Background(), "ghost")
	assert.True(t, errors.Is(err, journal.ErrNotFound))
}

func TestEvaluateUnknownTier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	engine, err := apex.New(apex.TierTable{{
		Threshold:        decimal.NewFromInt(100000),
		DDMax:            decimal.NewFromInt(3000),
		LockOffset:       decimal.NewFromInt(100),
		Phase4Multiplier: 2,
	}})
	require.NoError(t, err)
	store := journal.NewMemory()
	svc, err := NewService(store, engine, risk.DefaultSizingPolicy(), logging.Discard())
	require.NoError(t, err)

	a := journaltest.Account("small")
	a.InitialBalance = decimal.NewFromInt(25000)
	require.NoError(t, store.CreateAccount(ctx, a))

	_, err = svc.Evaluate(ctx, "small", SizeInput{})
	assert.True(t, errors.Is(err, apex.ErrNoTier))
}

func TestEvaluateAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	seedEdge(t, store, "A1")

	b := journaltest.Account("B1")
	b.CreatedAt = journaltest.Base.Add(time.Minute)
	require.NoError(t, store.CreateAccount(ctx, b))

	reports, err := svc.EvaluateAll(ctx, SizeInput{PerUnitRisk: 200})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "A1", reports[0].Account.ID)
	assert.Equal(t, 40, reports[0].Snapshot.TradeCount)
	assert.Equal(t, "B1", reports[1].Account.ID)
	assert.Equal(t, 0, reports[1].Snapshot.TradeCount)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.EvaluateAll(cancelled, SizeInput{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCheckProposal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	seedEdge(t, store, "A1")

	d, r, err := svc.CheckProposal(ctx, "A1", risk.Proposal{Lots: 2, PerUnitRisk: 200})
	require.NoError(t, err)
	assert.True(t, d.Allowed, "%+v", d.Violations)
	assert.Equal(t, 400.0, d.PlannedRisk)
	assert.Equal(t, "5000", r.Snapshot.Buffer.String())

	d, _, err = svc.CheckProposal(ctx, "A1", risk.Proposal{Lots: 5, PerUnitRisk: 200})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.True(t, d.Has("LOTS_OVER_MAX"))
	assert.True(t, d.Has("RUIN_TOO_HIGH"))
	assert.False(t, d.Has("RISK_OVER_BUFFER"))
}

func TestCurve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	seedEdge(t, store, "A1")

	curve, err := svc.Curve(ctx, "A1")
	require.NoError(t, err)
	require.Len(t, curve, 40)
	assert.Equal(t, "A1-L00", curve[0].TradeID)
	assert.Equal(t, "149800", curve[0].Balance.String())
	assert.Equal(t, "145000", curve[0].StopLevel.String())
}

func TestPrintReport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	seedEdge(t, store, "A1")

	r, err := svc.Evaluate(ctx, "A1", SizeInput{PerUnitRisk: 200})
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintReport(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "Account Health: Funded A1")
	assert.Contains(t, out, "Balance:       152800.00")
	assert.Contains(t, out, "Stop Level:    147800.00 (TRAILING)")
	assert.Contains(t, out, "Buffer:        5000.00")
	assert.Contains(t, out, "Next Goal:     155100.00 (2300.00 to go)")
	assert.Contains(t, out, "Win Rate:      60.00%")
	assert.Contains(t, out, "(high)")
	assert.Contains(t, out, "Lots:          3 - 3")
	assert.NotContains(t, out, "BREACHED")
}

func TestFormatReportOrg(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)
	seedEdge(t, store, "A1")

	r, err := svc.Evaluate(ctx, "A1", SizeInput{PerUnitRisk: 200})
	require.NoError(t, err)

	out := FormatReportOrg(r)
	lines := strings.Split(out, "\n")
	assert.Equal(t, "* Health: Funded A1 [2024-07-01 Mon 18:00]", lines[0])
	assert.Equal(t, ":PROPERTIES:", lines[1])
	assert.Contains(t, out, ":STOP_LEVEL: 147800.00\n")
	assert.Contains(t, out, ":STOP_STATUS: TRAILING\n")
	assert.Contains(t, out, ":BUFFER: 5000.00\n")
	assert.Contains(t, out, ":RUIN_CONFIDENCE: high\n")
	assert.Contains(t, out, ":LOT_MAX: 3\n")
	assert.Contains(t, out, ":END:\n")
}

func TestPrintCurve(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintCurve(&buf, []apex.EquityPoint{{
		TradeID:       "T1",
		Time:          journaltest.Base,
		Result:        decimal.NewFromInt(-200),
		Balance:       decimal.NewFromInt(149800),
		HighWaterMark: decimal.NewFromInt(150000),
		StopLevel:     decimal.NewFromInt(145000),
		Buffer:        decimal.NewFromInt(4800),
		Status:        apex.Trailing,
	}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "TIME"))
	assert.Contains(t, lines[1], "2024-05-01 00:00:00")
	assert.Contains(t, lines[1], "-200.00")
	assert.Contains(t, lines[1], "4800.00")
	assert.True(t, strings.HasSuffix(lines[1], "TRAILING"))
}
