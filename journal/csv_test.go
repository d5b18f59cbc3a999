package journal

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/propjournal/apex"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportCSV(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC)
	trades := []apex.Trade{
		{ID: "T1", AccountID: "A1", Instrument: "ES", Lots: 2, Result: decimal.RequireFromString("-125.25"), Timestamp: at, Notes: "chased, stopped"},
		{ID: "T2", AccountID: "A1", Instrument: "NQ", Lots: 0.5, Result: decimal.RequireFromString("310"), Timestamp: at.Add(time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, trades))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "trade_id,account_id,instrument,lots,result,timestamp,notes\n"))
	assert.Contains(t, out, `T1,A1,ES,2,-125.25,2024-06-03T15:30:00Z,"chased, stopped"`)

	got, err := ImportCSV(&buf, "A9")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "T1", got[0].ID)
	assert.Equal(t, "A9", got[0].AccountID)
	assert.Equal(t, "ES", got[0].Instrument)
	assert.Equal(t, 2.0, got[0].Lots)
	assert.Equal(t, "-125.25", got[0].Result.String())
	assert.True(t, got[0].Timestamp.Equal(at))
	assert.Equal(t, "chased, stopped", got[0].Notes)
	assert.Equal(t, 0.5, got[1].Lots)
}

func TestImportCSVMinimalColumns(t *testing.T) {
	t.Parallel()

	in := "Timestamp, Result\n2024-06-03 09:31, 250\n2024-06-04,-100.5\n"
	got, err := ImportCSV(strings.NewReader(in), "A1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Len(t, got[0].ID, 26, "missing trade ids get a ULID")
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.True(t, got[0].Timestamp.Equal(time.Date(2024, 6, 3, 9, 31, 0, 0, time.UTC)))
	assert.True(t, got[1].Timestamp.Equal(time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "-100.5", got[1].Result.String())
}

func TestImportCSVErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		account string
		want    string
	}{
		{name: "no account", input: "result,timestamp\n", account: "", want: "account id"},
		{name: "missing result column", input: "timestamp\n2024-06-03\n", account: "A1", want: `"result"`},
		{name: "missing timestamp column", input: "result\n10\n", account: "A1", want: `"timestamp"`},
		{name: "bad result", input: "result,timestamp\nabc,2024-06-03\n", account: "A1", want: "line 2"},
		{name: "bad timestamp", input: "result,timestamp\n10,yesterday\n", account: "A1", want: "line 2"},
		{name: "negative lots", input: "result,timestamp,lots\n10,2024-06-03,1\n10,2024-06-03,-1\n", account: "A1", want: "line 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportCSV(strings.NewReader(tt.input), tt.account)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestImportCSVEmpty(t *testing.T) {
	t.Parallel()

	got, err := ImportCSV(strings.NewReader(""), "A1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 6, 3, 13, 45, 10, 0, time.UTC)
	for _, s := range []string{
		"2024-06-03T13:45:10Z",
		"2024-06-03T09:45:10-04:00",
		"2024-06-03 13:45:10",
		"2024-06-03T13:45:10",
	} {
		got, err := parseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, got.Equal(want), s)
		assert.Equal(t, time.UTC, got.Location(), s)
	}

	_, err := parseTimestamp("06/03/2024")
	assert.Error(t, err)
}
