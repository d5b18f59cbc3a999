package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/propjournal/apex"
	"github.com/rustyeddy/propjournal/pkg/id"
	"github.com/shopspring/decimal"
)

// CSVHeader is the column layout written by ExportCSV.
var CSVHeader = []string{"trade_id", "account_id", "instrument", "lots", "result", "timestamp", "notes"}

// ExportCSV writes trades with a header row.
func ExportCSV(w io.Writer, trades []apex.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write([]string{
			t.ID,
			t.AccountID,
			t.Instrument,
			strconv.FormatFloat(t.Lots, 'f', -1, 64),
			t.Result.String(),
			t.Timestamp.UTC().Format(time.RFC3339),
			t.Notes,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportCSV reads trades for accountID. The header row names the columns;
// result and timestamp are required, the rest optional. Rows without a
// trade_id get a fresh ULID. An account_id column, if present, is ignored
// in favour of accountID.
func ImportCSV(r io.Reader, accountID string) ([]apex.Trade, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"result", "timestamp"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("%w: csv is missing %q column", ErrInvalidInput, req)
		}
	}

	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var out []apex.Trade
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		t := apex.Trade{
			ID:         get(rec, "trade_id"),
			AccountID:  accountID,
			Instrument: get(rec, "instrument"),
			Notes:      get(rec, "notes"),
		}
		if t.ID == "" {
			t.ID = id.New()
		}
		if t.Result, err = decimal.NewFromString(get(rec, "result")); err != nil {
			return nil, fmt.Errorf("%w: line %d: result: %v", ErrInvalidInput, line, err)
		}
		if t.Timestamp, err = parseTimestamp(get(rec, "timestamp")); err != nil {
			return nil, fmt.Errorf("%w: line %d: timestamp: %v", ErrInvalidInput, line, err)
		}
		if lots := get(rec, "lots"); lots != "" {
			if t.Lots, err = strconv.ParseFloat(lots, 64); err != nil {
				return nil, fmt.Errorf("%w: line %d: lots: %v", ErrInvalidInput, line, err)
			}
		}
		if err := ValidateTrade(t); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, t)
	}
	return out, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTimestamp accepts RFC3339 and a few spreadsheet-style layouts; values
// without a zone are read as UTC.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
