package apex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrNoTier is returned when a balance is below the lowest tier threshold.
var ErrNoTier = errors.New("no drawdown tier for balance")

// DrawdownTier holds the trailing drawdown rules for one account-size bracket.
type DrawdownTier struct {
	Threshold        decimal.Decimal // smallest initial balance this tier applies to
	DDMax            decimal.Decimal // max trailing drawdown before breach
	LockOffset       decimal.Decimal // added to the initial balance once the stop locks
	Phase4Multiplier float64         // multiple of DDMax above initial marking the terminal phase
}

// LockThreshold is the high-water mark at which the stop stops trailing.
func (t DrawdownTier) LockThreshold(initial decimal.Decimal) decimal.Decimal {
	return initial.Add(t.DDMax).Add(t.LockOffset)
}

// TerminalThreshold is the balance at which a locked account reaches the terminal phase.
func (t DrawdownTier) TerminalThreshold(initial decimal.Decimal) decimal.Decimal {
	return initial.Add(t.DDMax.Mul(decimal.NewFromFloat(t.Phase4Multiplier)))
}

// TierTable is an ordered list of tiers, ascending by threshold.
type TierTable []DrawdownTier

// DefaultTiers returns the built-in funding program brackets.
func DefaultTiers() TierTable {
	mk := func(threshold, ddMax int64) DrawdownTier {
		return DrawdownTier{
			Threshold:        decimal.NewFromInt(threshold),
			DDMax:            decimal.NewFromInt(ddMax),
			LockOffset:       decimal.NewFromInt(100),
			Phase4Multiplier: 2,
		}
	}
	return TierTable{
		mk(0, 1500),
		mk(50000, 2500),
		mk(100000, 3000),
		mk(150000, 5000),
	}
}

// Validate checks the table is non-empty, strictly ascending and sane.
func (tt TierTable) Validate() error {
	if len(tt) == 0 {
		return fmt.Errorf("tier table is empty")
	}
	for i, t := range tt {
		if t.Threshold.IsNegative() {
			return fmt.Errorf("tier %d: threshold must not be negative", i)
		}
		if !t.DDMax.IsPositive() {
			return fmt.Errorf("tier %d: dd_max must be positive", i)
		}
		if t.LockOffset.IsNegative() {
			return fmt.Errorf("tier %d: lock_offset must not be negative", i)
		}
		if t.Phase4Multiplier < 1 {
			return fmt.Errorf("tier %d: phase4_multiplier must be >= 1", i)
		}
		if i > 0 && !t.Threshold.GreaterThan(tt[i-1].Threshold) {
			return fmt.Errorf("tier %d: thresholds must be strictly ascending", i)
		}
	}
	return nil
}

// Lookup picks the highest tier whose threshold is <= balance.
func (tt TierTable) Lookup(balance decimal.Decimal) (DrawdownTier, error) {
	i := sort.Search(len(tt), func(i int) bool {
		return tt[i].Threshold.GreaterThan(balance)
	})
	if i == 0 {
		return DrawdownTier{}, fmt.Errorf("%w: %s", ErrNoTier, balance.String())
	}
	return tt[i-1], nil
}

// DefaultPhase4Multiplier applies to a tier record that omits phase4_multiplier.
const DefaultPhase4Multiplier = 2.0

// tierRecord is the on-disk shape of a tier. Money fields decode straight
// into decimals from numbers or strings. A missing phase4_multiplier means
// DefaultPhase4Multiplier; an explicit value must be at least 1.
type tierRecord struct {
	Threshold        decimal.Decimal `json:"threshold" yaml:"threshold"`
	DDMax            decimal.Decimal `json:"dd_max" yaml:"dd_max"`
	LockOffset       decimal.Decimal `json:"lock_offset" yaml:"lock_offset"`
	Phase4Multiplier *float64        `json:"phase4_multiplier,omitempty" yaml:"phase4_multiplier,omitempty"`
}

type tierFile struct {
	Tiers []tierRecord `json:"tiers" yaml:"tiers"`
}

// ParseTiers decodes a tier table, trying YAML first and falling back to JSON.
func ParseTiers(data []byte) (TierTable, error) {
	var f tierFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse tiers (tried YAML and JSON): %w", err)
		}
	}

	tt := make(TierTable, 0, len(f.Tiers))
	for _, r := range f.Tiers {
		mult := DefaultPhase4Multiplier
		if r.Phase4Multiplier != nil {
			mult = *r.Phase4Multiplier
		}
		tt = append(tt, DrawdownTier{
			Threshold:        r.Threshold,
			DDMax:            r.DDMax,
			LockOffset:       r.LockOffset,
			Phase4Multiplier: mult,
		})
	}
	sort.SliceStable(tt, func(i, j int) bool {
		return tt[i].Threshold.LessThan(tt[j].Threshold)
	})

	if err := tt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tiers: %w", err)
	}
	return tt, nil
}

// LoadTiers reads a tier table from a YAML or JSON file.
func LoadTiers(path string) (TierTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tiers file: %w", err)
	}
	return ParseTiers(data)
}

// Marshal encodes the table in the same YAML layout ParseTiers reads.
func (tt TierTable) Marshal() ([]byte, error) {
	f := tierFile{Tiers: make([]tierRecord, 0, len(tt))}
	for _, t := range tt {
		mult := t.Phase4Multiplier
		f.Tiers = append(f.Tiers, tierRecord{
			Threshold:        t.Threshold,
			DDMax:            t.DDMax,
			LockOffset:       t.LockOffset,
			Phase4Multiplier: &mult,
		})
	}
	return yaml.Marshal(f)
}
