package risk

import "fmt"

// SizingPolicy holds the calibration constants for position sizing.
type SizingPolicy struct {
	ConservativeFraction float64 // lot_min as a fraction of lot_max; 0.5 is half-Kelly
	MinLot               int     // smallest tradable size once any size is justified
	RuinTolerancePct     float64 // ruin ceiling used when capping lot_max
	MinSampleSize        int     // trades needed before an estimate counts as high confidence
}

// DefaultSizingPolicy is half-Kelly, 1 lot minimum, 2% ruin tolerance.
func DefaultSizingPolicy() SizingPolicy {
	return SizingPolicy{
		ConservativeFraction: 0.5,
		MinLot:               1,
		RuinTolerancePct:     2.0,
		MinSampleSize:        MinSampleSize,
	}
}

func (p SizingPolicy) Validate() error {
	if p.ConservativeFraction <= 0 || p.ConservativeFraction > 1 {
		return fmt.Errorf("%w: conservative_fraction must be in (0, 1]", ErrInvalidSizing)
	}
	if p.MinLot < 1 {
		return fmt.Errorf("%w: min_lot must be at least 1", ErrInvalidSizing)
	}
	if p.RuinTolerancePct <= 0 || p.RuinTolerancePct >= 100 {
		return fmt.Errorf("%w: ruin_tolerance_pct must be in (0, 100)", ErrInvalidSizing)
	}
	if p.MinSampleSize < 0 {
		return fmt.Errorf("%w: min_sample_size must not be negative", ErrInvalidSizing)
	}
	return nil
}
