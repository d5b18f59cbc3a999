package risk

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSizing marks a sizing configuration error.
var ErrInvalidSizing = errors.New("invalid sizing input")

// Limits is a recommended lot-size band.
type Limits struct {
	LotMin        int
	LotMax        int
	KellyFraction float64
}

// breakevenEpsilon absorbs rounding in winRate-(1-winRate)/payoffRatio at
// exact break-even, e.g. 0.4 against a 1.5 payoff leaves 5.55e-17.
const breakevenEpsilon = 1e-12

// Kelly is the binary-payoff Kelly fraction, clamped to [0, 1]. It is 0
// whenever winRate <= 1/(1+payoffRatio).
func Kelly(winRate, payoffRatio float64) (float64, error) {
	if !(payoffRatio > 0) || math.IsInf(payoffRatio, 0) {
		return 0, fmt.Errorf("%w: payoff ratio must be positive and finite, got %v", ErrInvalidSizing, payoffRatio)
	}
	if math.IsNaN(winRate) || winRate < 0 || winRate > 1 {
		return 0, fmt.Errorf("%w: win rate must be in [0, 1], got %v", ErrInvalidSizing, winRate)
	}
	if winRate-1/(1+payoffRatio) <= breakevenEpsilon {
		return 0, nil
	}
	return clamp(winRate-(1-winRate)/payoffRatio, 0, 1), nil
}

// RecommendLimits sizes with the default policy.
func RecommendLimits(s Stats, payoffRatio, buffer, perUnitRisk float64) (Limits, error) {
	return DefaultSizingPolicy().RecommendLimits(s, payoffRatio, buffer, perUnitRisk)
}

// RecommendLimits turns edge and buffer into a lot band.
//
// LotMax is the Kelly share of the buffer divided by the cost of one lot,
// never below MinLot when a position is justified and the buffer can pay for
// at least one lot. LotMin is ConservativeFraction of LotMax. Stats without
// a positive expectancy justify no position, matching EstimateRuin.
func (p SizingPolicy) RecommendLimits(s Stats, payoffRatio, buffer, perUnitRisk float64) (Limits, error) {
	if !(perUnitRisk > 0) || math.IsInf(perUnitRisk, 0) {
		return Limits{}, fmt.Errorf("%w: per-unit risk must be positive and finite, got %v", ErrInvalidSizing, perUnitRisk)
	}
	if math.IsNaN(buffer) {
		return Limits{}, fmt.Errorf("%w: buffer is NaN", ErrInvalidSizing)
	}
	k, err := Kelly(s.WinRate, payoffRatio)
	if err != nil {
		return Limits{}, err
	}

	if s.Expectancy <= 0 {
		return Limits{}, nil
	}
	l := Limits{KellyFraction: k}
	if k == 0 || buffer <= 0 {
		return l, nil
	}

	lots := floorLots(k * buffer / perUnitRisk)
	if lots > math.MaxInt32 {
		lots = math.MaxInt32
	}
	l.LotMax = int(lots)
	if buffer >= perUnitRisk && l.LotMax < p.MinLot {
		l.LotMax = p.MinLot
	}
	l.LotMin = p.lotMin(l.LotMax)
	return l, nil
}

func (p SizingPolicy) lotMin(lotMax int) int {
	if lotMax <= 0 {
		return 0
	}
	n := int(math.Floor(p.ConservativeFraction * float64(lotMax)))
	if n < p.MinLot {
		n = p.MinLot
	}
	if n > lotMax {
		n = lotMax
	}
	return n
}

// RuinAtLots re-runs EstimateRuin for trading lots when the stats were
// recorded at baseLots per trade. Outcomes scale linearly with size, so
// doubling size halves the exponent and raises ruin.
func RuinAtLots(s Stats, buffer float64, lots, baseLots float64) (RuinEstimate, error) {
	return ruinAtLots(s, buffer, lots, baseLots, MinSampleSize)
}

// RuinAtLots is RuinAtLots with the policy's sample-size threshold.
func (p SizingPolicy) RuinAtLots(s Stats, buffer float64, lots, baseLots float64) (RuinEstimate, error) {
	return ruinAtLots(s, buffer, lots, baseLots, p.MinSampleSize)
}

func ruinAtLots(s Stats, buffer float64, lots, baseLots float64, minSample int) (RuinEstimate, error) {
	if !(baseLots > 0) {
		return RuinEstimate{}, fmt.Errorf("%w: base lots must be positive, got %v", ErrInvalidSizing, baseLots)
	}
	if lots < 0 || math.IsNaN(lots) {
		return RuinEstimate{}, fmt.Errorf("%w: lots must not be negative, got %v", ErrInvalidSizing, lots)
	}
	if lots == 0 {
		return RuinEstimate{Percent: 0, Confidence: ConfidenceHigh, Reason: "no position"}, nil
	}
	return estimateRuin(s.Scale(lots/baseLots), buffer, minSample), nil
}

// MaxLotsForRuin is the largest size whose modeled ruin stays at or below
// tolerancePct. It returns 0 when no size qualifies and MaxInt32 when the
// model puts no bound on size.
func MaxLotsForRuin(s Stats, buffer, baseLots, tolerancePct float64) int {
	if buffer <= 0 || s.Expectancy <= 0 || tolerancePct <= 0 || !(baseLots > 0) {
		return 0
	}
	if tolerancePct >= 100 {
		return math.MaxInt32
	}
	v := Variance(s)
	if v == 0 {
		return math.MaxInt32
	}
	// 100*exp(-2EB/(V*k)) <= tol  <=>  k <= 2EB / (V*ln(100/tol))
	k := 2 * s.Expectancy * buffer / (v * math.Log(100/tolerancePct))
	lots := floorLots(k * baseLots)
	if lots > math.MaxInt32 || math.IsInf(lots, 1) {
		return math.MaxInt32
	}
	return int(lots)
}

// CapForRuin lowers LotMax (and LotMin with it) so the modeled ruin at
// LotMax stays within the policy tolerance.
func (p SizingPolicy) CapForRuin(l Limits, s Stats, buffer, baseLots float64) Limits {
	ceiling := MaxLotsForRuin(s, buffer, baseLots, p.RuinTolerancePct)
	if l.LotMax <= ceiling {
		return l
	}
	l.LotMax = ceiling
	if l.LotMin > l.LotMax {
		l.LotMin = l.LotMax
	}
	return l
}

// floorLots floors x, absorbing float noise such as 9.999999999999998.
func floorLots(x float64) float64 {
	return math.Floor(x + 1e-9)
}
