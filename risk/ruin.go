package risk

import "math"

// MinSampleSize is the trade count below which a ruin estimate is flagged as
// low confidence.
const MinSampleSize = 30

// maxExponent bounds the ruin exponent; exp(-700) is already far below any
// percentage worth showing and exp(+700) would overflow.
const maxExponent = 700.0

// Confidence qualifies a ruin estimate.
type Confidence string

const (
	ConfidenceHigh       Confidence = "high"
	ConfidenceLowSample  Confidence = "low-sample"
	ConfidenceDegenerate Confidence = "degenerate"
)

// RuinEstimate is a probability of ruin in percent plus how far to trust it.
type RuinEstimate struct {
	Percent    float64
	Confidence Confidence
	Reason     string
}

// EstimateRuin approximates the probability that the buffer is exhausted
// before the edge compounds it, treating cumulative P/L as Brownian motion
// with drift Expectancy and variance Variance(s) per trade.
//
// The result is always within [0, 100]. It is a model figure, not a
// simulation: small samples get ConfidenceLowSample.
func EstimateRuin(s Stats, buffer float64) RuinEstimate {
	return estimateRuin(s, buffer, MinSampleSize)
}

// EstimateRuin is EstimateRuin with the policy's sample-size threshold.
func (p SizingPolicy) EstimateRuin(s Stats, buffer float64) RuinEstimate {
	return estimateRuin(s, buffer, p.MinSampleSize)
}

func estimateRuin(s Stats, buffer float64, minSample int) RuinEstimate {
	est := RuinEstimate{Confidence: ConfidenceHigh}
	if s.Trades > 0 && s.Trades < minSample {
		est.Confidence = ConfidenceLowSample
	}

	switch {
	case math.IsNaN(buffer) || math.IsNaN(s.Expectancy):
		est.Percent = 100
		est.Reason = "undefined inputs"
		return est
	case buffer <= 0:
		est.Percent = 100
		est.Reason = "buffer exhausted"
		return est
	case s.Expectancy <= 0:
		est.Percent = 100
		est.Reason = "no positive edge"
		return est
	}

	v := Variance(s)
	if v == 0 || math.IsNaN(v) {
		est.Confidence = ConfidenceDegenerate
		est.Reason = "zero outcome variance"
		return est
	}

	exponent := -2 * s.Expectancy * buffer / v
	if math.IsNaN(exponent) {
		est.Percent = 100
		est.Reason = "undefined inputs"
		return est
	}
	exponent = clamp(exponent, -maxExponent, 0)
	est.Percent = clamp(100*math.Exp(exponent), 0, 100)
	return est
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
