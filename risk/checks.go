package risk

import "fmt"

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk float64
	BufferPct   float64
	RuinAtSize  RuinEstimate
	Recommended Limits
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Has reports whether the decision carries a violation with code.
func (d Decision) Has(code string) bool {
	for _, v := range d.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Proposal is a trade the caller is about to place.
type Proposal struct {
	Lots        int
	PerUnitRisk float64 // loss per lot at the stop
	BaseLots    float64 // typical lots behind the historical stats; 0 means 1
}

// Evaluate checks a proposal against the account buffer, the recommended
// band and the ruin tolerance.
func (p SizingPolicy) Evaluate(prop Proposal, s Stats, buffer float64) Decision {
	d := Decision{Allowed: true}

	if prop.Lots <= 0 {
		d.add("NO_LOTS", "lots must be positive")
		return d
	}
	if !(prop.PerUnitRisk > 0) {
		d.add("NO_STOP", "per-unit risk must be positive")
		return d
	}
	base := prop.BaseLots
	if base <= 0 {
		base = 1
	}

	d.PlannedRisk = float64(prop.Lots) * prop.PerUnitRisk
	d.BufferPct = BufferPct(d.PlannedRisk, buffer)

	if buffer <= 0 {
		d.add("BUFFER_EXHAUSTED", "no buffer left above the stop level")
		return d
	}
	if s.Expectancy <= 0 {
		d.add("NEGATIVE_EDGE",
			fmt.Sprintf("expectancy %.2f per trade is not positive", s.Expectancy))
	}
	if d.PlannedRisk > buffer {
		d.add("RISK_OVER_BUFFER",
			fmt.Sprintf("planned risk %.2f exceeds buffer %.2f", d.PlannedRisk, buffer))
	}

	if s.PayoffRatio > 0 {
		lim, err := p.RecommendLimits(s, s.PayoffRatio, buffer, prop.PerUnitRisk)
		if err == nil {
			d.Recommended = p.CapForRuin(lim, s, buffer, base)
			if prop.Lots > d.Recommended.LotMax {
				d.add("LOTS_OVER_MAX",
					fmt.Sprintf("%d lots exceeds recommended max %d", prop.Lots, d.Recommended.LotMax))
			}
		}
	}

	ruin, err := p.RuinAtLots(s, buffer, float64(prop.Lots), base)
	if err == nil {
		d.RuinAtSize = ruin
		if ruin.Percent > p.RuinTolerancePct {
			d.add("RUIN_TOO_HIGH",
				fmt.Sprintf("modeled ruin %.2f%% exceeds tolerance %.2f%%", ruin.Percent, p.RuinTolerancePct))
		}
	}

	return d
}
