package risk

import "math"

// PerUnitRisk is the account-currency loss of one lot if the stop is hit.
// pointValue is the P/L of one lot for a 1.0 move in price.
func PerUnitRisk(entry, stop, pointValue float64) float64 {
	return math.Abs(entry-stop) * pointValue
}

// RR is the planned reward-to-risk of a bracket.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// BufferPct is the planned loss as a share of the remaining buffer.
func BufferPct(plannedRisk, buffer float64) float64 {
	if buffer <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / buffer
}
