package risk

// Stats summarizes a set of closed trade results.
type Stats struct {
	Trades int
	Wins   int
	Losses int

	WinRate     float64 // wins / trades
	AvgWin      float64
	AvgLoss     float64 // magnitude, >= 0
	Expectancy  float64 // WinRate*AvgWin - (1-WinRate)*AvgLoss
	PayoffRatio float64 // AvgWin / AvgLoss, 0 without losses
}

// ComputeStats aggregates realized results. Breakeven trades count toward
// Trades but are neither wins nor losses.
func ComputeStats(results []float64) Stats {
	var s Stats
	var grossWin, grossLoss float64

	for _, r := range results {
		s.Trades++
		switch {
		case r > 0:
			s.Wins++
			grossWin += r
		case r < 0:
			s.Losses++
			grossLoss += -r
		}
	}
	if s.Trades == 0 {
		return s
	}

	s.WinRate = float64(s.Wins) / float64(s.Trades)
	if s.Wins > 0 {
		s.AvgWin = grossWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = grossLoss / float64(s.Losses)
		s.PayoffRatio = s.AvgWin / s.AvgLoss
	}
	s.Expectancy = Expectancy(s.WinRate, s.AvgWin, s.AvgLoss)
	return s
}

// NewStats builds Stats from summary figures rather than raw results.
func NewStats(winRate, avgWin, avgLoss float64) Stats {
	s := Stats{
		WinRate:    winRate,
		AvgWin:     avgWin,
		AvgLoss:    avgLoss,
		Expectancy: Expectancy(winRate, avgWin, avgLoss),
	}
	if avgLoss > 0 {
		s.PayoffRatio = avgWin / avgLoss
	}
	return s
}

func Expectancy(winRate, avgWin, avgLoss float64) float64 {
	return winRate*avgWin - (1-winRate)*avgLoss
}

// Variance is the per-trade outcome variance around the expectancy under a
// two-outcome model.
func Variance(s Stats) float64 {
	up := s.AvgWin - s.Expectancy
	down := -s.AvgLoss - s.Expectancy
	return s.WinRate*up*up + (1-s.WinRate)*down*down
}

// Scale returns the stats of the same edge traded at factor times the size.
func (s Stats) Scale(factor float64) Stats {
	out := s
	out.AvgWin *= factor
	out.AvgLoss *= factor
	out.Expectancy = Expectancy(out.WinRate, out.AvgWin, out.AvgLoss)
	return out
}

// ProfitFactor is gross profit over gross loss.
func (s Stats) ProfitFactor() float64 {
	loss := float64(s.Losses) * s.AvgLoss
	if loss == 0 {
		return 0
	}
	return float64(s.Wins) * s.AvgWin / loss
}
