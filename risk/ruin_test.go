package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats(t *testing.T) {
	t.Parallel()

	s := ComputeStats([]float64{100, -50, 100, 0})
	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 0.5, s.WinRate, 1e-12)
	assert.InDelta(t, 100, s.AvgWin, 1e-12)
	assert.InDelta(t, 50, s.AvgLoss, 1e-12)
	assert.InDelta(t, 2, s.PayoffRatio, 1e-12)
	assert.InDelta(t, 25, s.Expectancy, 1e-12)
	assert.InDelta(t, 4, s.ProfitFactor(), 1e-12)

	empty := ComputeStats(nil)
	assert.Equal(t, Stats{}, empty)

	winsOnly := ComputeStats([]float64{10, 20})
	assert.InDelta(t, 1, winsOnly.WinRate, 1e-12)
	assert.Zero(t, winsOnly.PayoffRatio)
	assert.Zero(t, winsOnly.ProfitFactor())
}

func TestVariance(t *testing.T) {
	t.Parallel()

	s := NewStats(0.6, 100, 100)
	assert.InDelta(t, 20, s.Expectancy, 1e-9)
	assert.InDelta(t, 9600, Variance(s), 1e-9)

	assert.Zero(t, Variance(NewStats(1, 100, 0)))
}

func TestEstimateRuin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		stats      Stats
		buffer     float64
		want       float64
		below      float64 // when > 0, assert Percent < below instead of want
		confidence Confidence
	}{
		{"breakeven edge", NewStats(0.5, 100, 100), 1000, 100, 0, ConfidenceHigh},
		{"positive edge", NewStats(0.6, 100, 100), 1000, 0, 5, ConfidenceHigh},
		{"negative edge", NewStats(0.4, 100, 100), 1000, 100, 0, ConfidenceHigh},
		{"no buffer", NewStats(0.6, 100, 100), 0, 100, 0, ConfidenceHigh},
		{"negative buffer", NewStats(0.6, 100, 100), -50, 100, 0, ConfidenceHigh},
		{"zero variance", NewStats(1, 100, 0), 1000, 0, 0, ConfidenceDegenerate},
		{"NaN buffer", NewStats(0.6, 100, 100), math.NaN(), 100, 0, ConfidenceHigh},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := EstimateRuin(tt.stats, tt.buffer)
			if tt.below > 0 {
				assert.Less(t, got.Percent, tt.below)
			} else {
				assert.Equal(t, tt.want, got.Percent)
			}
			assert.Equal(t, tt.confidence, got.Confidence)
		})
	}
}

func TestEstimateRuinClosedForm(t *testing.T) {
	t.Parallel()

	got := EstimateRuin(NewStats(0.6, 100, 100), 1000)
	assert.InDelta(t, 100*math.Exp(-40000.0/9600.0), got.Percent, 1e-9)
}

func TestEstimateRuinBounds(t *testing.T) {
	t.Parallel()

	buffers := []float64{-1, 0, 1e-300, 1, 50, 1000, 1e6, 1e300, math.MaxFloat64, math.Inf(1)}
	winRates := []float64{0, 0.1, 0.35, 0.5, 0.65, 0.99, 1}
	sizes := []float64{0, 1e-200, 1, 100, 1e150}

	for _, b := range buffers {
		for _, wr := range winRates {
			for _, win := range sizes {
				for _, loss := range sizes {
					got := EstimateRuin(NewStats(wr, win, loss), b)
					require.False(t, math.IsNaN(got.Percent))
					require.GreaterOrEqual(t, got.Percent, 0.0)
					require.LessOrEqual(t, got.Percent, 100.0)
				}
			}
		}
	}
}

func TestEstimateRuinLowSample(t *testing.T) {
	t.Parallel()

	results := []float64{100, -80, 120, -90, 110, 130, -70, 90, 100, -60}
	got := EstimateRuin(ComputeStats(results), 2000)
	assert.Equal(t, ConfidenceLowSample, got.Confidence)

	var many []float64
	for i := 0; i < 6; i++ {
		many = append(many, results...)
	}
	got = EstimateRuin(ComputeStats(many), 2000)
	assert.Equal(t, ConfidenceHigh, got.Confidence)
}

func TestPolicyEstimateRuinSampleThreshold(t *testing.T) {
	t.Parallel()

	results := []float64{100, -80, 120, -90, 110, 130, -70, 90, 100, -60}
	s := ComputeStats(results)

	p := DefaultSizingPolicy()
	p.MinSampleSize = 10
	loose := p.EstimateRuin(s, 2000)
	assert.Equal(t, ConfidenceHigh, loose.Confidence)

	p.MinSampleSize = 50
	strict := p.EstimateRuin(s, 2000)
	assert.Equal(t, ConfidenceLowSample, strict.Confidence)
	assert.Equal(t, loose.Percent, strict.Percent)
}

func TestEstimateRuinShrinksWithBuffer(t *testing.T) {
	t.Parallel()

	s := NewStats(0.55, 120, 100)
	prev := 100.0
	for _, b := range []float64{100, 500, 1000, 2500, 5000} {
		got := EstimateRuin(s, b).Percent
		assert.Less(t, got, prev)
		prev = got
	}
}
