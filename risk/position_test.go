package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKelly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		wr     float64
		payoff float64
		want   float64
	}{
		{"coin flip even payoff", 0.5, 1, 0},
		{"sixty percent even payoff", 0.6, 1, 0.2},
		{"coin flip two to one", 0.5, 2, 0.25},
		{"losing edge clamps to zero", 0.4, 1, 0},
		{"certain win", 1, 3, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Kelly(tt.wr, tt.payoff)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestKellyZeroAtOrBelowBreakeven(t *testing.T) {
	t.Parallel()

	for _, b := range []float64{0.25, 0.5, 1, 1.5, 2, 3, 5} {
		breakeven := 1 / (1 + b)
		for _, wr := range []float64{0, breakeven / 2, breakeven - 0.01} {
			k, err := Kelly(wr, b)
			require.NoError(t, err)
			assert.Zerof(t, k, "wr=%v payoff=%v", wr, b)
		}
	}

	for _, pair := range [][2]float64{{0.5, 1}, {0.25, 3}, {0.2, 4}} {
		k, err := Kelly(pair[0], pair[1])
		require.NoError(t, err)
		assert.InDelta(t, 0, k, 1e-12)
	}
}

func TestKellyExactBreakevenHasNoSize(t *testing.T) {
	t.Parallel()

	// These break-even rates leave rounding noise in wr-(1-wr)/b.
	for _, b := range []float64{1.5, 0.25} {
		wr := 1 / (1 + b)
		k, err := Kelly(wr, b)
		require.NoError(t, err)
		assert.Zerof(t, k, "payoff=%v", b)

		lim, err := RecommendLimits(NewStats(wr, 100*b, 100), b, 5000, 100)
		require.NoError(t, err)
		assert.Equalf(t, Limits{}, lim, "payoff=%v", b)
	}

	s := ComputeStats([]float64{150, 150, -100, -100, -100})
	require.InDelta(t, 1.5, s.PayoffRatio, 1e-12)
	lim, err := RecommendLimits(s, s.PayoffRatio, 5000, 100)
	require.NoError(t, err)
	assert.Equal(t, Limits{}, lim)
	assert.Equal(t, 100.0, EstimateRuin(s, 5000).Percent)
}

func TestRecommendLimitsNeedsPositiveExpectancy(t *testing.T) {
	t.Parallel()

	lim, err := RecommendLimits(Stats{WinRate: 0.4}, 1.5, 5000, 100)
	require.NoError(t, err)
	assert.Equal(t, Limits{}, lim)
}

func TestKellyRejectsBadInput(t *testing.T) {
	t.Parallel()

	for _, payoff := range []float64{0, -1} {
		_, err := Kelly(0.6, payoff)
		assert.True(t, errors.Is(err, ErrInvalidSizing))
	}
	_, err := Kelly(1.2, 1)
	assert.True(t, errors.Is(err, ErrInvalidSizing))
}

func TestRecommendLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stats    Stats
		payoff   float64
		buffer   float64
		perUnit  float64
		wantMin  int
		wantMax  int
		wantKell float64
	}{
		{"half kelly band", NewStats(0.6, 100, 100), 1, 5000, 100, 5, 10, 0.2},
		{"floored at one lot", NewStats(0.55, 100, 100), 1, 500, 100, 1, 1, 0.1},
		{"buffer below one lot", NewStats(0.55, 100, 100), 1, 50, 100, 0, 0, 0.1},
		{"no edge", NewStats(0.4, 100, 100), 1, 5000, 100, 0, 0, 0},
		{"no buffer", NewStats(0.6, 100, 100), 1, 0, 100, 0, 0, 0.2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := RecommendLimits(tt.stats, tt.payoff, tt.buffer, tt.perUnit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMin, got.LotMin)
			assert.Equal(t, tt.wantMax, got.LotMax)
			assert.InDelta(t, tt.wantKell, got.KellyFraction, 1e-9)
		})
	}
}

func TestRecommendLimitsPreconditions(t *testing.T) {
	t.Parallel()

	s := NewStats(0.6, 100, 100)
	_, err := RecommendLimits(s, 0, 5000, 100)
	assert.True(t, errors.Is(err, ErrInvalidSizing))

	_, err = RecommendLimits(s, 1, 5000, 0)
	assert.True(t, errors.Is(err, ErrInvalidSizing))

	_, err = RecommendLimits(s, 1, 5000, -10)
	assert.True(t, errors.Is(err, ErrInvalidSizing))
}

func TestRuinRisesWithSize(t *testing.T) {
	t.Parallel()

	s := NewStats(0.6, 100, 100)
	prev := -1.0
	for _, lots := range []float64{1, 2, 3, 5, 8} {
		r, err := RuinAtLots(s, 5000, lots, 1)
		require.NoError(t, err)
		assert.Greater(t, r.Percent, prev)
		prev = r.Percent
	}

	r, err := RuinAtLots(s, 5000, 0, 1)
	require.NoError(t, err)
	assert.Zero(t, r.Percent)

	_, err = RuinAtLots(s, 5000, 1, 0)
	assert.Error(t, err)
}

func TestPolicyRuinAtLotsSampleThreshold(t *testing.T) {
	t.Parallel()

	results := []float64{100, -80, 120, -90, 110, 130, -70, 90, 100, -60}
	s := ComputeStats(results)

	p := DefaultSizingPolicy()
	p.MinSampleSize = 10
	loose, err := p.RuinAtLots(s, 2000, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, ConfidenceHigh, loose.Confidence)

	def, err := RuinAtLots(s, 2000, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, ConfidenceLowSample, def.Confidence)
	assert.Equal(t, def.Percent, loose.Percent)
}

func TestMaxLotsForRuinAgreesWithEstimate(t *testing.T) {
	t.Parallel()

	s := NewStats(0.6, 100, 100)
	max := MaxLotsForRuin(s, 5000, 1, 2)
	assert.Equal(t, 5, max)

	at, err := RuinAtLots(s, 5000, float64(max), 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, at.Percent, 2.0)

	over, err := RuinAtLots(s, 5000, float64(max+1), 1)
	require.NoError(t, err)
	assert.Greater(t, over.Percent, 2.0)

	assert.Zero(t, MaxLotsForRuin(NewStats(0.4, 100, 100), 5000, 1, 2))
	assert.Zero(t, MaxLotsForRuin(s, 0, 1, 2))
}

func TestCapForRuin(t *testing.T) {
	t.Parallel()

	p := DefaultSizingPolicy()
	s := NewStats(0.6, 100, 100)

	lim, err := p.RecommendLimits(s, 1, 5000, 100)
	require.NoError(t, err)
	require.Equal(t, 10, lim.LotMax)

	capped := p.CapForRuin(lim, s, 5000, 1)
	assert.Equal(t, 5, capped.LotMax)
	assert.Equal(t, 5, capped.LotMin)
	assert.Equal(t, lim.KellyFraction, capped.KellyFraction)

	loose := p
	loose.RuinTolerancePct = 50
	assert.Equal(t, lim, loose.CapForRuin(lim, s, 5000, 1))
}

func TestSizingPolicyValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultSizingPolicy().Validate())

	bad := []SizingPolicy{
		{ConservativeFraction: 0, MinLot: 1, RuinTolerancePct: 2},
		{ConservativeFraction: 1.5, MinLot: 1, RuinTolerancePct: 2},
		{ConservativeFraction: 0.5, MinLot: 0, RuinTolerancePct: 2},
		{ConservativeFraction: 0.5, MinLot: 1, RuinTolerancePct: 0},
		{ConservativeFraction: 0.5, MinLot: 1, RuinTolerancePct: 2, MinSampleSize: -1},
	}
	for _, p := range bad {
		assert.Error(t, p.Validate())
	}
}
