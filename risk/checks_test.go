package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateProposal(t *testing.T) {
	t.Parallel()

	p := DefaultSizingPolicy()
	edge := NewStats(0.6, 100, 100)

	tests := []struct {
		name    string
		prop    Proposal
		stats   Stats
		buffer  float64
		allowed bool
		codes   []string
	}{
		{"within band", Proposal{Lots: 3, PerUnitRisk: 100}, edge, 5000, true, nil},
		{"over ruin cap", Proposal{Lots: 8, PerUnitRisk: 100}, edge, 5000, false, []string{"LOTS_OVER_MAX", "RUIN_TOO_HIGH"}},
		{"exhausted buffer", Proposal{Lots: 1, PerUnitRisk: 100}, edge, 0, false, []string{"BUFFER_EXHAUSTED"}},
		{"negative edge", Proposal{Lots: 1, PerUnitRisk: 100}, NewStats(0.4, 100, 100), 5000, false, []string{"NEGATIVE_EDGE", "RUIN_TOO_HIGH"}},
		{"risk larger than buffer", Proposal{Lots: 2, PerUnitRisk: 600}, edge, 1000, false, []string{"RISK_OVER_BUFFER"}},
		{"no lots", Proposal{Lots: 0, PerUnitRisk: 100}, edge, 5000, false, []string{"NO_LOTS"}},
		{"no stop", Proposal{Lots: 1}, edge, 5000, false, []string{"NO_STOP"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := p.Evaluate(tt.prop, tt.stats, tt.buffer)
			assert.Equal(t, tt.allowed, d.Allowed)
			for _, code := range tt.codes {
				assert.Truef(t, d.Has(code), "missing %s in %+v", code, d.Violations)
			}
			if tt.allowed {
				assert.Empty(t, d.Violations)
			}
		})
	}
}

func TestEvaluateReportsPlannedRisk(t *testing.T) {
	t.Parallel()

	d := DefaultSizingPolicy().Evaluate(Proposal{Lots: 4, PerUnitRisk: 125, BaseLots: 2}, NewStats(0.6, 100, 100), 5000)
	assert.InDelta(t, 500, d.PlannedRisk, 1e-9)
	assert.InDelta(t, 0.1, d.BufferPct, 1e-9)
	assert.Greater(t, d.RuinAtSize.Percent, 0.0)
	assert.Greater(t, d.Recommended.LotMax, 0)
}

func TestEvaluateUsesPolicySampleSize(t *testing.T) {
	t.Parallel()

	s := ComputeStats([]float64{100, -80, 120, -90, 110, 130, -70, 90, 100, -60})
	prop := Proposal{Lots: 1, PerUnitRisk: 100}

	p := DefaultSizingPolicy()
	assert.Equal(t, ConfidenceLowSample, p.Evaluate(prop, s, 2000).RuinAtSize.Confidence)

	p.MinSampleSize = 10
	assert.Equal(t, ConfidenceHigh, p.Evaluate(prop, s, 2000).RuinAtSize.Confidence)
}

func TestCalc(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 250, PerUnitRisk(4500.25, 4495.25, 50), 1e-9)
	assert.InDelta(t, 250, PerUnitRisk(4495.25, 4500.25, 50), 1e-9)
	assert.InDelta(t, 2, RR(100, 95, 110), 1e-12)
	assert.Zero(t, RR(100, 100, 110))
	assert.InDelta(t, 0.25, BufferPct(1000, 4000), 1e-12)
}
