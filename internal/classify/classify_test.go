package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptrFloat64(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		score *float64
		want  Tier
	}{
		{"nil score", nil, TierUnknown},
		{"well below first bound", ptrFloat64(10), TierComfortable},
		{"negative score", ptrFloat64(-5), TierComfortable},
		{"just under 30", ptrFloat64(29.999), TierComfortable},
		{"at 30 boundary", ptrFloat64(30), TierStretched},
		{"inside stretched", ptrFloat64(34.827193), TierStretched},
		{"at 35 boundary", ptrFloat64(35), TierHighBurden},
		{"at 40 boundary", ptrFloat64(40), TierSevereBurden},
		{"inside severe", ptrFloat64(44.9), TierSevereBurden},
		{"at 45 boundary", ptrFloat64(45), TierUnaffordable},
		{"just under 55", ptrFloat64(54.99), TierUnaffordable},
		{"at 55 boundary", ptrFloat64(55), TierExtreme},
		{"far above scale", ptrFloat64(140), TierExtreme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.score))
		})
	}
}

func TestClassifyExhaustive(t *testing.T) {
	// Every real score lands in exactly one tier and never Unknown.
	for s := -50.0; s <= 150.0; s += 0.5 {
		tier := Classify(ptrFloat64(s))
		assert.NotEqual(t, TierUnknown, tier, "score %f", s)
		assert.NotEmpty(t, ColorOf(tier))
	}
}

func TestColorsDistinct(t *testing.T) {
	seen := make(map[string]Tier)
	for _, tier := range AllTiers {
		c := ColorOf(tier)
		prev, dup := seen[c]
		assert.False(t, dup, "tiers %s and %s share color %s", prev, tier, c)
		seen[c] = tier
	}
}

func TestRadiusOf(t *testing.T) {
	tests := []struct {
		name  string
		score *float64
		want  float64
	}{
		{"nil maps to minimum", nil, 8},
		{"below window clamps to 8", ptrFloat64(10), 8},
		{"at lower bound", ptrFloat64(25), 8},
		{"midpoint", ptrFloat64(42.5), 13},
		{"at upper bound", ptrFloat64(60), 18},
		{"above window clamps to 18", ptrFloat64(120), 18},
		{"negative clamps to 8", ptrFloat64(-30), 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RadiusOf(tt.score), 0.0001)
		})
	}
}

func TestRadiusMonotonic(t *testing.T) {
	prev := RadiusOf(ptrFloat64(20))
	for s := 21.0; s <= 70.0; s++ {
		r := RadiusOf(ptrFloat64(s))
		assert.GreaterOrEqual(t, r, prev, "radius decreased at score %f", s)
		assert.GreaterOrEqual(t, r, 8.0)
		assert.LessOrEqual(t, r, 18.0)
		prev = r
	}
}

func TestTierLabels(t *testing.T) {
	assert.Equal(t, "Severe Burden", TierSevereBurden.Label())
	assert.Equal(t, "Unknown", TierUnknown.Label())
	assert.Equal(t, "Unknown", Tier("bogus").Label())
}
