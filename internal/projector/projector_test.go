package projector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanlens/usi-cli/internal/classify"
	"github.com/urbanlens/usi-cli/internal/dataset"
	"github.com/urbanlens/usi-cli/internal/resolve"
)

func resolveKeys(props map[string]any) resolve.KeySet {
	return resolve.Resolve(props, resolve.DefaultCandidates())
}

func TestProjectFullRecord(t *testing.T) {
	props := map[string]any{
		"city":        "Lagos",
		"country":     "Nigeria",
		"usi":         51.3,
		"housing_pct": "38.25410",
		"food_pct":    21.5,
		"income":      3508.6,
	}
	rec := dataset.Record{Props: props, Lon: 3.3792, Lat: 6.5244, HasPoint: true}

	vm := Project(rec, resolveKeys(props))

	assert.Equal(t, "Lagos, Nigeria", vm.Title)
	assert.Equal(t, "51.3", vm.ScoreDisplay)
	assert.Equal(t, classify.TierUnaffordable, vm.Tier)
	assert.Equal(t, "Unaffordable", vm.TierLabel)
	// Stored share text passes through verbatim, trailing zeros intact.
	assert.Equal(t, "38.25410", vm.HousingDisplay)
	assert.Equal(t, "21.5", vm.FoodDisplay)
	assert.Equal(t, "3,509", vm.IncomeFormatted)
	assert.Equal(t, classify.ColorOf(classify.TierUnaffordable), vm.Color)
	assert.InDelta(t, 8+(51.3-25)/35*10, vm.Radius, 1e-9)
	assert.True(t, vm.HasPoint)
	assert.InDelta(t, 3508.6, vm.Links.Income, 1e-9)
	assert.InDelta(t, 38.25410, vm.Links.HousingPct, 1e-9)
	assert.InDelta(t, 21.5, vm.Links.FoodPct, 1e-9)
}

func TestProjectTitleFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]any
		want  string
	}{
		{"place and region", map[string]any{"city": "Quito", "country": "Ecuador"}, "Quito, Ecuador"},
		{"place only", map[string]any{"city": "Quito"}, "Quito"},
		{"no place", map[string]any{"usi": 31.0}, "Unknown city"},
		{"empty place", map[string]any{"city": "", "country": "Ecuador"}, "Unknown city"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := Project(dataset.Record{Props: tt.props}, resolveKeys(tt.props))
			assert.Equal(t, tt.want, vm.Title)
		})
	}
}

func TestProjectMissingScore(t *testing.T) {
	props := map[string]any{"city": "Asmara"}
	vm := Project(dataset.Record{Props: props}, resolveKeys(props))

	assert.Equal(t, "N/A", vm.ScoreDisplay)
	assert.Nil(t, vm.Score)
	assert.Equal(t, classify.TierUnknown, vm.Tier)
	assert.Equal(t, 8.0, vm.Radius)
	assert.Equal(t, classify.ColorOf(classify.TierUnknown), vm.Color)
}

func TestProjectComputedShareFallback(t *testing.T) {
	// No stored share; computed from rent/income without pre-rounding.
	props := map[string]any{
		"city":   "Accra",
		"usi":    42.0,
		"rent":   1234.0,
		"income": 3200.0,
	}
	vm := Project(dataset.Record{Props: props}, resolveKeys(props))

	// 1234/3200*100 = 38.5625 exactly.
	assert.Equal(t, "38.5625", vm.HousingDisplay)
	assert.InDelta(t, 38.5625, vm.Links.HousingPct, 1e-9)
	// No food amount at all.
	assert.Equal(t, "N/A", vm.FoodDisplay)
}

func TestProjectFallbackNeedsPositiveIncome(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]any
	}{
		{"zero income", map[string]any{"rent": 900.0, "income": 0.0}},
		{"negative income", map[string]any{"rent": 900.0, "income": -10.0}},
		{"missing income", map[string]any{"rent": 900.0}},
		{"garbage amount", map[string]any{"rent": "cheap", "income": 3200.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := Project(dataset.Record{Props: tt.props}, resolveKeys(tt.props))
			assert.Equal(t, "N/A", vm.HousingDisplay)
			assert.Zero(t, vm.Links.HousingPct)
		})
	}
}

func TestProjectNeverRoundsDisplays(t *testing.T) {
	props := map[string]any{
		"city":        "Lima",
		"usi":         "34.827193",
		"housing_pct": 29.123456,
		"income":      2100.0,
	}
	vm := Project(dataset.Record{Props: props}, resolveKeys(props))

	assert.Equal(t, "34.827193", vm.ScoreDisplay)
	assert.Equal(t, "29.123456", vm.HousingDisplay)
}

func TestPopupLines(t *testing.T) {
	props := map[string]any{
		"city":        "Lagos",
		"country":     "Nigeria",
		"usi":         "51.3",
		"housing_pct": "38.2",
		"food_pct":    "21.5",
		"income":      3508.6,
	}
	vm := Project(dataset.Record{Props: props}, resolveKeys(props))

	lines := vm.PopupLines()
	require.Len(t, lines, 5)
	assert.Equal(t, "Lagos, Nigeria", lines[0])
	assert.Equal(t, "USI: 51.3 (Unaffordable)", lines[1])
	assert.Equal(t, "Housing: 38.2", lines[2])
	assert.Equal(t, "Food: 21.5", lines[3])
	assert.Equal(t, "Typical Income (local currency, monthly) 3,509", lines[4])
}

func TestProjectAll(t *testing.T) {
	col := &dataset.Collection{
		Source:   "test",
		LoadedAt: time.Now(),
		Records: []dataset.Record{
			{Props: map[string]any{"city": "A", "usi": 10.0}},
			{Props: map[string]any{"city": "B", "usi": 40.0}},
			{Props: map[string]any{"city": "C"}},
		},
	}

	models, keys := ProjectAll(context.Background(), col, resolve.DefaultCandidates())
	require.Len(t, models, 3)
	assert.Equal(t, "usi", keys.Key(resolve.RoleScore))

	// Order is preserved under concurrent projection.
	assert.Equal(t, "A", models[0].Title)
	assert.Equal(t, classify.TierComfortable, models[0].Tier)
	assert.Equal(t, classify.TierSevereBurden, models[1].Tier)
	assert.Equal(t, classify.TierUnknown, models[2].Tier)
}

func TestProjectAllKeysResolvedFromFirstRecord(t *testing.T) {
	// Later records using different spellings still read through the
	// collection-level keys; their values degrade to N/A.
	col := &dataset.Collection{
		Records: []dataset.Record{
			{Props: map[string]any{"city": "A", "usi": 32.0}},
			{Props: map[string]any{"city": "B", "urban_stress_index": 99.0}},
		},
	}

	models, keys := ProjectAll(context.Background(), col, resolve.DefaultCandidates())
	assert.Equal(t, "usi", keys.Key(resolve.RoleScore))
	assert.Equal(t, classify.TierStretched, models[0].Tier)
	assert.Equal(t, classify.TierUnknown, models[1].Tier)
	assert.Equal(t, "N/A", models[1].ScoreDisplay)
}

func TestProjectAllEmpty(t *testing.T) {
	models, keys := ProjectAll(context.Background(), nil, resolve.DefaultCandidates())
	assert.Nil(t, models)
	assert.NotNil(t, keys)

	models, _ = ProjectAll(context.Background(), &dataset.Collection{}, resolve.DefaultCandidates())
	assert.Nil(t, models)
}
