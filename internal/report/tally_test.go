package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanlens/usi-cli/internal/classify"
	"github.com/urbanlens/usi-cli/internal/dataset"
	"github.com/urbanlens/usi-cli/internal/resolve"
)

func TestTallyEmptyCollection(t *testing.T) {
	counts := Tally(nil, resolve.KeySet{})

	require.Len(t, counts, len(classify.AllTiers))
	for _, tier := range classify.AllTiers {
		assert.Equal(t, 0, counts[tier], "tier %s", tier)
	}
	assert.Equal(t, 0, Total(counts))
}

func TestTallyMixedScores(t *testing.T) {
	records := []dataset.Record{
		{Props: map[string]any{"usi": 10.0}},
		{Props: map[string]any{"usi": 40.0}},
		{Props: map[string]any{"city": "no score"}},
	}
	keys := resolve.Resolve(records[0].Props, resolve.DefaultCandidates())

	counts := Tally(records, keys)

	assert.Equal(t, 1, counts[classify.TierComfortable])
	assert.Equal(t, 1, counts[classify.TierSevereBurden])
	assert.Equal(t, 1, counts[classify.TierUnknown])
	assert.Equal(t, 0, counts[classify.TierStretched])
	assert.Equal(t, 0, counts[classify.TierHighBurden])
	assert.Equal(t, 0, counts[classify.TierUnaffordable])
	assert.Equal(t, 0, counts[classify.TierExtreme])
	assert.Equal(t, 3, Total(counts))
}

func TestTallyUnresolvedScoreRole(t *testing.T) {
	records := []dataset.Record{
		{Props: map[string]any{"city": "A"}},
		{Props: map[string]any{"city": "B"}},
	}
	keys := resolve.Resolve(records[0].Props, resolve.DefaultCandidates())

	counts := Tally(records, keys)
	assert.Equal(t, 2, counts[classify.TierUnknown])
}
