package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanlens/usi-cli/internal/classify"
	"github.com/urbanlens/usi-cli/internal/projector"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_DatasetCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.SetCachedDataset(ctx, "https://example.org/cities.geojson", `"v1"`, []byte(`{"type":"FeatureCollection"}`))
	require.NoError(t, err)

	dc, err := st.GetCachedDataset(ctx, "https://example.org/cities.geojson")
	require.NoError(t, err)
	require.NotNil(t, dc)
	assert.Equal(t, `"v1"`, dc.ETag)
	assert.Equal(t, `{"type":"FeatureCollection"}`, string(dc.Body))
	assert.False(t, dc.FetchedAt.IsZero())
}

func TestSQLite_DatasetCache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	dc, err := st.GetCachedDataset(context.Background(), "https://nowhere.example")
	require.NoError(t, err)
	assert.Nil(t, dc)
}

func TestSQLite_DatasetCache_Upsert(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	src := "https://example.org/cities.geojson"

	require.NoError(t, st.SetCachedDataset(ctx, src, `"v1"`, []byte("old")))
	require.NoError(t, st.SetCachedDataset(ctx, src, `"v2"`, []byte("new")))

	dc, err := st.GetCachedDataset(ctx, src)
	require.NoError(t, err)
	require.NotNil(t, dc)
	assert.Equal(t, `"v2"`, dc.ETag)
	assert.Equal(t, "new", string(dc.Body))
}

func TestSQLite_Summaries_SaveAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	counts := map[classify.Tier]int{
		classify.TierComfortable: 3,
		classify.TierUnknown:     1,
	}
	sum, err := st.SaveSummary(ctx, "src", counts)
	require.NoError(t, err)
	assert.NotEmpty(t, sum.ID)

	list, err := st.ListSummaries(ctx, "src", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sum.ID, list[0].ID)
	assert.Equal(t, 3, list[0].Counts[classify.TierComfortable])
	assert.Equal(t, 1, list[0].Counts[classify.TierUnknown])
}

func TestSQLite_Summaries_ListScopedBySource(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveSummary(ctx, "a", map[classify.Tier]int{classify.TierExtreme: 1})
	require.NoError(t, err)
	_, err = st.SaveSummary(ctx, "b", map[classify.Tier]int{classify.TierExtreme: 2})
	require.NoError(t, err)

	list, err := st.ListSummaries(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Counts[classify.TierExtreme])
}

func TestSQLite_SaveCitySnapshots(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	score := 51.3
	models := []projector.ViewModel{
		{Title: "Lagos, Nigeria", Tier: classify.TierUnaffordable, Score: &score, Color: "#8e44ad", Radius: 15.5, Lon: 3.38, Lat: 6.52, HasPoint: true},
		{Title: "Unknown city", Tier: classify.TierUnknown, Color: "#95a5a6", Radius: 8},
	}

	n, err := st.SaveCitySnapshots(ctx, "src", models)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Empty input is a no-op.
	n, err = st.SaveCitySnapshots(ctx, "src", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
