package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONObject(t *testing.T) {
	type doc struct {
		Type  string `json:"type"`
		Count int    `json:"count"`
	}

	obj, err := DecodeJSONObject[doc](strings.NewReader(`{"type":"FeatureCollection","count":3}`))
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", obj.Type)
	assert.Equal(t, 3, obj.Count)
}

func TestDecodeJSONObjectMalformed(t *testing.T) {
	type doc struct{}
	_, err := DecodeJSONObject[doc](strings.NewReader(`{"type":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode object")
}
