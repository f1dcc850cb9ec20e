//go:build !integration

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/urbanlens/usi-cli/internal/classify"
)

func TestFormatSummary(t *testing.T) {
	counts := map[classify.Tier]int{
		classify.TierComfortable:  12,
		classify.TierStretched:    5,
		classify.TierHighBurden:   0,
		classify.TierSevereBurden: 3,
		classify.TierUnaffordable: 2,
		classify.TierExtreme:      1,
		classify.TierUnknown:      4,
	}

	var buf bytes.Buffer
	formatSummary(&buf, counts)

	out := buf.String()
	assert.Contains(t, out, "Comfortable")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "Unknown")
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "27")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("12345678-abcd-efgh"))
	assert.Equal(t, "short", truncateID("short"))
}
