// Package report aggregates classification counts across a collection
// for summary display.
package report

import (
	"github.com/urbanlens/usi-cli/internal/classify"
	"github.com/urbanlens/usi-cli/internal/dataset"
	"github.com/urbanlens/usi-cli/internal/normalize"
	"github.com/urbanlens/usi-cli/internal/resolve"
)

// Tally classifies every record's score and counts per tier. Every
// tier, including Unknown, is present in the result even at zero, and
// an empty collection yields all zeros.
func Tally(records []dataset.Record, keys resolve.KeySet) map[classify.Tier]int {
	counts := make(map[classify.Tier]int, len(classify.AllTiers))
	for _, tier := range classify.AllTiers {
		counts[tier] = 0
	}

	for _, rec := range records {
		score := normalize.ToNumeric(resolve.Value(rec.Props, keys, resolve.RoleScore))
		counts[classify.Classify(score)]++
	}

	return counts
}

// Total returns the sum of all tier counts.
func Total(counts map[classify.Tier]int) int {
	var n int
	for _, c := range counts {
		n += c
	}
	return n
}
