// Package classify maps Urban Stress Index scores to ordered severity
// tiers and their visual encoding (marker color and radius).
package classify

// Tier is an affordability severity classification.
type Tier string

const (
	TierComfortable  Tier = "comfortable"
	TierStretched    Tier = "stretched"
	TierHighBurden   Tier = "high_burden"
	TierSevereBurden Tier = "severe_burden"
	TierUnaffordable Tier = "unaffordable"
	TierExtreme      Tier = "extreme"
	TierUnknown      Tier = "unknown"
)

// AllTiers lists every tier in ascending severity order, Unknown last.
var AllTiers = []Tier{
	TierComfortable,
	TierStretched,
	TierHighBurden,
	TierSevereBurden,
	TierUnaffordable,
	TierExtreme,
	TierUnknown,
}

// thresholds holds the upper bound of each tier. Scanned in order;
// first score < upper wins. Scores at or above the last bound are
// extreme.
var thresholds = []struct {
	upper float64
	tier  Tier
}{
	{30, TierComfortable},
	{35, TierStretched},
	{40, TierHighBurden},
	{45, TierSevereBurden},
	{55, TierUnaffordable},
}

// Classify returns the tier for a USI score. A nil score is Unknown.
func Classify(score *float64) Tier {
	if score == nil {
		return TierUnknown
	}
	for _, t := range thresholds {
		if *score < t.upper {
			return t.tier
		}
	}
	return TierExtreme
}

// palette maps each tier to a stable, distinct marker color.
var palette = map[Tier]string{
	TierComfortable:  "#2ecc71",
	TierStretched:    "#f1c40f",
	TierHighBurden:   "#e67e22",
	TierSevereBurden: "#e74c3c",
	TierUnaffordable: "#8e44ad",
	TierExtreme:      "#4a235a",
	TierUnknown:      "#95a5a6",
}

// labels maps each tier to its popup display label.
var labels = map[Tier]string{
	TierComfortable:  "Comfortable",
	TierStretched:    "Stretched",
	TierHighBurden:   "High Burden",
	TierSevereBurden: "Severe Burden",
	TierUnaffordable: "Unaffordable",
	TierExtreme:      "Extreme",
	TierUnknown:      "Unknown",
}

// ColorOf returns the marker color for a tier.
func ColorOf(tier Tier) string {
	if c, ok := palette[tier]; ok {
		return c
	}
	return palette[TierUnknown]
}

// Label returns the human-readable tier label.
func (t Tier) Label() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return labels[TierUnknown]
}

// Radius interpolation bounds: scores are clamped into
// [radiusScoreMin, radiusScoreMax] and mapped linearly onto
// [radiusMin, radiusMax].
const (
	radiusScoreMin = 25.0
	radiusScoreMax = 60.0
	radiusMin      = 8.0
	radiusMax      = 18.0
)

// RadiusOf returns the marker radius for a USI score. Scores outside
// [25, 60] are treated as if at the nearest bound; a nil score maps to
// the minimum radius.
func RadiusOf(score *float64) float64 {
	if score == nil {
		return radiusMin
	}
	s := *score
	if s < radiusScoreMin {
		s = radiusScoreMin
	}
	if s > radiusScoreMax {
		s = radiusScoreMax
	}
	frac := (s - radiusScoreMin) / (radiusScoreMax - radiusScoreMin)
	return radiusMin + frac*(radiusMax-radiusMin)
}
