// Package projector turns raw feature records into display-ready view
// models for the map-rendering frontend.
package projector

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/urbanlens/usi-cli/internal/classify"
	"github.com/urbanlens/usi-cli/internal/dataset"
	"github.com/urbanlens/usi-cli/internal/normalize"
	"github.com/urbanlens/usi-cli/internal/resolve"
)

// UnknownCity is the title fallback when no place name resolves.
const UnknownCity = "Unknown city"

// LinkParams carries the exact numeric values the frontend uses to
// build calculator links (income, housingPct, foodPct query params).
// Zero values stand in for unresolved fields.
type LinkParams struct {
	Income     float64 `json:"income"`
	HousingPct float64 `json:"housing_pct"`
	FoodPct    float64 `json:"food_pct"`
}

// ViewModel is the derived, read-only projection of one record. It is
// reconstructed fresh per render and carries no identity beyond the
// record it came from.
type ViewModel struct {
	Title           string        `json:"title"`
	ScoreDisplay    string        `json:"score_display"`
	Score           *float64      `json:"score,omitempty"`
	Tier            classify.Tier `json:"tier"`
	TierLabel       string        `json:"tier_label"`
	HousingDisplay  string        `json:"housing_display"`
	FoodDisplay     string        `json:"food_display"`
	IncomeFormatted string        `json:"income_formatted"`
	Color           string        `json:"color"`
	Radius          float64       `json:"radius"`
	Lon             float64       `json:"lon"`
	Lat             float64       `json:"lat"`
	HasPoint        bool          `json:"has_point"`
	Links           LinkParams    `json:"links"`
}

// Project derives the view model for one record using keys resolved
// once for the whole collection. Pure: unresolved roles and malformed
// values degrade to "N/A"/zero outputs, never errors.
func Project(rec dataset.Record, keys resolve.KeySet) ViewModel {
	rawScore := resolve.Value(rec.Props, keys, resolve.RoleScore)
	score := normalize.ToNumeric(rawScore)
	tier := classify.Classify(score)

	income := normalize.ToNumeric(resolve.Value(rec.Props, keys, resolve.RoleIncomeAmount))

	housingDisplay, housingPct := shareDisplay(rec.Props, keys, resolve.RoleHousingShare, resolve.RoleRentAmount, income)
	foodDisplay, foodPct := shareDisplay(rec.Props, keys, resolve.RoleFoodShare, resolve.RoleFoodAmount, income)

	links := LinkParams{HousingPct: housingPct, FoodPct: foodPct}
	if income != nil {
		links.Income = *income
	}

	return ViewModel{
		Title:           title(rec.Props, keys),
		ScoreDisplay:    normalize.ToDisplayText(rawScore),
		Score:           score,
		Tier:            tier,
		TierLabel:       tier.Label(),
		HousingDisplay:  housingDisplay,
		FoodDisplay:     foodDisplay,
		IncomeFormatted: normalize.ToIncomeText(income),
		Color:           classify.ColorOf(tier),
		Radius:          classify.RadiusOf(score),
		Lon:             rec.Lon,
		Lat:             rec.Lat,
		HasPoint:        rec.HasPoint,
		Links:           links,
	}
}

// title builds "{place}" or "{place}, {region}", falling back to the
// unknown-city label when no place name resolves.
func title(props map[string]any, keys resolve.KeySet) string {
	place := resolve.Value(props, keys, resolve.RolePlaceName)
	if normalize.IsMissing(place) {
		return UnknownCity
	}
	placeText := normalize.ToDisplayText(place)

	region := resolve.Value(props, keys, resolve.RoleRegionName)
	if normalize.IsMissing(region) {
		return placeText
	}
	return placeText + ", " + normalize.ToDisplayText(region)
}

// shareDisplay produces the percentage display for a cost category.
// The directly-stored share field wins; when absent, the ratio is
// computed from the monthly amount and a positive income. The computed
// fallback keeps its natural textual form — no pre-rounding.
func shareDisplay(props map[string]any, keys resolve.KeySet, shareRole, amountRole resolve.Role, income *float64) (display string, pct float64) {
	rawShare := resolve.Value(props, keys, shareRole)
	if !normalize.IsMissing(rawShare) {
		display = normalize.ToDisplayText(rawShare)
		if n := normalize.ToNumeric(rawShare); n != nil {
			pct = *n
		}
		return display, pct
	}

	amount := normalize.ToNumeric(resolve.Value(props, keys, amountRole))
	if amount == nil || income == nil || *income <= 0 {
		return normalize.NoValue, 0
	}

	ratio := (*amount / *income) * 100
	return normalize.ToDisplayText(ratio), ratio
}

// PopupLines renders the fixed popup layout: title, score with tier
// label, housing and food shares, and formatted income.
func (vm ViewModel) PopupLines() []string {
	return []string{
		vm.Title,
		fmt.Sprintf("USI: %s (%s)", vm.ScoreDisplay, vm.TierLabel),
		fmt.Sprintf("Housing: %s", vm.HousingDisplay),
		fmt.Sprintf("Food: %s", vm.FoodDisplay),
		fmt.Sprintf("Typical Income (local currency, monthly) %s", vm.IncomeFormatted),
	}
}

// ProjectAll projects every record in a collection. Keys are resolved
// once from the first record and applied uniformly. Records are
// independent, so projection runs on a bounded worker group.
func ProjectAll(ctx context.Context, col *dataset.Collection, candidates resolve.Candidates) ([]ViewModel, resolve.KeySet) {
	if col == nil || len(col.Records) == 0 {
		return nil, resolve.KeySet{}
	}

	keys := resolve.Resolve(col.First(), candidates)
	models := make([]ViewModel, len(col.Records))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rec := range col.Records {
		g.Go(func() error {
			models[i] = Project(rec, keys)
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	return models, keys
}
