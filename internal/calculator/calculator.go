// Package calculator computes income/expense affordability breakdowns.
// It accepts either a compact share representation (income plus
// percentage parameters, as carried in calculator links) or explicit
// per-category amounts, and produces the breakdown consumed by the
// chart and export layers.
package calculator

import (
	"math"
	"net/url"

	"github.com/urbanlens/usi-cli/internal/normalize"
)

// Expense category names, in the fixed chart order.
const (
	CategoryHousing       = "Housing"
	CategoryFood          = "Food"
	CategoryUtilities     = "Utilities"
	CategoryTransport     = "Public Transport"
	CategoryCar           = "Car"
	CategoryClothing      = "Clothing"
	CategoryDiscretionary = "Discretionary"
	// ChartRemainingLabel is the chart slice for money left over; it is
	// not an expense line item.
	ChartRemainingLabel = "Remaining"
)

// DefaultCategories lists the expense categories in display order.
var DefaultCategories = []string{
	CategoryHousing,
	CategoryFood,
	CategoryUtilities,
	CategoryTransport,
	CategoryCar,
	CategoryClothing,
	CategoryDiscretionary,
}

// LineItem is one named expense amount. Order is significant for
// chart and form display.
type LineItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Breakdown is the computed income-minus-expenses result. Remaining
// keeps its true signed value; only chart slices clamp it.
type Breakdown struct {
	Income        float64    `json:"income"`
	LineItems     []LineItem `json:"line_items"`
	TotalExpenses float64    `json:"total_expenses"`
	Remaining     float64    `json:"remaining"`
}

// Shares is the editable-form expansion of a compact share
// representation: absolute amounts rounded to whole units, suitable
// for pre-populating numeric inputs.
type Shares struct {
	Income  float64 `json:"income"`
	Housing float64 `json:"housing"`
	Food    float64 `json:"food"`
}

// ExpandFromShares converts income plus percentage shares into
// absolute amounts. Amounts are rounded to the nearest whole unit
// because the destination is a user-editable input, not a read-only
// ratio display.
func ExpandFromShares(income, housingPct, foodPct float64) Shares {
	return Shares{
		Income:  income,
		Housing: math.Round(income * housingPct / 100),
		Food:    math.Round(income * foodPct / 100),
	}
}

// ItemsFromShares builds the line items for a category list, seeding
// the housing and food amounts from an expanded share representation.
// An empty list falls back to DefaultCategories.
func ItemsFromShares(categories []string, s Shares) []LineItem {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	items := make([]LineItem, 0, len(categories))
	for _, name := range categories {
		var amount float64
		switch name {
		case CategoryHousing:
			amount = s.Housing
		case CategoryFood:
			amount = s.Food
		}
		items = append(items, LineItem{Name: name, Amount: amount})
	}
	return items
}

// ComputeBreakdown sums the line items and derives remaining income.
// Total: never fails; NaN/Inf amounts count as 0. Negative remaining
// is a valid result.
func ComputeBreakdown(income float64, items []LineItem) Breakdown {
	cleaned := make([]LineItem, len(items))
	var total float64
	for i, item := range items {
		amount := item.Amount
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			amount = 0
		}
		cleaned[i] = LineItem{Name: item.Name, Amount: amount}
		total += amount
	}

	return Breakdown{
		Income:        income,
		LineItems:     cleaned,
		TotalExpenses: total,
		Remaining:     income - total,
	}
}

// Slice is one chart slice (label → value).
type Slice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartSlices returns the label→value pairs for the breakdown chart:
// every line item followed by the remaining slice, which is clamped to
// zero for visualization. The textual Remaining figure keeps its sign.
func (b Breakdown) ChartSlices() []Slice {
	slices := make([]Slice, 0, len(b.LineItems)+1)
	for _, item := range b.LineItems {
		slices = append(slices, Slice{Label: item.Name, Value: item.Amount})
	}
	slices = append(slices, Slice{Label: ChartRemainingLabel, Value: math.Max(b.Remaining, 0)})
	return slices
}

// Overspent reports whether expenses exceed income, for alarm styling
// of the remaining figure.
func (b Breakdown) Overspent() bool {
	return b.Remaining < 0
}

// QueryParams are the recognized calculator query parameters. All
// default to 0 when absent or unparseable.
type QueryParams struct {
	Income     float64
	HousingPct float64
	FoodPct    float64
}

// ParseQuery extracts the calculator parameters from a URL query.
func ParseQuery(values url.Values) QueryParams {
	return QueryParams{
		Income:     queryNumber(values, "income"),
		HousingPct: queryNumber(values, "housingPct"),
		FoodPct:    queryNumber(values, "foodPct"),
	}
}

func queryNumber(values url.Values, key string) float64 {
	if n := normalize.ToNumeric(values.Get(key)); n != nil {
		return *n
	}
	return 0
}
