package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbanlens/usi-cli/internal/calculator"
)

var breakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "Compute an income/expense affordability breakdown",
	Long:  "Pass --income with --housing-pct/--food-pct to expand percentage shares into amounts, or override any category amount directly.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		income, _ := cmd.Flags().GetFloat64("income")
		housingPct, _ := cmd.Flags().GetFloat64("housing-pct")
		foodPct, _ := cmd.Flags().GetFloat64("food-pct")
		format, _ := cmd.Flags().GetString("format")

		shares := calculator.ExpandFromShares(income, housingPct, foodPct)

		items := calculator.ItemsFromShares(cfg.Calculator.Categories, shares)
		for i, item := range items {
			flag := categoryFlag(item.Name)
			if flag == "" || !cmd.Flags().Changed(flag) {
				continue
			}
			amount, _ := cmd.Flags().GetFloat64(flag)
			items[i].Amount = amount
		}

		b := calculator.ComputeBreakdown(income, items)

		switch format {
		case "table":
			formatBreakdown(os.Stdout, b)
			return nil
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(b)
		default:
			return eris.Errorf("breakdown: unknown format %q", format)
		}
	},
}

// categoryFlag maps a category name to its flag spelling.
func categoryFlag(name string) string {
	switch name {
	case calculator.CategoryHousing:
		return "housing"
	case calculator.CategoryFood:
		return "food"
	case calculator.CategoryUtilities:
		return "utilities"
	case calculator.CategoryTransport:
		return "transport"
	case calculator.CategoryCar:
		return "car"
	case calculator.CategoryClothing:
		return "clothing"
	case calculator.CategoryDiscretionary:
		return "discretionary"
	}
	return ""
}

func init() {
	breakdownCmd.Flags().Float64("income", 0, "monthly income")
	breakdownCmd.Flags().Float64("housing-pct", 0, "housing share of income, percent")
	breakdownCmd.Flags().Float64("food-pct", 0, "food share of income, percent")
	for _, name := range calculator.DefaultCategories {
		breakdownCmd.Flags().Float64(categoryFlag(name), 0, fmt.Sprintf("%s amount (overrides share expansion)", name))
	}
	breakdownCmd.Flags().String("format", "table", "output format (table, json)")
	rootCmd.AddCommand(breakdownCmd)
}

func formatBreakdown(out io.Writer, b calculator.Breakdown) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Income:\t%.2f\n", b.Income)
	_, _ = fmt.Fprintln(w, "")
	for _, item := range b.LineItems {
		_, _ = fmt.Fprintf(w, "%s:\t%.2f\n", item.Name, item.Amount)
	}
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "Total expenses:\t%.2f\n", b.TotalExpenses)
	_, _ = fmt.Fprintf(w, "Remaining:\t%.2f\n", b.Remaining)
	if b.Overspent() {
		_, _ = fmt.Fprintln(w, "Warning:\texpenses exceed income")
	}
	_ = w.Flush()
}
