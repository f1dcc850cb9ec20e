package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/urbanlens/usi-cli/internal/classify"
	"github.com/urbanlens/usi-cli/internal/projector"
	"github.com/urbanlens/usi-cli/internal/resolve"
	"github.com/urbanlens/usi-cli/internal/store"
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List cities with their stress scores and tiers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		source, _ := cmd.Flags().GetString("source")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		tierFilter, _ := cmd.Flags().GetString("tier")
		minScore, _ := cmd.Flags().GetFloat64("min-score")
		save, _ := cmd.Flags().GetBool("save")

		models, keys, col, err := loadProjected(ctx, source)
		if err != nil {
			return eris.Wrap(err, "cities")
		}

		zap.L().Info("dataset projected",
			zap.Int("cities", len(models)),
			zap.String("score_key", keys[resolve.RoleScore]),
		)

		models = filterCities(models, classify.Tier(tierFilter), minScore)
		if len(models) == 0 {
			fmt.Fprintln(os.Stderr, "No cities matched.")
			return nil
		}

		if save {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			rows, err := saveCitySnapshots(ctx, st, col.Source, models)
			if err != nil {
				return eris.Wrap(err, "cities save")
			}
			zap.L().Info("city snapshots saved",
				zap.String("source", col.Source),
				zap.Int64("rows", rows),
			)
		}

		out := os.Stdout
		if output != "" && format != "xlsx" {
			f, err := os.Create(output)
			if err != nil {
				return eris.Wrap(err, "cities: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		switch format {
		case "table":
			formatCitiesTable(out, models)
			return nil
		case "csv":
			return formatCitiesCSV(out, models)
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(models)
		case "xlsx":
			if output == "" {
				return eris.New("cities: --output is required for xlsx format")
			}
			return writeCitiesXLSX(output, models)
		default:
			return eris.Errorf("cities: unknown format %q", format)
		}
	},
}

func init() {
	citiesCmd.Flags().String("source", "", "dataset URL or file path (default from config)")
	citiesCmd.Flags().String("format", "table", "output format (table, csv, json, xlsx)")
	citiesCmd.Flags().String("output", "", "write to file instead of stdout (required for xlsx)")
	citiesCmd.Flags().String("tier", "", "only show cities in this tier")
	citiesCmd.Flags().Float64("min-score", 0, "only show cities with score >= this value")
	citiesCmd.Flags().Bool("save", false, "persist the listed cities as snapshots in the store")
	rootCmd.AddCommand(citiesCmd)
}

// saveCitySnapshots persists the projected cities for later inspection.
func saveCitySnapshots(ctx context.Context, st store.Store, source string, models []projector.ViewModel) (int64, error) {
	if err := st.Migrate(ctx); err != nil {
		return 0, err
	}
	return st.SaveCitySnapshots(ctx, source, models)
}

// filterCities keeps models matching the tier and minimum score. A zero
// minScore keeps everything, including cities with no score at all.
func filterCities(models []projector.ViewModel, tier classify.Tier, minScore float64) []projector.ViewModel {
	if tier == "" && minScore == 0 {
		return models
	}

	var kept []projector.ViewModel
	for _, m := range models {
		if tier != "" && m.Tier != tier {
			continue
		}
		if minScore > 0 && (m.Score == nil || *m.Score < minScore) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func formatCitiesTable(out io.Writer, models []projector.ViewModel) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CITY\tUSI\tTIER\tHOUSING\tFOOD\tINCOME")
	_, _ = fmt.Fprintln(w, "----\t---\t----\t-------\t----\t------")

	for _, m := range models {
		title := m.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			title,
			m.ScoreDisplay,
			m.TierLabel,
			m.HousingDisplay,
			m.FoodDisplay,
			m.IncomeFormatted,
		)
	}
	_ = w.Flush()
}

var citiesHeader = []string{
	"city", "usi", "tier", "housing_share", "food_share", "income", "color", "radius", "lon", "lat",
}

func citiesRow(m projector.ViewModel) []string {
	lon, lat := "", ""
	if m.HasPoint {
		lon = strconv.FormatFloat(m.Lon, 'f', -1, 64)
		lat = strconv.FormatFloat(m.Lat, 'f', -1, 64)
	}
	return []string{
		m.Title,
		m.ScoreDisplay,
		m.TierLabel,
		m.HousingDisplay,
		m.FoodDisplay,
		m.IncomeFormatted,
		m.Color,
		strconv.FormatFloat(m.Radius, 'f', -1, 64),
		lon,
		lat,
	}
}

func formatCitiesCSV(out io.Writer, models []projector.ViewModel) error {
	w := csv.NewWriter(out)
	if err := w.Write(citiesHeader); err != nil {
		return eris.Wrap(err, "cities: write csv header")
	}
	for _, m := range models {
		if err := w.Write(citiesRow(m)); err != nil {
			return eris.Wrap(err, "cities: write csv row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "cities: flush csv")
}

func writeCitiesXLSX(path string, models []projector.ViewModel) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Cities")
	if err != nil {
		return eris.Wrap(err, "cities: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range citiesHeader {
		header.AddCell().SetString(h)
	}
	for _, m := range models {
		row := sheet.AddRow()
		for _, v := range citiesRow(m) {
			row.AddCell().SetString(v)
		}
	}

	return eris.Wrap(f.Save(path), "cities: save xlsx")
}
