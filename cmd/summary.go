package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanlens/usi-cli/internal/classify"
	"github.com/urbanlens/usi-cli/internal/report"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the tier distribution of a dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		source, _ := cmd.Flags().GetString("source")
		save, _ := cmd.Flags().GetBool("save")

		if source == "" {
			source = cfg.Dataset.Source
		}

		_, keys, col, err := loadProjected(ctx, source)
		if err != nil {
			return eris.Wrap(err, "summary")
		}

		counts := report.Tally(col.Records, keys)
		formatSummary(os.Stdout, counts)

		if save {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}

			saved, err := st.SaveSummary(ctx, source, counts)
			if err != nil {
				return eris.Wrap(err, "summary save")
			}
			zap.L().Info("summary saved",
				zap.String("id", saved.ID),
				zap.String("source", source),
			)
		}

		return nil
	},
}

var summaryHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously saved summaries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")
		if source == "" {
			source = cfg.Dataset.Source
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		summaries, err := st.ListSummaries(ctx, source, limit)
		if err != nil {
			return eris.Wrap(err, "summary history")
		}
		if len(summaries) == 0 {
			fmt.Fprintln(os.Stderr, "No summaries found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tCREATED\tTOTAL\tUNKNOWN")
		for _, s := range summaries {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n",
				truncateID(s.ID),
				s.CreatedAt.Format("2006-01-02 15:04"),
				report.Total(s.Counts),
				s.Counts[classify.TierUnknown],
			)
		}
		_ = w.Flush()
		return nil
	},
}

func init() {
	summaryCmd.Flags().String("source", "", "dataset URL or file path (default from config)")
	summaryCmd.Flags().Bool("save", false, "persist the summary to the store")

	summaryHistoryCmd.Flags().String("source", "", "dataset source to list summaries for")
	summaryHistoryCmd.Flags().Int("limit", 20, "max summaries to display")

	summaryCmd.AddCommand(summaryHistoryCmd)
	rootCmd.AddCommand(summaryCmd)
}

// formatSummary writes the tier tally in canonical tier order, ending
// with Unknown and the total.
func formatSummary(out io.Writer, counts map[classify.Tier]int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIER\tCITIES")
	_, _ = fmt.Fprintln(w, "----\t------")
	for _, tier := range classify.AllTiers {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", tier.Label(), counts[tier])
	}
	_, _ = fmt.Fprintf(w, "Total\t%d\n", report.Total(counts))
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
