package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanlens/usi-cli/internal/fetcher"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and cache a dataset",
	Long:  "Downloads the dataset with conditional requests (ETag) and caches the body in the store, so later commands can serve an unchanged dataset without re-downloading.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		source, _ := cmd.Flags().GetString("source")
		if source == "" {
			source = cfg.Dataset.Source
		}
		if source == "" {
			return eris.New("no dataset source: pass --source or set dataset.source in config")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		cached, err := st.GetCachedDataset(ctx, source)
		if err != nil {
			return eris.Wrap(err, "fetch: read cache")
		}
		etag := ""
		if cached != nil {
			etag = cached.ETag
		}

		httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:    cfg.Dataset.UserAgent,
			Timeout:      time.Duration(cfg.Dataset.TimeoutSecs) * time.Second,
			RateLimiters: fetcher.DefaultRateLimiters(),
		})

		body, newETag, changed, err := httpFetcher.DownloadIfChanged(ctx, source, etag)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		if !changed {
			zap.L().Info("dataset unchanged", zap.String("source", source), zap.String("etag", etag))
			fmt.Fprintln(os.Stderr, "Dataset unchanged; cache is current.")
			return nil
		}
		defer body.Close() //nolint:errcheck

		data, err := io.ReadAll(body)
		if err != nil {
			return eris.Wrap(err, "fetch: read body")
		}

		if err := st.SetCachedDataset(ctx, source, newETag, data); err != nil {
			return eris.Wrap(err, "fetch: write cache")
		}

		zap.L().Info("dataset cached",
			zap.String("source", source),
			zap.String("etag", newETag),
			zap.Int("bytes", len(data)),
		)
		fmt.Fprintf(os.Stderr, "Cached %d bytes.\n", len(data))
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("source", "", "dataset URL (default from config)")
	rootCmd.AddCommand(fetchCmd)
}
