package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/tunefetch/internal/fetcher"
	"github.com/user/tunefetch/internal/resolver"
)

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output file (default <track-id>.mp3)")
	rootCmd.AddCommand(fetchCmd)
}

var fetchOutput string

// fetchCmd exercises the resolution chain and fetcher directly, without the
// Telegram side. Handy for debugging provider changes.
var fetchCmd = &cobra.Command{
	Use:   "fetch <track-id>",
	Short: "Resolve a track id and download its audio to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		trackID := args[0]
		cat := newCatalogClient(cfg)
		if !cat.Configured() {
			return fmt.Errorf("catalog API key is not configured (set CATALOG_API_KEY)")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stream, err := resolver.New(cat).Resolve(ctx, trackID)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Resolved: %s (segmented=%v)\n", stream.URL, stream.Segmented)

		data, segments, skipped, err := fetcher.New().Fetch(ctx, stream)
		if err != nil {
			return err
		}

		out := fetchOutput
		if out == "" {
			out = trackID + ".mp3"
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Wrote %d bytes to %s (%d segments, %d skipped)\n", len(data), out, segments, skipped)
		return nil
	},
}
