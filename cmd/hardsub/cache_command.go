package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hardsub/internal/config"
	"hardsub/internal/services"
	"hardsub/internal/store"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the OCR result cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

type cacheReport struct {
	store.CacheStats
	Enabled  bool   `json:"enabled"`
	Database string `json:"database"`
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show OCR cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				stats, err := st.CacheStats(cmd.Context())
				if err != nil {
					return err
				}
				report := cacheReport{CacheStats: stats, Enabled: cfg.OCR.Cache, Database: st.Path()}
				if jsonOutput {
					return writeJSON(cmd, report)
				}
				rows := [][]string{
					{"Enabled", yesNo(report.Enabled)},
					{"Entries", humanize.Comma(stats.Entries)},
					{"Hits", humanize.Comma(stats.Hits)},
					{"Engines", humanize.Comma(stats.Engines)},
					{"Text size", humanize.IBytes(uint64(stats.Bytes))},
					{"Database", report.Database},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"OCR cache", ""}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached recognitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return services.Wrap(services.ErrValidation, "cache", "clear", "--older-than must not be negative", nil)
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				removed, err := st.ClearCache(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				if removed == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No cache entries removed")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s cache entries\n", humanize.Comma(removed))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove entries unused for this long (0 removes everything)")
	return cmd
}
