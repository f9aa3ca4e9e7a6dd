package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hardsub/internal/config"
	"hardsub/internal/services"
	"hardsub/internal/store"
)

const runTimeLayout = "2006-01-02 15:04:05"

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List extraction run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					if runs == nil {
						runs = []store.Run{}
					}
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), runsTable(runs))
				return nil
			})
		},
	}
	runsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	runsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsPruneCommand(ctx))
	return runsCmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run by ID or unique prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				run, err := st.GetRun(cmd.Context(), args[0])
				if errors.Is(err, store.ErrRunNotFound) {
					return services.Wrap(services.ErrNotFound, "runs", "show", "", err)
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, run)
				}
				writeLines(cmd.OutOrStdout(), runDetail(*run)...)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newRunsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished runs older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return services.Wrap(services.ErrValidation, "runs", "prune", "--older-than must not be negative", nil)
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				removed, err := st.PruneRuns(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				if removed == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs pruned")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d run(s)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Prune runs started longer ago than this")
	return cmd
}

func runsTable(runs []store.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			string(run.Status),
			run.StartedAt.Local().Format(runTimeLayout),
			formatDuration(run.Duration()),
			fmt.Sprintf("%d", run.Frames),
			fmt.Sprintf("%d", run.Lines),
			truncate(run.Source, 48),
		})
	}
	return renderTable(
		[]string{"ID", "Status", "Started", "Took", "Frames", "Lines", "Source"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

func runDetail(run store.Run) []string {
	finished := "-"
	if run.FinishedAt != nil {
		finished = run.FinishedAt.Local().Format(runTimeLayout)
	}
	lines := []string{
		renderValueLine("Run", run.ID),
		renderValueLine("Status", string(run.Status)),
		renderValueLine("Source", run.Source),
		renderValueLine("Output", run.Output),
		renderValueLine("Frames", fmt.Sprintf("%d (%d empty)", run.Frames, run.EmptyFrames)),
		renderValueLine("Lines", fmt.Sprintf("%d", run.Lines)),
		renderValueLine("OCR cache hits", fmt.Sprintf("%d", run.CacheHits)),
		renderValueLine("Started", run.StartedAt.Local().Format(runTimeLayout)),
		renderValueLine("Finished", finished),
		renderValueLine("Took", formatDuration(run.Duration())),
	}
	if run.Error != "" {
		lines = append(lines, renderValueLine("Error", run.Error))
	}
	if run.OptionsJSON != "" {
		lines = append(lines, renderValueLine("Options", run.OptionsJSON))
	}
	return lines
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
