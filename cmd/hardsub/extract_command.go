package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hardsub/internal/config"
	"hardsub/internal/extraction"
	"hardsub/internal/services"
	"hardsub/internal/store"
)

type extractFlags struct {
	output           string
	interval         float64
	cropRatio        float64
	keepFrames       bool
	browser          string
	cookiesFile      string
	threshold        float64
	maxEmptyGap      int
	minRunLength     int
	workers          int
	noCache          bool
	dumpObservations string
	jsonOutput       bool
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var flags extractFlags

	cmd := &cobra.Command{
		Use:   "extract <url|file>",
		Short: "Extract burned-in subtitles from a video URL or file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyExtractFlags(cmd, base, flags)
			if err != nil {
				return err
			}
			if flags.jsonOutput && strings.TrimSpace(flags.output) == "-" {
				return services.Wrap(services.ErrValidation, "extract", "flags", "--json cannot be combined with -o -", nil)
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open state database: %w", err)
			}
			defer st.Close()

			pipeline := extraction.New(cfg, st, logger, extraction.WithStdout(cmd.OutOrStdout()))
			summary, runErr := pipeline.Run(cmd.Context(), extraction.Request{
				Source:           args[0],
				Output:           flags.output,
				DumpObservations: flags.dumpObservations,
				NoCache:          flags.noCache,
			})
			if summary.Status == store.RunCompleted || summary.Status == store.RunCancelled {
				if err := reportSummary(cmd, summary, flags.jsonOutput); err != nil {
					return errors.Join(runErr, err)
				}
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "", "Output file (\"-\" for stdout); defaults to a name derived from the source")
	f.Float64Var(&flags.interval, "interval", 0, "Seconds between sampled frames")
	f.Float64Var(&flags.cropRatio, "crop-ratio", 0, "Fraction of the frame height, from the bottom, to recognise")
	f.BoolVar(&flags.keepFrames, "keep-frames", false, "Keep the sampled frames after the run")
	f.StringVar(&flags.browser, "browser", "", "Read yt-dlp cookies from this browser (e.g. firefox, chrome:Profile 1)")
	f.StringVar(&flags.cookiesFile, "cookies-file", "", "Netscape cookies file passed to yt-dlp")
	f.Float64Var(&flags.threshold, "threshold", 0, "Similarity threshold in (0,1]")
	f.IntVar(&flags.maxEmptyGap, "max-empty-gap", 0, "Empty frames a line survives before it is finalised")
	f.IntVar(&flags.minRunLength, "min-run-length", 0, "Frames a line must persist before it is written")
	f.IntVar(&flags.workers, "workers", 0, "Concurrent OCR processes")
	f.BoolVar(&flags.noCache, "no-cache", false, "Bypass the OCR result cache")
	f.StringVar(&flags.dumpObservations, "dump-observations", "", "Write per-frame OCR text as JSONL for later `hardsub stitch`")
	f.BoolVar(&flags.jsonOutput, "json", false, "Print the run summary as JSON")

	return cmd
}

// applyExtractFlags returns a copy of base with every changed flag applied
// and re-validated.
func applyExtractFlags(cmd *cobra.Command, base *config.Config, flags extractFlags) (*config.Config, error) {
	cfg := *base
	changed := cmd.Flags().Changed

	if changed("interval") {
		cfg.Frames.IntervalSeconds = flags.interval
	}
	if changed("crop-ratio") {
		cfg.Frames.CropRatio = flags.cropRatio
	}
	if changed("keep-frames") {
		cfg.Frames.KeepFrames = flags.keepFrames
	}
	if changed("browser") {
		cfg.Acquire.Browser = strings.TrimSpace(flags.browser)
		cfg.Acquire.CookiesFile = ""
	}
	if changed("cookies-file") {
		path, err := config.ExpandPath(strings.TrimSpace(flags.cookiesFile))
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "extract", "flags", "", err)
		}
		cfg.Acquire.CookiesFile = path
		if !changed("browser") {
			cfg.Acquire.Browser = ""
		}
	}
	if changed("threshold") {
		cfg.Stitch.SimilarityThreshold = flags.threshold
	}
	if changed("max-empty-gap") {
		cfg.Stitch.MaxEmptyGap = flags.maxEmptyGap
	}
	if changed("min-run-length") {
		cfg.Stitch.MinRunLength = flags.minRunLength
	}
	if changed("workers") {
		cfg.OCR.Workers = flags.workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "extract", "flags", "", err)
	}
	return &cfg, nil
}

func reportSummary(cmd *cobra.Command, summary extraction.Summary, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, summary)
	}
	// Keep stdout clean when the subtitles themselves go there.
	out := cmd.OutOrStdout()
	if summary.Output == "-" {
		out = cmd.ErrOrStderr()
	}
	fmt.Fprint(out, summaryText(summary, shouldColorize(out)))
	return nil
}

func summaryText(summary extraction.Summary, colorize bool) string {
	var b strings.Builder
	kind, message := statusOK, "Extraction complete"
	if summary.Status == store.RunCancelled {
		kind, message = statusWarn, "Cancelled; partial output kept"
	}
	fmt.Fprintln(&b, renderStatusLine("Status", kind, message, colorize))

	output := summary.Output
	if output == "-" {
		output = "stdout"
	} else if summary.OutputBytes > 0 {
		output = fmt.Sprintf("%s (%s)", output, humanize.IBytes(uint64(summary.OutputBytes)))
	}
	writeLines(&b,
		renderValueLine("Output", output),
		renderValueLine("Lines", fmt.Sprintf("%d", summary.Lines)),
		renderValueLine("Frames", fmt.Sprintf("%d (%d empty)", summary.Frames, summary.EmptyFrames)),
		renderValueLine("OCR cache hits", fmt.Sprintf("%d", summary.CacheHits)),
	)
	if summary.SkippedFrames > 0 {
		writeLines(&b, renderStatusLine("Skipped frames", statusWarn, fmt.Sprintf("%d failed OCR", summary.SkippedFrames), colorize))
	}
	if summary.FramesDir != "" {
		writeLines(&b, renderValueLine("Frames kept", summary.FramesDir))
	}
	writeLines(&b,
		renderValueLine("Run", summary.RunID),
		renderValueLine("Elapsed", summary.Duration.Round(time.Millisecond).String()),
	)
	fmt.Fprintf(&b, "%d lines\n", summary.Lines)
	return b.String()
}

func writeLines(w io.Writer, lines ...string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
