package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hardsub/internal/config"
	"hardsub/internal/extraction"
	"hardsub/internal/logging"
	"hardsub/internal/obslog"
	"hardsub/internal/services"
	"hardsub/internal/sink"
	"hardsub/internal/stitch"
)

type stitchFlags struct {
	format       string
	output       string
	jsonOutput   bool
	threshold    float64
	maxEmptyGap  int
	minRunLength int
	script       string
	tieBreak     string
	metric       string
}

type stitchReport struct {
	Output string        `json:"output,omitempty"`
	Lines  []stitch.Line `json:"lines"`
	Stats  stitch.Stats  `json:"stats"`
}

func newStitchCommand(ctx *commandContext) *cobra.Command {
	var flags stitchFlags

	cmd := &cobra.Command{
		Use:   "stitch [file|-]",
		Short: "Stitch a saved per-frame OCR stream into subtitle lines",
		Long: "Reads one observation per frame and writes the stitched lines.\n\n" +
			"text format: one frame per input line, a blank line is an empty frame.\n" +
			"jsonl format: {\"index\":N,\"text\":\"...\"} per line, as written by extract --dump-observations.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format, err := obslog.ParseFormat(flags.format)
			if err != nil {
				return services.Wrap(services.ErrValidation, "stitch", "flags", "", err)
			}
			cfg := applyStitchFlags(cmd, base, flags)
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			opts, err := extraction.StitchOptions(cfg, logging.NewComponentLogger(logger, "stitch"))
			if err != nil {
				return err
			}

			input := sink.Stdout
			if len(args) == 1 {
				input = strings.TrimSpace(args[0])
			}
			r, closeInput, err := openInput(input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeInput()

			output := strings.TrimSpace(flags.output)
			if output == "" {
				output = sink.Stdout
			}
			return runStitch(cmd, opts, obslog.Read(r, format), output, flags.jsonOutput)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.format, "format", string(obslog.FormatText), "Input format: text or jsonl")
	f.StringVarP(&flags.output, "output", "o", "", "Output file (default stdout)")
	f.BoolVar(&flags.jsonOutput, "json", false, "Print lines with frame metadata and engine stats as JSON")
	f.Float64Var(&flags.threshold, "threshold", 0, "Similarity threshold in (0,1]")
	f.IntVar(&flags.maxEmptyGap, "max-empty-gap", 0, "Empty frames a line survives before it is finalised")
	f.IntVar(&flags.minRunLength, "min-run-length", 0, "Frames a line must persist before it is written")
	f.StringVar(&flags.script, "script", string(stitch.ScriptAny), "Target script for noise filtering: any, han, kana, hangul, latin")
	f.StringVar(&flags.tieBreak, "tie-break", "", "Representative reading policy: longest, shortest, first")
	f.StringVar(&flags.metric, "metric", "", "Similarity metric: levenshtein or lcs")

	return cmd
}

// applyStitchFlags overlays stitch flags on a copy of base. The script
// defaults to any, not the configured extraction script, because saved
// streams may come from any language.
func applyStitchFlags(cmd *cobra.Command, base *config.Config, flags stitchFlags) *config.Config {
	cfg := *base
	changed := cmd.Flags().Changed
	cfg.Stitch.Script = flags.script
	if changed("threshold") {
		cfg.Stitch.SimilarityThreshold = flags.threshold
	}
	if changed("max-empty-gap") {
		cfg.Stitch.MaxEmptyGap = flags.maxEmptyGap
	}
	if changed("min-run-length") {
		cfg.Stitch.MinRunLength = flags.minRunLength
	}
	if changed("tie-break") {
		cfg.Stitch.TieBreak = flags.tieBreak
	}
	if changed("metric") {
		cfg.Stitch.Metric = flags.metric
	}
	return &cfg
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == sink.Stdout {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "stitch", "open input", "", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func runStitch(cmd *cobra.Command, opts stitch.Options, observations iter.Seq2[stitch.Observation, error], output string, asJSON bool) error {
	engine, err := stitch.New(opts)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "stitch", "engine", "", err)
	}

	report := stitchReport{Lines: make([]stitch.Line, 0)}
	var out *sink.Sink
	if !asJSON || output != sink.Stdout {
		out, err = sink.Open(output, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		report.Output = output
	}

	var writeErr error
	runErr := engine.Run(cmd.Context(), observations, func(line stitch.Line) error {
		report.Lines = append(report.Lines, line)
		if out == nil {
			return nil
		}
		writeErr = out.Write(line.Text)
		return writeErr
	})
	report.Stats = engine.Stats()

	cancelled := errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)
	if runErr != nil && !cancelled {
		if out != nil {
			_ = out.Abort()
		}
		if writeErr != nil {
			return fmt.Errorf("write output: %w", runErr)
		}
		var orderErr *stitch.SequenceOrderError
		if errors.As(runErr, &orderErr) {
			return services.Wrap(services.ErrValidation, "stitch", "observations", "frame indexes must strictly increase", runErr)
		}
		return services.Wrap(services.ErrValidation, "stitch", "read observations", "", runErr)
	}
	if out != nil {
		if err := out.Commit(); err != nil {
			return errors.Join(runErr, fmt.Errorf("write output: %w", err))
		}
	}
	if asJSON {
		if err := writeJSON(cmd, report); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}
