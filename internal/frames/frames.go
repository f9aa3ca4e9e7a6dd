package frames

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"hardsub/internal/logging"
	"hardsub/internal/services"
)

const (
	framePattern = "frame_%06d.jpg"
	frameGlob    = "frame_*.jpg"
)

// Frame is one sampled still. Index starts at 0 and increases by one per
// sampled frame; Timestamp is the approximate source position.
type Frame struct {
	Index     int
	Path      string
	Timestamp time.Duration
}

// Options configures sampling.
type Options struct {
	FFmpegBinary string
	// Interval is the spacing between sampled frames in seconds.
	Interval float64
	// CropRatio is the fraction of the picture height kept, measured from the bottom.
	CropRatio   float64
	JPEGQuality int
	// Dir receives the JPEGs. It is created if missing.
	Dir  string
	Keep bool
}

// CommandRunner executes ffmpeg. Tests substitute it to avoid real decodes.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Sampler extracts frames with ffmpeg.
type Sampler struct {
	opts   Options
	run    CommandRunner
	logger *slog.Logger
}

// Option customizes a Sampler.
type Option func(*Sampler)

// WithCommandRunner overrides how ffmpeg is executed.
func WithCommandRunner(r CommandRunner) Option {
	return func(s *Sampler) {
		if r != nil {
			s.run = r
		}
	}
}

// NewSampler validates options and returns a Sampler.
func NewSampler(opts Options, logger *slog.Logger, options ...Option) (*Sampler, error) {
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("frames: interval must be positive, got %v", opts.Interval)
	}
	if opts.CropRatio <= 0 || opts.CropRatio > 1 {
		return nil, fmt.Errorf("frames: crop ratio must be in (0, 1], got %v", opts.CropRatio)
	}
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, fmt.Errorf("frames: output directory is required")
	}
	if strings.TrimSpace(opts.FFmpegBinary) == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 2
	}
	s := &Sampler{
		opts:   opts,
		run:    defaultCommandRunner,
		logger: logging.NewComponentLogger(logger, "frames"),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Args returns the ffmpeg arguments used to sample source.
func (s *Sampler) Args(source string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-y",
		"-i", source,
		"-an", "-sn", "-dn",
		"-vf", filterGraph(s.opts.Interval, s.opts.CropRatio),
		"-q:v", strconv.Itoa(s.opts.JPEGQuality),
		filepath.Join(s.opts.Dir, framePattern),
	}
}

// filterGraph keeps one frame per interval, then crops the bottom band.
func filterGraph(interval, cropRatio float64) string {
	ratio := formatFloat(cropRatio)
	return fmt.Sprintf("fps=1/%s,crop=iw:ih*%s:0:ih-oh", formatFloat(interval), ratio)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Sample decodes source into the output directory and returns the batch.
// On failure the directory is removed unless frames are kept.
func (s *Sampler) Sample(ctx context.Context, source string) (*Batch, error) {
	logger := logging.WithContext(ctx, s.logger)
	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "frames", "prepare", "create frame directory", err)
	}

	started := time.Now()
	logger.Debug("sampling frames",
		logging.String("ffmpeg", s.opts.FFmpegBinary),
		logging.String("filter", filterGraph(s.opts.Interval, s.opts.CropRatio)),
		logging.String("dir", s.opts.Dir),
	)
	if err := s.run(ctx, s.opts.FFmpegBinary, s.Args(source)...); err != nil {
		s.discard()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrDecode, "frames", "ffmpeg", "sample frames", err)
	}

	paths, err := filepath.Glob(filepath.Join(s.opts.Dir, frameGlob))
	if err != nil {
		s.discard()
		return nil, services.Wrap(services.ErrDecode, "frames", "list", "list sampled frames", err)
	}
	slices.Sort(paths)

	batch := &Batch{dir: s.opts.Dir, paths: paths, interval: s.opts.Interval, keep: s.opts.Keep}
	logger.Info("frames sampled",
		logging.Int("frames", len(paths)),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return batch, nil
}

func (s *Sampler) discard() {
	if !s.opts.Keep {
		_ = os.RemoveAll(s.opts.Dir)
	}
}

// Batch is the set of frames produced by one Sample call.
type Batch struct {
	dir      string
	paths    []string
	interval float64
	keep     bool
}

// Dir returns the directory holding the frames.
func (b *Batch) Dir() string { return b.dir }

// Len returns the number of sampled frames.
func (b *Batch) Len() int { return len(b.paths) }

// All yields frames in index order. Frames deleted from disk after sampling
// are still yielded; readers report the missing file.
func (b *Batch) All() iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for i, path := range b.paths {
			frame := Frame{
				Index:     i,
				Path:      path,
				Timestamp: time.Duration(float64(i) * b.interval * float64(time.Second)),
			}
			if !yield(frame) {
				return
			}
		}
	}
}

// Cleanup removes the frame directory unless frames are kept.
func (b *Batch) Cleanup() error {
	if b == nil || b.keep {
		return nil
	}
	return os.RemoveAll(b.dir)
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
