package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"hardsub/internal/acquire"
	"hardsub/internal/config"
	"hardsub/internal/deps"
	"hardsub/internal/fileutil"
	"hardsub/internal/frames"
	"hardsub/internal/logging"
	"hardsub/internal/media/ffprobe"
	"hardsub/internal/obslog"
	"hardsub/internal/ocr"
	"hardsub/internal/preflight"
	"hardsub/internal/services"
	"hardsub/internal/sink"
	"hardsub/internal/stitch"
	"hardsub/internal/store"
)

// Request describes one extraction.
type Request struct {
	Source string
	// Output is a file path or "-" for stdout. Empty selects DefaultOutput.
	Output string
	// DumpObservations, when set, receives the per-frame OCR text as JSONL.
	DumpObservations string
	NoCache          bool
}

// Summary reports what a run produced.
type Summary struct {
	RunID             string          `json:"run_id"`
	Source            string          `json:"source"`
	Output            string          `json:"output"`
	OutputBytes       int64           `json:"output_bytes"`
	Status            store.RunStatus `json:"status"`
	Frames            int             `json:"frames"`
	EmptyFrames       int             `json:"empty_frames"`
	Lines             int             `json:"lines"`
	CacheHits         int             `json:"cache_hits"`
	SkippedFrames     int             `json:"skipped_frames"`
	FlickersDiscarded int             `json:"flickers_discarded"`
	RepeatsSuppressed int             `json:"repeats_suppressed"`
	FramesDir         string          `json:"frames_dir,omitempty"`
	Duration          time.Duration   `json:"duration_ns"`
}

// Pipeline runs extractions for one configuration.
type Pipeline struct {
	cfg        *config.Config
	store      *store.Store
	logger     *slog.Logger
	stdout     io.Writer
	recognizer ocr.Recognizer
	acquireOpt []acquire.Option
	framesOpt  []frames.Option
	probe      func(ctx context.Context, binary, path string) (ffprobe.Result, error)
	newID      func() string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithStdout sets where "-" output is written.
func WithStdout(w io.Writer) Option {
	return func(p *Pipeline) { p.stdout = w }
}

// WithRecognizer replaces the configured OCR command.
func WithRecognizer(r ocr.Recognizer) Option {
	return func(p *Pipeline) { p.recognizer = r }
}

// WithAcquireOptions forwards options to the acquirer.
func WithAcquireOptions(opts ...acquire.Option) Option {
	return func(p *Pipeline) { p.acquireOpt = append(p.acquireOpt, opts...) }
}

// WithFrameOptions forwards options to the frame sampler.
func WithFrameOptions(opts ...frames.Option) Option {
	return func(p *Pipeline) { p.framesOpt = append(p.framesOpt, opts...) }
}

// WithProbe replaces ffprobe inspection.
func WithProbe(fn func(ctx context.Context, binary, path string) (ffprobe.Result, error)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.probe = fn
		}
	}
}

// New builds a Pipeline. st may be nil, which disables run history and the
// OCR cache.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		store:  st,
		logger: logging.NewComponentLogger(logger, "extraction"),
		stdout: os.Stdout,
		probe:  ffprobe.Inspect,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one extraction. The returned Summary is populated even when
// err is non-nil, as far as the run got.
func (p *Pipeline) Run(ctx context.Context, req Request) (Summary, error) {
	started := time.Now()
	runID := p.newID()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithSource(ctx, req.Source)
	logger := logging.WithContext(ctx, p.logger)

	output := strings.TrimSpace(req.Output)
	if output == "" {
		output = DefaultOutput(req.Source)
	}
	summary := Summary{RunID: runID, Source: req.Source, Output: output, Status: store.RunRunning}

	opts, err := StitchOptions(p.cfg, logging.NewComponentLogger(logger, "stitch"))
	if err != nil {
		return summary, err
	}

	lock, err := lockOutput(output)
	if err != nil {
		return summary, err
	}
	defer lock.release()

	p.recordStart(ctx, logger, summary, req, opts)

	result := &runState{}
	err = p.execute(ctx, logger, req, output, filepath.Join(p.cfg.Paths.WorkDir, runID), opts, result)

	summary.Frames = result.stats.Frames
	summary.EmptyFrames = result.stats.EmptyFrames
	summary.Lines = result.lines
	summary.CacheHits = result.cacheHits
	summary.SkippedFrames = result.skipped
	summary.FlickersDiscarded = result.stats.FlickersDiscarded
	summary.RepeatsSuppressed = result.stats.RepeatsSuppressed
	summary.FramesDir = result.framesDir
	summary.Duration = time.Since(started)
	if output != "-" {
		summary.OutputBytes = fileutil.FileSize(output)
	}
	summary.Status = store.RunCompleted
	if err != nil {
		summary.Status = services.FailureStatus(err)
	}
	p.recordFinish(ctx, logger, summary, err)

	if err != nil {
		if summary.Status == store.RunCancelled {
			logging.WarnWithContext(logger, "extraction cancelled; partial output kept", "extraction_cancelled",
				logging.Int("lines", summary.Lines),
				logging.String("output", output),
				logging.String(logging.FieldErrorHint, "re-run to extract the remaining frames"),
				logging.String(logging.FieldImpact, "output ends early"),
			)
		} else {
			logging.ErrorWithContext(logger, "extraction failed", "extraction_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, errorHint(err)),
			)
		}
		return summary, err
	}

	logger.Info("extraction completed",
		logging.String(logging.FieldEventType, "extraction_complete"),
		logging.String("output", output),
		logging.Int("frames", summary.Frames),
		logging.Int("lines", summary.Lines),
		logging.Int("cache_hits", summary.CacheHits),
		logging.Duration("elapsed", summary.Duration.Round(time.Millisecond)),
	)
	return summary, nil
}

type runState struct {
	stats     stitch.Stats
	lines     int
	cacheHits int
	skipped   int
	framesDir string
}

func (p *Pipeline) execute(ctx context.Context, logger *slog.Logger, req Request, output, runDir string, opts stitch.Options, result *runState) error {
	if err := p.cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, "preflight", "directories", "", err)
	}
	if failed := preflight.Failed(preflight.RunAll(ctx, p.cfg)); len(failed) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", failed[0].Name, failed[0].Detail, nil)
	}

	keep := p.cfg.Frames.KeepFrames
	defer func() {
		if !keep {
			_ = os.RemoveAll(runDir)
		}
	}()

	ffmpeg := deps.ResolveFFmpegPath(p.cfg.Frames.FFmpegBinary)

	// Acquire.
	actx := services.WithStage(ctx, "acquire")
	acquirer := acquire.New(acquire.Options{
		YtDlpBinary:    p.cfg.Acquire.YtDlpBinary,
		Format:         p.cfg.Acquire.Format,
		Browser:        p.cfg.Acquire.Browser,
		CookiesFile:    p.cfg.Acquire.CookiesFile,
		FFmpegLocation: deps.FFmpegDir(ffmpeg),
		Timeout:        time.Duration(p.cfg.Acquire.TimeoutSeconds) * time.Second,
		Dir:            runDir,
	}, p.logger, p.acquireOpt...)
	src, err := acquirer.Acquire(actx, req.Source)
	if err != nil {
		return err
	}
	if !keep {
		defer func() { _ = src.Cleanup() }()
	}

	// Probe.
	pctx := services.WithStage(ctx, "probe")
	probe, err := p.probe(pctx, deps.ResolveFFprobePath(p.cfg.Frames.FFprobeBinary, ffmpeg), src.Path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrDecode, "probe", "ffprobe", src.Path, err)
	}
	if probe.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrDecode, "probe", "ffprobe", src.Path+" has no video stream", nil)
	}
	duration := probe.DurationSeconds()
	logging.WithContext(pctx, p.logger).Info("source probed",
		logging.Float64("duration_seconds", duration),
		logging.Int("expected_frames", expectedFrames(duration, p.cfg.Frames.IntervalSeconds)),
	)

	// Sample.
	fctx := services.WithStage(ctx, "frames")
	sampler, err := frames.NewSampler(frames.Options{
		FFmpegBinary: ffmpeg,
		Interval:     p.cfg.Frames.IntervalSeconds,
		CropRatio:    p.cfg.Frames.CropRatio,
		JPEGQuality:  p.cfg.Frames.JPEGQuality,
		Dir:          filepath.Join(runDir, "frames"),
		Keep:         keep,
	}, p.logger, p.framesOpt...)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "frames", "options", "", err)
	}
	batch, err := sampler.Sample(fctx, src.Path)
	if err != nil {
		return err
	}
	defer func() { _ = batch.Cleanup() }()
	if keep {
		result.framesDir = batch.Dir()
		logger.Info("frames kept", logging.String("dir", batch.Dir()))
	}
	if batch.Len() == 0 {
		return services.Wrap(services.ErrDecode, "frames", "ffmpeg", "no frames extracted", nil)
	}

	// Recognize and stitch.
	octx := services.WithStage(ctx, "ocr")
	recognizer, cached, err := p.buildRecognizer(req)
	if err != nil {
		return err
	}
	pool := ocr.NewPool(recognizer, ocr.PoolOptions{
		Workers:    p.cfg.OCR.Workers,
		SkipFailed: p.cfg.OCR.SkipFailedFrames,
	}, p.logger)
	defer func() {
		result.skipped = int(pool.Skipped())
		if cached != nil {
			result.cacheHits = int(cached.Hits())
		}
	}()

	observations := pool.Observations(octx, batch.All())
	if req.DumpObservations != "" {
		dump, err := obslog.Create(req.DumpObservations)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "ocr", "dump", "", err)
		}
		defer func() {
			if err := dump.Close(); err != nil {
				logger.Warn("close observation dump", logging.Error(err))
			}
		}()
		observations = teeObservations(observations, dump, p.cfg.Frames.IntervalSeconds)
	}
	observations = p.withProgress(octx, observations, batch.Len())

	out, err := sink.Open(output, p.stdout)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "sink", "open", output, err)
	}

	engine, err := stitch.New(opts)
	if err != nil {
		_ = out.Abort()
		return services.Wrap(services.ErrConfiguration, "stitch", "options", "", err)
	}
	runErr := engine.Run(octx, observations, func(line stitch.Line) error {
		return out.Write(line.Text)
	})
	result.stats = engine.Stats()
	result.lines = out.Lines()

	if runErr != nil && !isCancellation(runErr) {
		_ = out.Abort()
		return runErr
	}
	if err := out.Commit(); err != nil {
		return errors.Join(runErr, services.Wrap(services.ErrExternalTool, "sink", "commit", output, err))
	}
	return runErr
}

func (p *Pipeline) buildRecognizer(req Request) (ocr.Recognizer, *ocr.CachedRecognizer, error) {
	rec := p.recognizer
	if rec == nil {
		command, err := ocr.NewCommandRecognizer(p.cfg.OCR.Command, p.cfg.OCR.Language, time.Duration(p.cfg.OCR.TimeoutSeconds)*time.Second)
		if err != nil {
			return nil, nil, err
		}
		rec = command
	}
	if !p.cfg.OCR.Cache || req.NoCache || p.store == nil {
		return rec, nil, nil
	}
	cached := ocr.NewCachedRecognizer(rec, p.store, p.logger)
	return cached, cached, nil
}

func (p *Pipeline) withProgress(ctx context.Context, seq iter.Seq2[stitch.Observation, error], total int) iter.Seq2[stitch.Observation, error] {
	logger := logging.WithContext(ctx, p.logger)
	sampler := logging.NewProgressSampler(10)
	return func(yield func(stitch.Observation, error) bool) {
		done := 0
		for obs, err := range seq {
			if err == nil {
				done++
				percent := float64(done) / float64(total) * 100
				if sampler.ShouldLog(percent, "ocr") {
					logger.Info("ocr progress",
						logging.Float64(logging.FieldProgressPercent, float64(int(percent))),
						logging.Int("frames_done", done),
						logging.Int("frames_total", total),
					)
				}
			}
			if !yield(obs, err) {
				return
			}
		}
	}
}

func teeObservations(seq iter.Seq2[stitch.Observation, error], dump *obslog.Writer, interval float64) iter.Seq2[stitch.Observation, error] {
	return func(yield func(stitch.Observation, error) bool) {
		for obs, err := range seq {
			if err == nil {
				ts := time.Duration(float64(obs.Index) * interval * float64(time.Second))
				if werr := dump.Write(obs, ts); werr != nil {
					yield(stitch.Observation{}, fmt.Errorf("write observation dump: %w", werr))
					return
				}
			}
			if !yield(obs, err) {
				return
			}
		}
	}
}

func (p *Pipeline) recordStart(ctx context.Context, logger *slog.Logger, summary Summary, req Request, opts stitch.Options) {
	logger.Info("extraction started",
		logging.String(logging.FieldEventType, "extraction_start"),
		logging.String("output", summary.Output),
		logging.Float64("interval_seconds", p.cfg.Frames.IntervalSeconds),
		logging.Float64("crop_ratio", p.cfg.Frames.CropRatio),
		logging.Float64("similarity_threshold", opts.SimilarityThreshold),
	)
	if p.store == nil {
		return
	}
	optionsJSON, _ := json.Marshal(runOptions{
		Interval:     p.cfg.Frames.IntervalSeconds,
		CropRatio:    p.cfg.Frames.CropRatio,
		Threshold:    opts.SimilarityThreshold,
		MaxEmptyGap:  opts.MaxEmptyGap,
		MinRunLength: opts.MinRunLength,
		Script:       string(opts.Script),
		TieBreak:     string(opts.TieBreak),
		Metric:       string(opts.Metric),
		OCRCommand:   p.cfg.OCR.Command,
		Language:     p.cfg.OCR.Language,
		NoCache:      req.NoCache,
	})
	err := p.store.StartRun(ctx, store.Run{
		ID:          summary.RunID,
		Source:      summary.Source,
		Output:      summary.Output,
		OptionsJSON: string(optionsJSON),
	})
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "run_history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in 'hardsub runs'"),
		)
	}
}

func (p *Pipeline) recordFinish(ctx context.Context, logger *slog.Logger, summary Summary, runErr error) {
	if p.store == nil {
		return
	}
	err := p.store.FinishRun(context.WithoutCancel(ctx), summary.RunID, summary.Status, store.RunResult{
		Frames:      summary.Frames,
		EmptyFrames: summary.EmptyFrames,
		Lines:       summary.Lines,
		CacheHits:   summary.CacheHits,
		Err:         runErr,
	})
	if err != nil {
		logger.Debug("record run finish failed", logging.Error(err))
	}
}

type runOptions struct {
	Interval     float64 `json:"interval_seconds"`
	CropRatio    float64 `json:"crop_ratio"`
	Threshold    float64 `json:"similarity_threshold"`
	MaxEmptyGap  int     `json:"max_empty_gap"`
	MinRunLength int     `json:"min_run_length"`
	Script       string  `json:"script"`
	TieBreak     string  `json:"tie_break"`
	Metric       string  `json:"metric"`
	OCRCommand   string  `json:"ocr_command"`
	Language     string  `json:"language"`
	NoCache      bool    `json:"no_cache,omitempty"`
}

func expectedFrames(durationSeconds, interval float64) int {
	if durationSeconds <= 0 || interval <= 0 {
		return 0
	}
	return int(durationSeconds/interval) + 1
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, services.ErrAcquisition):
		return "check the URL, network access and yt-dlp cookies options"
	case errors.Is(err, services.ErrDecode):
		return "check that ffmpeg can read the video"
	case errors.Is(err, services.ErrRecognition):
		return "check the OCR command, or set ocr.skip_failed_frames"
	case errors.Is(err, services.ErrConfiguration), errors.Is(err, services.ErrValidation):
		return "run 'hardsub config validate'"
	default:
		return "re-run with --log-level debug for details"
	}
}
