package ocr

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"hardsub/internal/frames"
	"hardsub/internal/logging"
	"hardsub/internal/stitch"
)

// PoolOptions configures a Pool.
type PoolOptions struct {
	// Workers bounds concurrent recognitions. Values below 1 mean 1.
	Workers int
	// SkipFailed turns a per-frame recognition failure into an empty
	// observation instead of aborting the sequence.
	SkipFailed bool
}

// Pool recognizes frames concurrently and delivers results in frame order.
type Pool struct {
	rec     Recognizer
	opts    PoolOptions
	logger  *slog.Logger
	skipped atomic.Int64
}

// NewPool builds a Pool around rec.
func NewPool(rec Recognizer, opts PoolOptions, logger *slog.Logger) *Pool {
	opts.Workers = max(opts.Workers, 1)
	return &Pool{
		rec:    rec,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "ocr"),
	}
}

// Skipped returns the number of frames whose recognition failed and was
// replaced by an empty observation.
func (p *Pool) Skipped() int64 { return p.skipped.Load() }

type future struct {
	frame frames.Frame
	text  string
	err   error
	done  chan struct{}
}

// Observations lazily recognizes the frames of seq. At most Workers frames
// are recognized at once and at most twice that many results are buffered
// ahead of the consumer. Results are yielded strictly in the order seq
// produced the frames. The first error ends the sequence; when ctx is
// cancelled the context error is yielded last.
func (p *Pool) Observations(ctx context.Context, seq iter.Seq[frames.Frame]) iter.Seq2[stitch.Observation, error] {
	return func(yield func(stitch.Observation, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		var g errgroup.Group
		g.SetLimit(p.opts.Workers)

		pending := make(chan *future, p.opts.Workers*2)
		produced := make(chan struct{})
		go func() {
			defer close(produced)
			defer close(pending)
			for frame := range seq {
				if ctx.Err() != nil {
					return
				}
				f := &future{frame: frame, done: make(chan struct{})}
				select {
				case pending <- f:
				case <-ctx.Done():
					return
				}
				g.Go(func() error {
					defer close(f.done)
					f.text, f.err = p.rec.Recognize(ctx, frame.Path)
					return nil
				})
			}
		}()
		defer func() {
			cancel()
			<-produced
			_ = g.Wait()
		}()

		for f := range pending {
			select {
			case <-f.done:
			case <-ctx.Done():
				yield(stitch.Observation{}, ctx.Err())
				return
			}
			if f.err != nil {
				if !p.skip(ctx, f) {
					yield(stitch.Observation{}, f.err)
					return
				}
				f.text = ""
			}
			if !yield(stitch.Observation{Index: f.frame.Index, RawText: f.text}, nil) {
				return
			}
		}
		if err := ctx.Err(); err != nil {
			yield(stitch.Observation{}, err)
		}
	}
}

func (p *Pool) skip(ctx context.Context, f *future) bool {
	if !p.opts.SkipFailed || errors.Is(f.err, context.Canceled) || errors.Is(f.err, context.DeadlineExceeded) {
		return false
	}
	p.skipped.Add(1)
	logging.WarnWithContext(logging.WithContext(ctx, p.logger), "frame recognition failed; treating frame as empty", "ocr_frame_skipped",
		logging.Int("frame", f.frame.Index),
		logging.String("path", f.frame.Path),
		logging.Error(f.err),
		logging.String(logging.FieldErrorHint, "check the OCR command and language pack"),
		logging.String(logging.FieldImpact, "text on this frame is lost"),
	)
	return true
}
