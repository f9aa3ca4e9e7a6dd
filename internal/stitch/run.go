package stitch

import (
	"context"
	"errors"
	"iter"
)

// Run drives the engine over observations, calling emit for every finalized
// line. When ctx is cancelled, or the sequence reports a context error, the
// live candidate is flushed through emit before the cancellation error is
// returned. Any other sequence error is returned as is.
func (e *Engine) Run(ctx context.Context, observations iter.Seq2[Observation, error], emit func(Line) error) error {
	for obs, err := range observations {
		if err != nil {
			if isCancellation(err) {
				return e.flushInto(emit, err)
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return e.flushInto(emit, ctxErr)
		}
		line, ok, err := e.Observe(obs)
		if err != nil {
			return err
		}
		if ok {
			if err := emit(line); err != nil {
				return err
			}
		}
	}
	return e.flushInto(emit, ctx.Err())
}

func (e *Engine) flushInto(emit func(Line) error, cause error) error {
	if line, ok := e.Flush(); ok {
		if err := emit(line); err != nil {
			return errors.Join(cause, err)
		}
	}
	return cause
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Observations adapts a slice of frame texts to an observation sequence
// indexed from zero.
func Observations(texts []string) iter.Seq2[Observation, error] {
	return func(yield func(Observation, error) bool) {
		for i, text := range texts {
			if !yield(Observation{Index: i, RawText: text}, nil) {
				return
			}
		}
	}
}

// Stitch runs a fresh engine over texts and returns the emitted line texts.
func Stitch(opts Options, texts []string) ([]string, error) {
	engine, err := New(opts)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0)
	err = engine.Run(context.Background(), Observations(texts), func(line Line) error {
		out = append(out, line.Text)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
