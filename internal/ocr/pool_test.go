package ocr

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"hardsub/internal/frames"
	"hardsub/internal/logging"
	"hardsub/internal/stitch"
)

// pathRecognizer returns the frame path as its text after a small,
// path-dependent delay so completions arrive out of order.
type pathRecognizer struct {
	active    atomic.Int64
	maxActive atomic.Int64
	fail      map[string]error
}

func (r *pathRecognizer) Recognize(ctx context.Context, path string) (string, error) {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		cur := r.maxActive.Load()
		if n <= cur || r.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	idx, _ := strconv.Atoi(strings.TrimPrefix(path, "f"))
	delay := time.Duration((idx*7)%5) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if err := r.fail[path]; err != nil {
		return "", err
	}
	return "text " + path, nil
}

func (r *pathRecognizer) Signature() string { return "path" }

func frameSeq(n int) iter.Seq[frames.Frame] {
	return func(yield func(frames.Frame) bool) {
		for i := range n {
			if !yield(frames.Frame{Index: i, Path: fmt.Sprintf("f%d", i)}) {
				return
			}
		}
	}
}

func collectObservations(t *testing.T, seq iter.Seq2[stitch.Observation, error]) ([]stitch.Observation, error) {
	t.Helper()
	var out []stitch.Observation
	for obs, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, obs)
	}
	return out, nil
}

func TestPoolPreservesOrder(t *testing.T) {
	rec := &pathRecognizer{}
	pool := NewPool(rec, PoolOptions{Workers: 4}, logging.NewNop())

	got, err := collectObservations(t, pool.Observations(context.Background(), frameSeq(40)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 40 {
		t.Fatalf("expected 40 observations, got %d", len(got))
	}
	for i, obs := range got {
		if obs.Index != i || obs.RawText != fmt.Sprintf("text f%d", i) {
			t.Fatalf("observation %d = %+v", i, obs)
		}
	}
	if rec.maxActive.Load() > 4 {
		t.Fatalf("worker limit exceeded: %d", rec.maxActive.Load())
	}
}

func TestPoolStopsOnFailure(t *testing.T) {
	engineErr := errors.New("engine crashed")
	rec := &pathRecognizer{fail: map[string]error{"f5": engineErr}}
	pool := NewPool(rec, PoolOptions{Workers: 3}, logging.NewNop())

	got, err := collectObservations(t, pool.Observations(context.Background(), frameSeq(20)))
	if !errors.Is(err, engineErr) {
		t.Fatalf("expected engine error, got %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected frames before the failure only, got %d", len(got))
	}
}

func TestPoolSkipsFailedFrames(t *testing.T) {
	rec := &pathRecognizer{fail: map[string]error{"f2": errors.New("bad crop")}}
	pool := NewPool(rec, PoolOptions{Workers: 2, SkipFailed: true}, logging.NewNop())

	got, err := collectObservations(t, pool.Observations(context.Background(), frameSeq(5)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 || got[2].RawText != "" || got[2].Index != 2 {
		t.Fatalf("expected empty observation for the failed frame, got %+v", got)
	}
	if pool.Skipped() != 1 {
		t.Fatalf("Skipped = %d", pool.Skipped())
	}
}

func TestPoolCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool := NewPool(&pathRecognizer{}, PoolOptions{Workers: 2}, logging.NewNop())

	count := 0
	var lastErr error
	for _, err := range pool.Observations(ctx, frameSeq(1000)) {
		if err != nil {
			lastErr = err
			break
		}
		count++
		if count == 3 {
			cancel()
		}
	}
	if !errors.Is(lastErr, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", lastErr)
	}
	if count >= 1000 {
		t.Fatal("expected the sequence to stop early")
	}
}

func TestPoolEarlyBreak(t *testing.T) {
	pool := NewPool(&pathRecognizer{}, PoolOptions{Workers: 3}, logging.NewNop())
	count := 0
	for range pool.Observations(context.Background(), frameSeq(100)) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("count = %d", count)
	}
}

func TestPoolFeedsEngine(t *testing.T) {
	texts := []string{"hello", "hello", "", "hello", "world", "w0rld", "", ""}
	rec := &tableRecognizer{texts: texts}
	pool := NewPool(rec, PoolOptions{Workers: 3}, logging.NewNop())

	engine, err := stitch.New(stitch.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	err = engine.Run(context.Background(), pool.Observations(context.Background(), frameSeq(len(texts))), func(line stitch.Line) error {
		lines = append(lines, line.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(lines, "|") != "hello|world" {
		t.Fatalf("lines = %q", lines)
	}
}

type tableRecognizer struct {
	texts []string
}

func (r *tableRecognizer) Recognize(_ context.Context, path string) (string, error) {
	idx, err := strconv.Atoi(strings.TrimPrefix(path, "f"))
	if err != nil {
		return "", err
	}
	time.Sleep(time.Duration(idx%3) * time.Millisecond)
	return r.texts[idx], nil
}

func (r *tableRecognizer) Signature() string { return "table" }
