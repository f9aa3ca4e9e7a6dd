package stitch

import (
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"
)

func testOptions(threshold float64, gap, minRun int) Options {
	opts := DefaultOptions()
	opts.SimilarityThreshold = threshold
	opts.MaxEmptyGap = gap
	opts.MinRunLength = minRun
	return opts
}

func TestStitchScenarios(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		texts []string
		want  []string
	}{
		{
			name:  "stable line with flicker",
			opts:  testOptions(0.8, 1, 1),
			texts: []string{"你好", "你好", "", "你好", "再见"},
			want:  []string{"你好", "再见"},
		},
		{
			name:  "gap exceeded",
			opts:  testOptions(0.8, 1, 1),
			texts: []string{"A", "", "", "B"},
			want:  []string{"A", "B"},
		},
		{
			name:  "run floor discards everything",
			opts:  testOptions(0.8, 1, 4),
			texts: []string{"X", "X", "X"},
			want:  []string{},
		},
		{
			name:  "ocr noise merges",
			opts:  testOptions(0.8, 1, 1),
			texts: []string{"line one", "line 0ne", "line two"},
			want:  []string{"line one", "line two"},
		},
		{
			name:  "stricter threshold splits noise",
			opts:  testOptions(0.9, 1, 1),
			texts: []string{"line one", "line 0ne", "line two"},
			want:  []string{"line one", "line 0ne", "line two"},
		},
		{
			name:  "empty input",
			opts:  DefaultOptions(),
			texts: nil,
			want:  []string{},
		},
		{
			name:  "all empty frames",
			opts:  DefaultOptions(),
			texts: []string{"", "  ", "|", ""},
			want:  []string{},
		},
		{
			name:  "single-frame flicker between lines",
			opts:  testOptions(0.8, 1, 2),
			texts: []string{"hello", "hello", "zzz", "world", "world"},
			want:  []string{"hello", "world"},
		},
		{
			name:  "line may return after another line",
			opts:  DefaultOptions(),
			texts: []string{"alpha", "alpha", "beta", "beta", "alpha"},
			want:  []string{"alpha", "beta", "alpha"},
		},
		{
			name:  "emitted text is trimmed raw reading",
			opts:  DefaultOptions(),
			texts: []string{"  Hello World  ", "hello world"},
			want:  []string{"Hello World"},
		},
		{
			name:  "comparison against live candidate only",
			opts:  testOptions(0.75, 1, 1),
			texts: []string{"abcd", "abce", "abfe"},
			want:  []string{"abcd", "abfe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Stitch(tt.opts, tt.texts)
			if err != nil {
				t.Fatalf("Stitch returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Stitch = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTieBreakPolicies(t *testing.T) {
	tests := []struct {
		name     string
		tieBreak TieBreak
		texts    []string
		want     string
	}{
		{"longest", TieBreakLongest, []string{"你好世界", "你好世界啊", "你好世界"}, "你好世界啊"},
		{"longest ignores punctuation noise", TieBreakLongest, []string{"你好世界啊", "你好世界 !!!"}, "你好世界啊"},
		{"shortest", TieBreakShortest, []string{"你好世界啊", "你好世界", "你好世界啊"}, "你好世界"},
		{"first", TieBreakFirst, []string{"你好世界", "你好世界啊"}, "你好世界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(0.7, 1, 1)
			opts.TieBreak = tt.tieBreak
			got, err := Stitch(opts, tt.texts)
			if err != nil {
				t.Fatalf("Stitch returned error: %v", err)
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Fatalf("Stitch = %q, want [%q]", got, tt.want)
			}
		})
	}
}

func TestGapToleranceKeepsRunOpen(t *testing.T) {
	engine, err := New(testOptions(0.8, 2, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i, text := range []string{"alpha", "", "", "alpha"} {
		if _, ok, err := engine.Observe(Observation{Index: i, RawText: text}); err != nil || ok {
			t.Fatalf("frame %d: unexpected emit=%v err=%v", i, ok, err)
		}
	}
	line, ok := engine.Flush()
	if !ok {
		t.Fatal("expected flush to emit the open run")
	}
	want := Line{Text: "alpha", Order: 0, FirstFrame: 0, LastFrame: 3, Frames: 2}
	if line != want {
		t.Fatalf("line = %+v, want %+v", line, want)
	}
	if stats := engine.Stats(); stats.Runs != 1 || stats.EmptyFrames != 2 {
		t.Fatalf("stats = %+v, want one run and two empty frames", stats)
	}
}

func TestGapExceededSuppressesRepeat(t *testing.T) {
	engine, err := New(testOptions(0.8, 1, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var lines []Line
	for i, text := range []string{"alpha", "", "", "alpha"} {
		line, ok, err := engine.Observe(Observation{Index: i, RawText: text})
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if ok {
			lines = append(lines, line)
		}
	}
	if line, ok := engine.Flush(); ok {
		lines = append(lines, line)
	}
	if len(lines) != 1 || lines[0].Text != "alpha" {
		t.Fatalf("lines = %+v, want single alpha", lines)
	}
	stats := engine.Stats()
	if stats.Runs != 2 || stats.RepeatsSuppressed != 1 {
		t.Fatalf("stats = %+v, want two runs with one suppressed repeat", stats)
	}
}

func TestFlickerCounted(t *testing.T) {
	engine, err := New(testOptions(0.8, 1, 2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i, text := range []string{"hello", "hello", "zzz", "world", "world"} {
		if _, _, err := engine.Observe(Observation{Index: i, RawText: text}); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	engine.Flush()
	stats := engine.Stats()
	if stats.FlickersDiscarded != 1 || stats.Emitted != 2 || stats.Frames != 5 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestFlushWithoutCandidate(t *testing.T) {
	engine, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := engine.Flush(); ok {
		t.Fatal("expected no line from a fresh engine")
	}
	if _, ok, _ := engine.Observe(Observation{Index: 0, RawText: "hi there"}); ok {
		t.Fatal("first observation must not emit")
	}
	if _, ok := engine.Flush(); !ok {
		t.Fatal("expected flush to emit")
	}
	if _, ok := engine.Flush(); ok {
		t.Fatal("second flush must be a no-op")
	}
}

func TestObserveRejectsOutOfOrderIndex(t *testing.T) {
	engine, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := engine.Observe(Observation{Index: 0, RawText: "first"}); err != nil {
		t.Fatalf("Observe: %v", err)
	}

	_, _, err = engine.Observe(Observation{Index: 0, RawText: "dup"})
	var orderErr *SequenceOrderError
	if !errors.As(err, &orderErr) {
		t.Fatalf("expected SequenceOrderError, got %v", err)
	}
	if orderErr.Previous != 0 || orderErr.Got != 0 {
		t.Fatalf("unexpected error fields: %+v", orderErr)
	}

	// Gaps in indexes are allowed.
	if _, _, err := engine.Observe(Observation{Index: 5, RawText: "first"}); err != nil {
		t.Fatalf("Observe(5): %v", err)
	}
	if _, _, err := engine.Observe(Observation{Index: 3, RawText: "late"}); !errors.As(err, &orderErr) {
		t.Fatalf("expected SequenceOrderError for regression, got %v", err)
	}

	// The rejected observations must not have disturbed the candidate.
	line, ok := engine.Flush()
	if !ok || line.Text != "first" || line.LastFrame != 5 || line.Frames != 2 {
		t.Fatalf("flush = %+v, %v", line, ok)
	}
	if engine.Stats().Frames != 2 {
		t.Fatalf("rejected frames were counted: %+v", engine.Stats())
	}
}

func TestObserveRejectsNegativeIndex(t *testing.T) {
	engine, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, _, err = engine.Observe(Observation{Index: -1, RawText: "x"})
	var orderErr *SequenceOrderError
	if !errors.As(err, &orderErr) {
		t.Fatalf("expected SequenceOrderError, got %v", err)
	}
	if orderErr.Error() != "stitch: negative frame index -1" {
		t.Fatalf("unexpected message %q", orderErr.Error())
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Options)
		field string
	}{
		{"zero threshold", func(o *Options) { o.SimilarityThreshold = 0 }, "similarity threshold"},
		{"threshold above one", func(o *Options) { o.SimilarityThreshold = 1.5 }, "similarity threshold"},
		{"nan threshold", func(o *Options) { o.SimilarityThreshold = math.NaN() }, "similarity threshold"},
		{"negative gap", func(o *Options) { o.MaxEmptyGap = -1 }, "max empty gap"},
		{"zero run length", func(o *Options) { o.MinRunLength = 0 }, "min run length"},
		{"unknown tie break", func(o *Options) { o.TieBreak = "loudest" }, "tie break"},
		{"unknown metric", func(o *Options) { o.Metric = "cosine" }, "metric"},
		{"unknown script", func(o *Options) { o.Script = "klingon" }, "script"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mut(&opts)
			_, err := New(opts)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestNewAcceptsBoundaryOptions(t *testing.T) {
	opts := testOptions(1, 0, 1)
	engine, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := Stitch(opts, []string{"same", "same", "", "same"})
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"same"}) {
		t.Fatalf("Stitch = %q", got)
	}
	if engine.Options().TieBreak != TieBreakLongest || engine.Options().Metric != MetricLevenshtein {
		t.Fatalf("defaults not resolved: %+v", engine.Options())
	}
}

// Random readings drawn from a small vocabulary with OCR-style noise must
// still produce output with no two adjacent similar lines, ordered by frame.
func TestOutputInvariantsOnNoisyInput(t *testing.T) {
	vocabulary := []string{"你好", "你好吗", "再见", "谢谢你", "line one", "line two", "ok", ""}
	rng := rand.New(rand.NewPCG(7, 11))

	for round := range 50 {
		texts := make([]string, 200)
		for i := range texts {
			text := vocabulary[rng.IntN(len(vocabulary))]
			if text != "" && rng.IntN(4) == 0 {
				runes := []rune(text)
				runes[rng.IntN(len(runes))] = 'x'
				text = string(runes)
			}
			texts[i] = text
		}

		opts := testOptions(0.6+0.1*float64(round%4), round%3, 1+round%2)
		engine, err := New(opts)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		var lines []Line
		for i, text := range texts {
			line, ok, err := engine.Observe(Observation{Index: i, RawText: text})
			if err != nil {
				t.Fatalf("Observe: %v", err)
			}
			if ok {
				lines = append(lines, line)
			}
		}
		if line, ok := engine.Flush(); ok {
			lines = append(lines, line)
		}

		normalizer := NewNormalizer(opts.Script)
		comparator := NewComparator(opts.SimilarityThreshold, opts.Metric)
		for i, line := range lines {
			if line.Order != i {
				t.Fatalf("round %d: order %d at position %d", round, line.Order, i)
			}
			if line.Frames < opts.MinRunLength {
				t.Fatalf("round %d: line %q below run floor", round, line.Text)
			}
			if normalizer.Normalize(line.Text) == "" {
				t.Fatalf("round %d: emitted empty line", round)
			}
			if i == 0 {
				continue
			}
			prev := lines[i-1]
			if line.FirstFrame <= prev.LastFrame {
				t.Fatalf("round %d: line %d starts at %d before previous ended at %d", round, i, line.FirstFrame, prev.LastFrame)
			}
			if comparator.Similar(normalizer.Normalize(prev.Text), normalizer.Normalize(line.Text)) {
				t.Fatalf("round %d: adjacent similar lines %q and %q", round, prev.Text, line.Text)
			}
		}
	}
}
