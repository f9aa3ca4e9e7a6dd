package stitch

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"hardsub/internal/logging"
)

// Observation is the OCR reading of one sampled frame.
type Observation struct {
	Index   int
	RawText string
}

// Line is a finalized subtitle line. Order is its zero-based position in the
// output; the frame fields describe the run it came from.
type Line struct {
	Text       string `json:"text"`
	Order      int    `json:"order"`
	FirstFrame int    `json:"first_frame"`
	LastFrame  int    `json:"last_frame"`
	Frames     int    `json:"frames"`
}

// Stats counts what the engine has seen and decided.
type Stats struct {
	Frames            int `json:"frames"`
	EmptyFrames       int `json:"empty_frames"`
	Runs              int `json:"runs"`
	Emitted           int `json:"emitted"`
	FlickersDiscarded int `json:"flickers_discarded"`
	RepeatsSuppressed int `json:"repeats_suppressed"`
}

type candidate struct {
	canonical string
	bestRaw   string
	firstSeen int
	lastSeen  int
	runLength int
	emptyRun  int
}

// Engine is the stitching state machine. It is not safe for concurrent use;
// observations must arrive with strictly increasing indexes.
type Engine struct {
	opts       Options
	normalizer Normalizer
	comparator Comparator
	logger     *slog.Logger

	live      *candidate
	started   bool
	lastIndex int

	lastEmitted string
	emitted     bool
	stats       Stats
}

// New validates opts and returns an engine in the no-candidate state.
func New(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	script, _ := ParseScript(string(opts.Script))
	tieBreak, _ := ParseTieBreak(string(opts.TieBreak))
	metric, _ := ParseMetric(string(opts.Metric))
	opts.Script, opts.TieBreak, opts.Metric = script, tieBreak, metric

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		opts:       opts,
		normalizer: NewNormalizer(script),
		comparator: NewComparator(opts.SimilarityThreshold, metric),
		logger:     logging.NewComponentLogger(logger, "stitch"),
	}, nil
}

// Options returns the resolved options the engine runs with.
func (e *Engine) Options() Options {
	return e.opts
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Observe consumes one observation. It returns the line finalized by this
// observation, if any. An out-of-order index returns a *SequenceOrderError
// and leaves the engine unchanged.
func (e *Engine) Observe(obs Observation) (Line, bool, error) {
	if obs.Index < 0 || (e.started && obs.Index <= e.lastIndex) {
		previous := -1
		if e.started {
			previous = e.lastIndex
		}
		return Line{}, false, &SequenceOrderError{Previous: previous, Got: obs.Index}
	}
	e.started = true
	e.lastIndex = obs.Index
	e.stats.Frames++

	canonical := e.normalizer.Normalize(obs.RawText)
	if canonical == "" {
		e.stats.EmptyFrames++
		if e.live == nil {
			return Line{}, false, nil
		}
		e.live.emptyRun++
		if e.live.emptyRun > e.opts.MaxEmptyGap {
			line, ok := e.finalize("empty_gap_exceeded")
			return line, ok, nil
		}
		return Line{}, false, nil
	}

	if e.live == nil {
		e.start(obs, canonical)
		return Line{}, false, nil
	}
	if e.comparator.Similar(e.live.canonical, canonical) {
		e.extend(obs, canonical)
		return Line{}, false, nil
	}
	line, ok := e.finalize("new_line")
	e.start(obs, canonical)
	return line, ok, nil
}

// Flush finalizes the live candidate, if any.
func (e *Engine) Flush() (Line, bool) {
	if e.live == nil {
		return Line{}, false
	}
	return e.finalize("flush")
}

func (e *Engine) start(obs Observation, canonical string) {
	e.stats.Runs++
	e.live = &candidate{
		canonical: canonical,
		bestRaw:   obs.RawText,
		firstSeen: obs.Index,
		lastSeen:  obs.Index,
		runLength: 1,
	}
}

func (e *Engine) extend(obs Observation, canonical string) {
	c := e.live
	c.lastSeen = obs.Index
	c.runLength++
	c.emptyRun = 0
	if e.prefers(canonical, c.canonical) {
		c.canonical = canonical
		c.bestRaw = obs.RawText
	}
}

// prefers reports whether the reading next replaces current under the
// configured tie-break policy. Lengths are canonical rune counts.
func (e *Engine) prefers(next, current string) bool {
	switch e.opts.TieBreak {
	case TieBreakShortest:
		return utf8.RuneCountInString(next) < utf8.RuneCountInString(current)
	case TieBreakFirst:
		return false
	default:
		return utf8.RuneCountInString(next) > utf8.RuneCountInString(current)
	}
}

func (e *Engine) finalize(reason string) (Line, bool) {
	c := e.live
	e.live = nil

	if c.runLength < e.opts.MinRunLength {
		e.stats.FlickersDiscarded++
		e.logger.Debug("candidate discarded",
			logging.Args(append(logging.DecisionAttrs("stitch_emit", "discarded", "below_min_run_length"),
				logging.String("canonical", c.canonical),
				logging.Int("run_length", c.runLength),
				logging.Int("first_frame", c.firstSeen),
			)...)...,
		)
		return Line{}, false
	}
	if e.emitted && e.comparator.Similar(e.lastEmitted, c.canonical) {
		e.stats.RepeatsSuppressed++
		e.logger.Debug("candidate suppressed",
			logging.Args(append(logging.DecisionAttrs("stitch_emit", "suppressed", "similar_to_previous_line"),
				logging.String("canonical", c.canonical),
				logging.Int("first_frame", c.firstSeen),
			)...)...,
		)
		return Line{}, false
	}

	line := Line{
		Text:       strings.TrimSpace(c.bestRaw),
		Order:      e.stats.Emitted,
		FirstFrame: c.firstSeen,
		LastFrame:  c.lastSeen,
		Frames:     c.runLength,
	}
	e.stats.Emitted++
	e.lastEmitted = c.canonical
	e.emitted = true
	e.logger.Debug("line emitted",
		logging.Int("order", line.Order),
		logging.String("reason", reason),
		logging.Int("first_frame", line.FirstFrame),
		logging.Int("last_frame", line.LastFrame),
		logging.Int("run_length", line.Frames),
	)
	return line, true
}
