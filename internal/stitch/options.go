package stitch

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// Script names the writing system subtitles are expected in. It controls which
// characters the normalizer treats as noise.
type Script string

const (
	ScriptAny    Script = "any"
	ScriptHan    Script = "han"
	ScriptKana   Script = "kana"
	ScriptHangul Script = "hangul"
	ScriptLatin  Script = "latin"
)

// TieBreak selects which reading of a run is kept for display.
type TieBreak string

const (
	// TieBreakLongest keeps the longest reading; OCR misses characters more
	// often than it invents them. Lengths are rune counts of the canonical
	// form, so stripped punctuation noise never makes a reading longer.
	TieBreakLongest TieBreak = "longest"
	// TieBreakShortest suits engines that hallucinate trailing characters.
	TieBreakShortest TieBreak = "shortest"
	// TieBreakFirst keeps the first reading of the run.
	TieBreakFirst TieBreak = "first"
)

// Metric selects the similarity ratio.
type Metric string

const (
	// MetricLevenshtein is 1 - editDistance/max(len).
	MetricLevenshtein Metric = "levenshtein"
	// MetricLCS is 2*LCS/(len(a)+len(b)).
	MetricLCS Metric = "lcs"
)

const (
	DefaultSimilarityThreshold = 0.8
	DefaultMaxEmptyGap         = 1
	DefaultMinRunLength        = 1
)

// Options configures an Engine.
type Options struct {
	// SimilarityThreshold is the minimum ratio, in (0,1], for two readings to
	// count as the same line.
	SimilarityThreshold float64
	// MaxEmptyGap is how many consecutive empty frames a live candidate
	// survives.
	MaxEmptyGap int
	// MinRunLength is how many matching frames a candidate needs before it is
	// emitted.
	MinRunLength int
	Script       Script
	TieBreak     TieBreak
	Metric       Metric
	// Logger receives debug-level decision logs. Nil disables them.
	Logger *slog.Logger
}

// DefaultOptions returns options matching the documented defaults.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaxEmptyGap:         DefaultMaxEmptyGap,
		MinRunLength:        DefaultMinRunLength,
		Script:              ScriptAny,
		TieBreak:            TieBreakLongest,
		Metric:              MetricLevenshtein,
	}
}

// Validate reports the first option outside its domain. Empty Script,
// TieBreak and Metric values select their defaults.
func (o Options) Validate() error {
	if math.IsNaN(o.SimilarityThreshold) || o.SimilarityThreshold <= 0 || o.SimilarityThreshold > 1 {
		return &ConfigurationError{Field: "similarity threshold", Value: o.SimilarityThreshold, Reason: "must be in (0,1]"}
	}
	if o.MaxEmptyGap < 0 {
		return &ConfigurationError{Field: "max empty gap", Value: o.MaxEmptyGap, Reason: "must be >= 0"}
	}
	if o.MinRunLength < 1 {
		return &ConfigurationError{Field: "min run length", Value: o.MinRunLength, Reason: "must be >= 1"}
	}
	if _, err := ParseScript(string(o.Script)); err != nil {
		return &ConfigurationError{Field: "script", Value: o.Script, Reason: err.Error()}
	}
	if _, err := ParseTieBreak(string(o.TieBreak)); err != nil {
		return &ConfigurationError{Field: "tie break", Value: o.TieBreak, Reason: err.Error()}
	}
	if _, err := ParseMetric(string(o.Metric)); err != nil {
		return &ConfigurationError{Field: "metric", Value: o.Metric, Reason: err.Error()}
	}
	return nil
}

// ParseScript maps a configuration value to a Script. Empty selects ScriptAny.
func ParseScript(value string) (Script, error) {
	switch Script(strings.ToLower(strings.TrimSpace(value))) {
	case "", ScriptAny:
		return ScriptAny, nil
	case ScriptHan, "zh", "chinese", "cjk":
		return ScriptHan, nil
	case ScriptKana, "ja", "japanese":
		return ScriptKana, nil
	case ScriptHangul, "ko", "korean":
		return ScriptHangul, nil
	case ScriptLatin:
		return ScriptLatin, nil
	default:
		return "", fmt.Errorf("unknown script %q", value)
	}
}

// ParseTieBreak maps a configuration value to a TieBreak. Empty selects
// TieBreakLongest.
func ParseTieBreak(value string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(value))) {
	case "", TieBreakLongest:
		return TieBreakLongest, nil
	case TieBreakShortest:
		return TieBreakShortest, nil
	case TieBreakFirst:
		return TieBreakFirst, nil
	default:
		return "", fmt.Errorf("unknown tie break %q", value)
	}
}

// ParseMetric maps a configuration value to a Metric. Empty selects
// MetricLevenshtein.
func ParseMetric(value string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(value))) {
	case "", MetricLevenshtein, "edit":
		return MetricLevenshtein, nil
	case MetricLCS:
		return MetricLCS, nil
	default:
		return "", fmt.Errorf("unknown metric %q", value)
	}
}
