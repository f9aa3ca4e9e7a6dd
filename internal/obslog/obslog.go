// Package obslog reads and writes observation streams: the per-frame OCR
// text a run fed to the stitching engine. Saved streams let a run be
// re-stitched with different parameters without decoding or OCR.
//
// Two formats are understood. Text holds one frame per line, a blank line
// being an empty frame, with indexes assigned from zero. JSONL holds one
// {"index":N,"text":"..."} object per line.
package obslog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"hardsub/internal/stitch"
)

// Format names an observation stream encoding.
type Format string

const (
	FormatText  Format = "text"
	FormatJSONL Format = "jsonl"
)

// ParseFormat maps a flag value to a Format.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSONL, "json":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unknown observation format %q (want text or jsonl)", value)
	}
}

// Record is one JSONL line.
type Record struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	TimestampMS int64  `json:"timestamp_ms,omitempty"`
}

const maxLineBytes = 1 << 20

// Read decodes observations from r lazily. Decode failures are yielded as
// errors naming the offending line.
func Read(r io.Reader, format Format) iter.Seq2[stitch.Observation, error] {
	return func(yield func(stitch.Observation, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		lineNo := 0
		index := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			var obs stitch.Observation
			switch format {
			case FormatJSONL:
				if strings.TrimSpace(line) == "" {
					continue
				}
				var rec Record
				if err := json.Unmarshal([]byte(line), &rec); err != nil {
					yield(stitch.Observation{}, fmt.Errorf("line %d: %w", lineNo, err))
					return
				}
				obs = stitch.Observation{Index: rec.Index, RawText: rec.Text}
			default:
				obs = stitch.Observation{Index: index, RawText: line}
				index++
			}
			if !yield(obs, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(stitch.Observation{}, fmt.Errorf("line %d: %w", lineNo+1, err))
		}
	}
}

// Writer appends JSONL records to a file.
type Writer struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

// Create truncates path and returns a Writer.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create observation log: %w", err)
	}
	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &Writer{f: f, buf: buf, enc: enc}, nil
}

// Write appends one observation.
func (w *Writer) Write(obs stitch.Observation, timestamp time.Duration) error {
	return w.enc.Encode(Record{Index: obs.Index, Text: obs.RawText, TimestampMS: timestamp.Milliseconds()})
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	flushErr := w.buf.Flush()
	closeErr := w.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
