// Package sink writes stitched lines to their destination.
//
// File destinations are written progressively to a temporary file next to
// the target and renamed into place on Commit, so readers never observe a
// half-written subtitle file. The destination "-" streams to stdout.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hardsub/internal/fileutil"
)

// Stdout is the destination name that selects standard output.
const Stdout = "-"

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Sink accepts lines in order and commits them atomically.
type Sink struct {
	dest   string
	tmp    *os.File
	w      *bufio.Writer
	lines  int
	closed bool
}

// Open prepares dest. Parent directories are created as needed. When dest
// is Stdout, lines go to stdout and Commit only flushes.
func Open(dest string, stdout io.Writer) (*Sink, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return nil, errors.New("sink: destination is empty")
	}
	if dest == Stdout {
		if stdout == nil {
			stdout = os.Stdout
		}
		return &Sink{dest: dest, w: bufio.NewWriter(stdout)}, nil
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sink: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("sink: create temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("sink: chmod temp file: %w", err)
	}
	return &Sink{dest: dest, tmp: tmp, w: bufio.NewWriter(tmp)}, nil
}

// Dest returns the destination path or Stdout.
func (s *Sink) Dest() string { return s.dest }

// Lines returns the number of lines written.
func (s *Sink) Lines() int { return s.lines }

// Write appends one line. Embedded line breaks become spaces and every line
// ends with "\n". Lines are flushed as they arrive so partial output is
// visible while a long extraction runs.
func (s *Sink) Write(text string) error {
	if s.closed {
		return errors.New("sink: write after close")
	}
	if _, err := s.w.WriteString(lineBreaks.Replace(text)); err != nil {
		return fmt.Errorf("sink: write: %w", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("sink: write: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("sink: flush: %w", err)
	}
	s.lines++
	return nil
}

// Commit flushes, syncs and renames the temporary file over the destination.
func (s *Sink) Commit() error {
	if s.closed {
		return errors.New("sink: already closed")
	}
	s.closed = true
	if err := s.w.Flush(); err != nil {
		s.discard()
		return fmt.Errorf("sink: flush: %w", err)
	}
	if s.tmp == nil {
		return nil
	}
	if err := s.tmp.Sync(); err != nil {
		s.discard()
		return fmt.Errorf("sink: sync: %w", err)
	}
	if err := s.tmp.Close(); err != nil {
		_ = os.Remove(s.tmp.Name())
		return fmt.Errorf("sink: close: %w", err)
	}
	if err := os.Rename(s.tmp.Name(), s.dest); err != nil {
		_ = os.Remove(s.tmp.Name())
		return fmt.Errorf("sink: rename: %w", err)
	}
	if err := fileutil.SyncDir(filepath.Dir(s.dest)); err != nil {
		return fmt.Errorf("sink: sync dir: %w", err)
	}
	return nil
}

// Abort discards everything written. It is a no-op after Commit.
func (s *Sink) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.tmp == nil {
		return s.w.Flush()
	}
	s.discard()
	return nil
}

func (s *Sink) discard() {
	if s.tmp == nil {
		return
	}
	_ = s.tmp.Close()
	_ = os.Remove(s.tmp.Name())
}
