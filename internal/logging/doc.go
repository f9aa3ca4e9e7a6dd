// Package logging assembles structured slog loggers and formatting helpers used
// across hardsub.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, stages, and sources. Logs go to stderr so extracted
// text written to stdout stays clean. The package also provides a no-op logger
// for tests and library callers that do not supply one.
package logging
