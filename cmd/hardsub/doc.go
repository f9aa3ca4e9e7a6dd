// Package main hosts the hardsub CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the structured
// logger and opens the state database, then hands off to the extraction
// pipeline, the stitching engine, run history or the OCR cache. Errors carry
// the sentinel markers from internal/services so the process exit status
// tells acquisition, decode and recognition failures apart.
//
// Keep this package thin: behaviour belongs in the internal packages and is
// surfaced here through flags and output formatting.
package main
