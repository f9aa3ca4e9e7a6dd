// Package services defines shared utilities consumed by the extraction
// pipeline stages and the external tools they drive.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (acquisition, decode, recognition, configuration) and map them onto a
//     run status for the history table.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
