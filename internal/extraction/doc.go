// Package extraction runs one end-to-end subtitle extraction.
//
// A Pipeline acquires the source, probes it, samples cropped frames,
// recognizes them through an ordered worker pool and streams the resulting
// observations through the stitching engine into a sink. Each run gets a
// UUID that travels in the context for logging, holds an advisory lock on
// its output file, and is recorded in the store's run history.
//
// Cancellation is not a failure of the output: lines emitted before the
// context ended, plus the flushed live candidate, are committed and the
// run is recorded as cancelled.
package extraction
