// Package stitch turns an ordered stream of per-frame OCR readings into the
// ordered list of distinct subtitle lines that were on screen.
//
// The package has three parts that are used together by the Engine:
//   - Normalizer folds width, case, and OCR noise out of a raw reading so two
//     recognitions of the same line can be compared.
//   - Comparator scores two canonical forms with an edit-distance ratio and
//     decides whether they are the same displayed line.
//   - Engine is a single-pass state machine that keeps at most one live
//     candidate line, absorbs short runs of empty frames, and emits each run
//     once it ends.
//
// The engine performs no I/O and holds O(1) state, so it can be driven as a
// tight fold over a lazily produced observation sequence. Callers that need
// concurrency must deliver observations in strictly increasing index order.
package stitch
